package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Site struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	SiteCode      string `gorm:"column:site_code;uniqueIndex;not null" json:"site_code"`
	SiteName      string `gorm:"column:site_name;not null;default:''" json:"site_name"`
	PrimaryDomain string `gorm:"column:primary_domain;not null;default:''" json:"primary_domain"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Site) TableName() string { return "site" }
