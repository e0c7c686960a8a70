package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SiteScript is one deployed revision of a site's custom code. Exactly one
// revision per site is active at a time; older rows stay as history.
type SiteScript struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	SiteCode string `gorm:"column:site_code;not null;index" json:"site_code"`

	JavascriptContent string `gorm:"column:javascript_content;type:text;not null;default:''" json:"javascript_content"`
	CSSContent        string `gorm:"column:css_content;type:text;not null;default:''" json:"css_content"`

	Version  int  `gorm:"column:version;not null;default:1" json:"version"`
	IsActive bool `gorm:"column:is_active;not null;default:true;index" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SiteScript) TableName() string { return "site_script" }
