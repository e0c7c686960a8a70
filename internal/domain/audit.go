package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditEvent records system activity (message_created, thread_deleted,
// website_added, ...). Recording is fire-and-forget; failures never block
// the primary pipeline.
type AuditEvent struct {
	ID     uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID *uuid.UUID `gorm:"type:uuid;column:user_id;index" json:"user_id,omitempty"`

	EventType string         `gorm:"column:event_type;not null;index" json:"event_type"`
	EventData datatypes.JSON `gorm:"type:jsonb;column:event_data;not null;default:'{}'" json:"event_data,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (AuditEvent) TableName() string { return "system_event" }
