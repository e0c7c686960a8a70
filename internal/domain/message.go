package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Assistant messages move monotonically pending -> in_progress -> {completed, error}.
// User and system messages are created directly in completed.
const (
	MessageStatusPending    = "pending"
	MessageStatusInProgress = "in_progress"
	MessageStatusCompleted  = "completed"
	MessageStatusError      = "error"
)

type ChatMessage struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ThreadID uuid.UUID `gorm:"type:uuid;not null;index" json:"thread_id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Role   string `gorm:"column:role;not null;index" json:"role"`
	Status string `gorm:"column:status;not null;default:'completed';index" json:"status"`

	Content string `gorm:"column:content;type:text;not null;default:''" json:"content"`

	// Assistant messages only: the model that actually produced the reply.
	Model   string          `gorm:"column:model" json:"model,omitempty"`
	CostUSD decimal.Decimal `gorm:"column:cost_usd;type:numeric(20,6);not null;default:0" json:"cost_usd"`

	// Carries the usage record, extracted code changes, chosen model and
	// fallback flag for assistant replies.
	Metadata datatypes.JSON `gorm:"type:jsonb;column:metadata;not null;default:'{}'" json:"metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ChatMessage) TableName() string { return "chat_message" }

func TerminalStatus(status string) bool {
	return status == MessageStatusCompleted || status == MessageStatusError
}
