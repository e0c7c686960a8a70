package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Wallet is the per-user prepaid balance that meters AI usage. Balance is
// mutated only through the wallet repo's atomic credit/debit operations.
type Wallet struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	BalanceUSD    decimal.Decimal `gorm:"column:balance_usd;type:numeric(20,6);not null;default:0" json:"balance_usd"`
	TotalSpentUSD decimal.Decimal `gorm:"column:total_spent_usd;type:numeric(20,6);not null;default:0" json:"total_spent_usd"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Wallet) TableName() string { return "user_token_wallet" }

const (
	WalletTxCredit = "credit"
	WalletTxDebit  = "debit"
)

// WalletTransaction is the append-only ledger entry behind every wallet
// mutation.
type WalletTransaction struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Type            string          `gorm:"column:type;not null;index" json:"type"`
	AmountUSD       decimal.Decimal `gorm:"column:amount_usd;type:numeric(20,6);not null" json:"amount_usd"`
	BalanceAfterUSD decimal.Decimal `gorm:"column:balance_after_usd;type:numeric(20,6);not null" json:"balance_after_usd"`

	ModelName      string `gorm:"column:model_name" json:"model_name,omitempty"`
	InputTokens    int64  `gorm:"column:input_tokens;not null;default:0" json:"input_tokens"`
	OutputTokens   int64  `gorm:"column:output_tokens;not null;default:0" json:"output_tokens"`
	ThoughtsTokens int64  `gorm:"column:thoughts_tokens;not null;default:0" json:"thoughts_tokens"`

	ThreadID  *uuid.UUID `gorm:"type:uuid;column:thread_id;index" json:"thread_id,omitempty"`
	MessageID *uuid.UUID `gorm:"type:uuid;column:message_id;index" json:"message_id,omitempty"`

	// External payment/event id, used to make credits idempotent.
	SourceEventID string `gorm:"column:source_event_id;not null;default:'';index" json:"source_event_id,omitempty"`

	Metadata datatypes.JSON `gorm:"type:jsonb;column:metadata;not null;default:'{}'" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (WalletTransaction) TableName() string { return "token_transaction" }
