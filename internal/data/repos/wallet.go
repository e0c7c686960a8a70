package repos

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/brenlab/bren-backend/internal/domain"
	"github.com/brenlab/bren-backend/internal/pkg/dbctx"
	pkgerr "github.com/brenlab/bren-backend/internal/pkg/errors"
	"github.com/brenlab/bren-backend/internal/platform/logger"
)

// WalletCharge carries the usage attribution recorded alongside a debit.
type WalletCharge struct {
	AmountUSD      decimal.Decimal
	ModelName      string
	InputTokens    int64
	OutputTokens   int64
	ThoughtsTokens int64
	ThreadID       *uuid.UUID
	MessageID      *uuid.UUID
}

type WalletRepo interface {
	GetOrCreate(dbc dbctx.Context, userID uuid.UUID) (*types.Wallet, error)
	GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.Wallet, error)
	Credit(dbc dbctx.Context, userID uuid.UUID, amount decimal.Decimal, sourceEventID string) (*types.Wallet, error)
	Debit(dbc dbctx.Context, userID uuid.UUID, charge WalletCharge) (*types.Wallet, error)
	ListTransactions(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.WalletTransaction, error)
}

type walletRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWalletRepo(db *gorm.DB, log *logger.Logger) WalletRepo {
	return &walletRepo{db: db, log: log.With("repo", "WalletRepo")}
}

func (r *walletRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *walletRepo) GetOrCreate(dbc dbctx.Context, userID uuid.UUID) (*types.Wallet, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	var w types.Wallet
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		First(&w).Error
	if err == nil {
		return &w, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	w = types.Wallet{
		ID:            uuid.New(),
		UserID:        userID,
		BalanceUSD:    decimal.Zero,
		TotalSpentUSD: decimal.Zero,
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *walletRepo) GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.Wallet, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	var w types.Wallet
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		First(&w).Error
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Credit tops up the wallet and appends a ledger row. A non-empty
// sourceEventID makes the credit idempotent: replaying the same event
// returns the current wallet without a second top-up.
func (r *walletRepo) Credit(dbc dbctx.Context, userID uuid.UUID, amount decimal.Decimal, sourceEventID string) (*types.Wallet, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, fmt.Errorf("credit amount must be positive")
	}
	base := r.tx(dbc)
	var out *types.Wallet
	err := base.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		if sourceEventID != "" {
			var count int64
			if err := tx.Model(&types.WalletTransaction{}).
				Where("user_id = ? AND source_event_id = ?", userID, sourceEventID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				var w types.Wallet
				if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
					return err
				}
				out = &w
				return nil
			}
		}
		var w types.Wallet
		err := tx.Where("user_id = ?", userID).First(&w).Error
		if err == gorm.ErrRecordNotFound {
			w = types.Wallet{
				ID:            uuid.New(),
				UserID:        userID,
				BalanceUSD:    decimal.Zero,
				TotalSpentUSD: decimal.Zero,
			}
			if err := tx.Create(&w).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		newBalance := w.BalanceUSD.Add(amount)
		if err := tx.Model(&types.Wallet{}).
			Where("id = ?", w.ID).
			Updates(map[string]interface{}{
				"balance_usd": newBalance,
				"updated_at":  time.Now().UTC(),
			}).Error; err != nil {
			return err
		}
		txn := types.WalletTransaction{
			ID:              uuid.New(),
			UserID:          userID,
			Type:            types.WalletTxCredit,
			AmountUSD:       amount,
			BalanceAfterUSD: newBalance,
			SourceEventID:   sourceEventID,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
		w.BalanceUSD = newBalance
		out = &w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Debit charges the wallet atomically. The conditional update only fires when
// the balance covers the amount, so concurrent debits cannot drive the
// balance negative. Returns ErrInsufficientFunds when it does not.
func (r *walletRepo) Debit(dbc dbctx.Context, userID uuid.UUID, charge WalletCharge) (*types.Wallet, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if charge.AmountUSD.IsNegative() {
		return nil, fmt.Errorf("debit amount must not be negative")
	}
	base := r.tx(dbc)
	var out *types.Wallet
	err := base.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.Wallet{}).
			Where("user_id = ? AND balance_usd >= ?", userID, charge.AmountUSD).
			Updates(map[string]interface{}{
				"balance_usd":     gorm.Expr("balance_usd - ?", charge.AmountUSD),
				"total_spent_usd": gorm.Expr("total_spent_usd + ?", charge.AmountUSD),
				"updated_at":      time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&types.Wallet{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return pkgerr.ErrNotFound
			}
			return pkgerr.ErrInsufficientFunds
		}
		var w types.Wallet
		if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
			return err
		}
		txn := types.WalletTransaction{
			ID:              uuid.New(),
			UserID:          userID,
			Type:            types.WalletTxDebit,
			AmountUSD:       charge.AmountUSD,
			BalanceAfterUSD: w.BalanceUSD,
			ModelName:       charge.ModelName,
			InputTokens:     charge.InputTokens,
			OutputTokens:    charge.OutputTokens,
			ThoughtsTokens:  charge.ThoughtsTokens,
			ThreadID:        charge.ThreadID,
			MessageID:       charge.MessageID,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
		out = &w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *walletRepo) ListTransactions(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.WalletTransaction, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.WalletTransaction
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.WalletTransaction{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
