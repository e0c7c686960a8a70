package services

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brenlab/bren-backend/internal/data/repos"
	types "github.com/brenlab/bren-backend/internal/domain"
	"github.com/brenlab/bren-backend/internal/pkg/dbctx"
	"github.com/brenlab/bren-backend/internal/platform/logger"
)

const defaultMinBalanceUSD = "0.005"

type WalletService interface {
	Get(ctx context.Context, userID uuid.UUID) (*types.Wallet, error)
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceEventID string) (*types.Wallet, error)
	Charge(ctx context.Context, userID uuid.UUID, charge repos.WalletCharge) (*types.Wallet, error)
	Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]*types.WalletTransaction, error)
	// HasMinimumBalance is the cheap pre-check before starting an AI call.
	HasMinimumBalance(ctx context.Context, userID uuid.UUID) (bool, error)
	MinimumBalance() decimal.Decimal
}

type walletService struct {
	log        *logger.Logger
	repo       repos.WalletRepo
	minBalance decimal.Decimal
	audit      AuditService
}

func NewWalletService(repo repos.WalletRepo, audit AuditService, log *logger.Logger) WalletService {
	min := defaultMinBalanceUSD
	if v := strings.TrimSpace(os.Getenv("MIN_BALANCE_USD")); v != "" {
		if _, err := decimal.NewFromString(v); err == nil {
			min = v
		}
	}
	return &walletService{
		log:        log.With("service", "WalletService"),
		repo:       repo,
		minBalance: decimal.RequireFromString(min),
		audit:      audit,
	}
}

func (s *walletService) MinimumBalance() decimal.Decimal { return s.minBalance }

func (s *walletService) Get(ctx context.Context, userID uuid.UUID) (*types.Wallet, error) {
	return s.repo.GetOrCreate(dbctx.Context{Ctx: ctx}, userID)
}

func (s *walletService) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceEventID string) (*types.Wallet, error) {
	w, err := s.repo.Credit(dbctx.Context{Ctx: ctx}, userID, amount, sourceEventID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &userID, "wallet_credited", map[string]interface{}{
		"amount_usd":      amount.String(),
		"source_event_id": sourceEventID,
	})
	return w, nil
}

func (s *walletService) Charge(ctx context.Context, userID uuid.UUID, charge repos.WalletCharge) (*types.Wallet, error) {
	return s.repo.Debit(dbctx.Context{Ctx: ctx}, userID, charge)
}

func (s *walletService) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]*types.WalletTransaction, error) {
	return s.repo.ListTransactions(dbctx.Context{Ctx: ctx}, userID, limit)
}

func (s *walletService) HasMinimumBalance(ctx context.Context, userID uuid.UUID) (bool, error) {
	w, err := s.repo.GetOrCreate(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return false, err
	}
	return w.BalanceUSD.GreaterThanOrEqual(s.minBalance), nil
}
