package repos

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/brenlab/bren-backend/internal/domain"
	"github.com/brenlab/bren-backend/internal/pkg/dbctx"
	"github.com/brenlab/bren-backend/internal/platform/logger"
)

type AuditRepo interface {
	Create(dbc dbctx.Context, row *types.AuditEvent) (*types.AuditEvent, error)
}

type auditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditRepo(db *gorm.DB, log *logger.Logger) AuditRepo {
	return &auditRepo{db: db, log: log.With("repo", "AuditRepo")}
}

func (r *auditRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *auditRepo) Create(dbc dbctx.Context, row *types.AuditEvent) (*types.AuditEvent, error) {
	if row == nil {
		return nil, fmt.Errorf("missing event")
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}
