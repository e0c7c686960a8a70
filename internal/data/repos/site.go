package repos

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/brenlab/bren-backend/internal/domain"
	"github.com/brenlab/bren-backend/internal/pkg/dbctx"
	pkgerr "github.com/brenlab/bren-backend/internal/pkg/errors"
	"github.com/brenlab/bren-backend/internal/platform/logger"
)

type SiteRepo interface {
	Create(dbc dbctx.Context, row *types.Site) (*types.Site, error)
	GetByCode(dbc dbctx.Context, siteCode string) (*types.Site, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Site, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type siteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSiteRepo(db *gorm.DB, log *logger.Logger) SiteRepo {
	return &siteRepo{db: db, log: log.With("repo", "SiteRepo")}
}

func (r *siteRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *siteRepo) Create(dbc dbctx.Context, row *types.Site) (*types.Site, error) {
	if row == nil {
		return nil, fmt.Errorf("missing site")
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *siteRepo) GetByCode(dbc dbctx.Context, siteCode string) (*types.Site, error) {
	if siteCode == "" {
		return nil, fmt.Errorf("missing site_code")
	}
	var out types.Site
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("site_code = ?", siteCode).
		First(&out).Error
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *siteRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Site, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	var out []*types.Site
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Site{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *siteRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing site_id")
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Site{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerr.ErrNotFound
	}
	return nil
}

func (r *siteRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing site_id")
	}
	res := r.tx(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.Site{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerr.ErrNotFound
	}
	return nil
}
