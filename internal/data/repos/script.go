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

type ScriptRepo interface {
	GetActive(dbc dbctx.Context, siteCode string) (*types.SiteScript, error)
	History(dbc dbctx.Context, userID uuid.UUID, siteCode string, limit int) ([]*types.SiteScript, error)
	DeployVersion(dbc dbctx.Context, userID uuid.UUID, siteCode, js, css string) (*types.SiteScript, error)
}

type scriptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScriptRepo(db *gorm.DB, log *logger.Logger) ScriptRepo {
	return &scriptRepo{db: db, log: log.With("repo", "ScriptRepo")}
}

func (r *scriptRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *scriptRepo) GetActive(dbc dbctx.Context, siteCode string) (*types.SiteScript, error) {
	if siteCode == "" {
		return nil, fmt.Errorf("missing site_code")
	}
	var out types.SiteScript
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("site_code = ? AND is_active = ?", siteCode, true).
		Order("version DESC").
		First(&out).Error
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *scriptRepo) History(dbc dbctx.Context, userID uuid.UUID, siteCode string, limit int) ([]*types.SiteScript, error) {
	if userID == uuid.Nil || siteCode == "" {
		return nil, fmt.Errorf("missing user_id or site_code")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []*types.SiteScript
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.SiteScript{}).
		Where("user_id = ? AND site_code = ?", userID, siteCode).
		Order("version DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeployVersion writes a new script version and flips it active in one
// transaction. Version numbers are per-site and monotonic.
func (r *scriptRepo) DeployVersion(dbc dbctx.Context, userID uuid.UUID, siteCode, js, css string) (*types.SiteScript, error) {
	if userID == uuid.Nil || siteCode == "" {
		return nil, fmt.Errorf("missing user_id or site_code")
	}
	base := r.tx(dbc)
	var row *types.SiteScript
	err := base.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var maxVersion int
		if err := tx.Model(&types.SiteScript{}).
			Where("site_code = ?", siteCode).
			Select("COALESCE(MAX(version), 0)").
			Scan(&maxVersion).Error; err != nil {
			return err
		}
		if err := tx.Model(&types.SiteScript{}).
			Where("site_code = ? AND is_active = ?", siteCode, true).
			Updates(map[string]interface{}{
				"is_active":  false,
				"updated_at": time.Now().UTC(),
			}).Error; err != nil {
			return err
		}
		row = &types.SiteScript{
			ID:                uuid.New(),
			UserID:            userID,
			SiteCode:          siteCode,
			JavascriptContent: js,
			CSSContent:        css,
			Version:           maxVersion + 1,
			IsActive:          true,
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}
