package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/brenlab/bren-backend/internal/ai/extract"
	"github.com/brenlab/bren-backend/internal/data/repos"
	types "github.com/brenlab/bren-backend/internal/domain"
	"github.com/brenlab/bren-backend/internal/pkg/dbctx"
	pkgerr "github.com/brenlab/bren-backend/internal/pkg/errors"
	"github.com/brenlab/bren-backend/internal/platform/logger"
)

const maxScriptBytes = 100 * 1024

// ScriptBundle is the publicly served active code for a site.
type ScriptBundle struct {
	SiteCode   string `json:"site_code"`
	Javascript string `json:"javascript"`
	CSS        string `json:"css"`
	Version    int    `json:"version"`
}

type ScriptService interface {
	Deploy(ctx context.Context, userID uuid.UUID, siteCode, js, css string) (*types.SiteScript, error)
	// ApplyChanges merges assistant-proposed diffs into the active scripts
	// and deploys the result as a new version.
	ApplyChanges(ctx context.Context, userID uuid.UUID, siteCode string, changes *extract.Changes) (*types.SiteScript, error)
	History(ctx context.Context, userID uuid.UUID, siteCode string, limit int) ([]*types.SiteScript, error)
	Current(ctx context.Context, userID uuid.UUID, siteCode string) (*types.SiteScript, error)
	// ActiveBundle serves the deployed code to the public loader; no auth.
	ActiveBundle(ctx context.Context, siteCode string) (*ScriptBundle, error)
}

type scriptService struct {
	log     *logger.Logger
	scripts repos.ScriptRepo
	sites   repos.SiteRepo
	audit   AuditService
}

func NewScriptService(scripts repos.ScriptRepo, sites repos.SiteRepo, audit AuditService, log *logger.Logger) ScriptService {
	return &scriptService{
		log:     log.With("service", "ScriptService"),
		scripts: scripts,
		sites:   sites,
		audit:   audit,
	}
}

func (s *scriptService) Deploy(ctx context.Context, userID uuid.UUID, siteCode, js, css string) (*types.SiteScript, error) {
	if err := s.checkOwnership(ctx, userID, siteCode); err != nil {
		return nil, err
	}
	if err := validateScriptSize(js); err != nil {
		return nil, err
	}
	if err := validateScriptSize(css); err != nil {
		return nil, err
	}
	row, err := s.scripts.DeployVersion(dbctx.Context{Ctx: ctx}, userID, siteCode, js, css)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &userID, "script_deployed", map[string]interface{}{
		"site_code": siteCode,
		"version":   row.Version,
	})
	return row, nil
}

func (s *scriptService) ApplyChanges(ctx context.Context, userID uuid.UUID, siteCode string, changes *extract.Changes) (*types.SiteScript, error) {
	if changes == nil || (changes.Javascript == nil && changes.CSS == nil) {
		return nil, pkgerr.ErrInvalidArgument
	}
	js, css := "", ""
	if current, err := s.scripts.GetActive(dbctx.Context{Ctx: ctx}, siteCode); err == nil {
		js, css = current.JavascriptContent, current.CSSContent
	} else if err != pkgerr.ErrNotFound {
		return nil, err
	}
	if changes.Javascript != nil {
		merged, err := applyUnifiedDiff(js, changes.Javascript.Diff)
		if err != nil {
			return nil, fmt.Errorf("apply javascript diff: %w", err)
		}
		js = merged
	}
	if changes.CSS != nil {
		merged, err := applyUnifiedDiff(css, changes.CSS.Diff)
		if err != nil {
			return nil, fmt.Errorf("apply css diff: %w", err)
		}
		css = merged
	}
	return s.Deploy(ctx, userID, siteCode, js, css)
}

func (s *scriptService) History(ctx context.Context, userID uuid.UUID, siteCode string, limit int) ([]*types.SiteScript, error) {
	if err := s.checkOwnership(ctx, userID, siteCode); err != nil {
		return nil, err
	}
	return s.scripts.History(dbctx.Context{Ctx: ctx}, userID, siteCode, limit)
}

func (s *scriptService) Current(ctx context.Context, userID uuid.UUID, siteCode string) (*types.SiteScript, error) {
	if err := s.checkOwnership(ctx, userID, siteCode); err != nil {
		return nil, err
	}
	return s.scripts.GetActive(dbctx.Context{Ctx: ctx}, siteCode)
}

func (s *scriptService) ActiveBundle(ctx context.Context, siteCode string) (*ScriptBundle, error) {
	row, err := s.scripts.GetActive(dbctx.Context{Ctx: ctx}, siteCode)
	if err != nil {
		return nil, err
	}
	return &ScriptBundle{
		SiteCode:   siteCode,
		Javascript: row.JavascriptContent,
		CSS:        row.CSSContent,
		Version:    row.Version,
	}, nil
}

func (s *scriptService) checkOwnership(ctx context.Context, userID uuid.UUID, siteCode string) error {
	if userID == uuid.Nil || strings.TrimSpace(siteCode) == "" {
		return pkgerr.ErrInvalidArgument
	}
	site, err := s.sites.GetByCode(dbctx.Context{Ctx: ctx}, siteCode)
	if err != nil {
		return err
	}
	if site.UserID != userID {
		return pkgerr.ErrNotFound
	}
	return nil
}

func validateScriptSize(content string) error {
	if len(content) > maxScriptBytes {
		return fmt.Errorf("%w: script exceeds %d bytes", pkgerr.ErrInvalidArgument, maxScriptBytes)
	}
	return nil
}
