package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brenlab/bren-backend/internal/data/repos"
	types "github.com/brenlab/bren-backend/internal/domain"
	"github.com/brenlab/bren-backend/internal/pkg/dbctx"
	pkgerr "github.com/brenlab/bren-backend/internal/pkg/errors"
	"github.com/brenlab/bren-backend/internal/platform/logger"
)

type SiteService interface {
	Register(ctx context.Context, userID uuid.UUID, siteName, domain string) (*types.Site, error)
	List(ctx context.Context, userID uuid.UUID) ([]*types.Site, error)
	GetOwned(ctx context.Context, userID uuid.UUID, siteCode string) (*types.Site, error)
	Rename(ctx context.Context, userID uuid.UUID, siteCode, siteName string) (*types.Site, error)
	Delete(ctx context.Context, userID uuid.UUID, siteCode string) error
}

type siteService struct {
	log   *logger.Logger
	sites repos.SiteRepo
	audit AuditService
}

func NewSiteService(sites repos.SiteRepo, audit AuditService, log *logger.Logger) SiteService {
	return &siteService{
		log:   log.With("service", "SiteService"),
		sites: sites,
		audit: audit,
	}
}

func (s *siteService) Register(ctx context.Context, userID uuid.UUID, siteName, domain string) (*types.Site, error) {
	if userID == uuid.Nil {
		return nil, pkgerr.ErrUnauthorized
	}
	domain = normalizeDomain(domain)
	if domain == "" {
		return nil, pkgerr.ErrInvalidArgument
	}
	if strings.TrimSpace(siteName) == "" {
		siteName = domain
	}
	row := &types.Site{
		ID:            uuid.New(),
		UserID:        userID,
		SiteCode:      newSiteCode(),
		SiteName:      strings.TrimSpace(siteName),
		PrimaryDomain: domain,
	}
	created, err := s.sites.Create(dbctx.Context{Ctx: ctx}, row)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &userID, "website_added", map[string]interface{}{
		"site_code": row.SiteCode,
		"domain":    domain,
	})
	return created, nil
}

func (s *siteService) List(ctx context.Context, userID uuid.UUID) ([]*types.Site, error) {
	return s.sites.ListByUser(dbctx.Context{Ctx: ctx}, userID)
}

func (s *siteService) GetOwned(ctx context.Context, userID uuid.UUID, siteCode string) (*types.Site, error) {
	row, err := s.sites.GetByCode(dbctx.Context{Ctx: ctx}, siteCode)
	if err != nil {
		return nil, err
	}
	if row.UserID != userID {
		return nil, pkgerr.ErrNotFound
	}
	return row, nil
}

func (s *siteService) Rename(ctx context.Context, userID uuid.UUID, siteCode, siteName string) (*types.Site, error) {
	siteName = strings.TrimSpace(siteName)
	if siteName == "" {
		return nil, pkgerr.ErrInvalidArgument
	}
	row, err := s.GetOwned(ctx, userID, siteCode)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.sites.UpdateFields(dbc, row.ID, map[string]interface{}{"site_name": siteName}); err != nil {
		return nil, err
	}
	return s.sites.GetByCode(dbc, siteCode)
}

func (s *siteService) Delete(ctx context.Context, userID uuid.UUID, siteCode string) error {
	row, err := s.GetOwned(ctx, userID, siteCode)
	if err != nil {
		return err
	}
	if err := s.sites.Delete(dbctx.Context{Ctx: ctx}, row.ID); err != nil {
		return err
	}
	s.audit.Record(ctx, &userID, "website_removed", map[string]interface{}{
		"site_code": siteCode,
	})
	return nil
}

// normalizeDomain reduces whatever the user pasted (full URL, trailing
// slashes, mixed case) to a bare lowercase host.
func normalizeDomain(domain string) string {
	d := strings.TrimSpace(strings.ToLower(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return strings.TrimSuffix(d, ".")
}

func newSiteCode() string {
	return fmt.Sprintf("ws%d%s", time.Now().Unix(), strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
