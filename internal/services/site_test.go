package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/brenlab/bren-backend/internal/data/repos"
	pkgerr "github.com/brenlab/bren-backend/internal/pkg/errors"
)

func TestNormalizeDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://Shop.Example.com/", "shop.example.com"},
		{"http://example.com/path?q=1", "example.com"},
		{"  example.com.  ", "example.com"},
		{"example.com", "example.com"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := normalizeDomain(tc.in); got != tc.want {
			t.Fatalf("normalizeDomain(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRegisterSite(t *testing.T) {
	db := newTestDB(t)
	log := mustTestLogger(t)
	svc := NewSiteService(repos.NewSiteRepo(db, log), noopAudit{}, log)
	userID := uuid.New()

	site, err := svc.Register(context.Background(), userID, "", "https://myshop.example.com/")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if site.PrimaryDomain != "myshop.example.com" {
		t.Fatalf("domain = %q", site.PrimaryDomain)
	}
	if site.SiteName != "myshop.example.com" {
		t.Fatalf("name should default to domain, got %q", site.SiteName)
	}
	if !strings.HasPrefix(site.SiteCode, "ws") || len(site.SiteCode) < 10 {
		t.Fatalf("site_code = %q", site.SiteCode)
	}

	// Ownership: a stranger cannot look the site up.
	if _, err := svc.GetOwned(context.Background(), uuid.New(), site.SiteCode); err != pkgerr.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetOwned(context.Background(), userID, site.SiteCode); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
}

func TestSiteRenameAndDelete(t *testing.T) {
	db := newTestDB(t)
	log := mustTestLogger(t)
	svc := NewSiteService(repos.NewSiteRepo(db, log), noopAudit{}, log)
	userID := uuid.New()

	site, err := svc.Register(context.Background(), userID, "shop", "example.com")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Rename(context.Background(), userID, site.SiteCode, "  "); err != pkgerr.ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.Rename(context.Background(), uuid.New(), site.SiteCode, "hijacked"); err != pkgerr.ErrNotFound {
		t.Fatalf("stranger rename: expected ErrNotFound, got %v", err)
	}
	renamed, err := svc.Rename(context.Background(), userID, site.SiteCode, "New Shop")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.SiteName != "New Shop" {
		t.Fatalf("site_name = %q", renamed.SiteName)
	}

	if err := svc.Delete(context.Background(), uuid.New(), site.SiteCode); err != pkgerr.ErrNotFound {
		t.Fatalf("stranger delete: expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), userID, site.SiteCode); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.GetOwned(context.Background(), userID, site.SiteCode); err != pkgerr.ErrNotFound {
		t.Fatalf("deleted site still visible: %v", err)
	}
}

func TestRegisterSiteRejectsEmptyDomain(t *testing.T) {
	db := newTestDB(t)
	log := mustTestLogger(t)
	svc := NewSiteService(repos.NewSiteRepo(db, log), noopAudit{}, log)

	if _, err := svc.Register(context.Background(), uuid.New(), "shop", "   "); err != pkgerr.ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
