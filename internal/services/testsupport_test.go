package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brenlab/bren-backend/internal/ai/invoke"
	types "github.com/brenlab/bren-backend/internal/domain"
	"github.com/brenlab/bren-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// Inline schema because the model tags carry postgres-only defaults.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	ddl := []string{
		`CREATE TABLE chat_thread (
			id TEXT PRIMARY KEY, user_id TEXT NOT NULL, site_code TEXT NOT NULL DEFAULT 'default',
			title TEXT NOT NULL DEFAULT '', last_message_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP, updated_at DATETIME DEFAULT CURRENT_TIMESTAMP, deleted_at DATETIME)`,
		`CREATE TABLE chat_message (
			id TEXT PRIMARY KEY, thread_id TEXT NOT NULL, user_id TEXT NOT NULL,
			role TEXT NOT NULL, status TEXT NOT NULL DEFAULT 'completed',
			content TEXT NOT NULL DEFAULT '', model TEXT NOT NULL DEFAULT '',
			cost_usd NUMERIC NOT NULL DEFAULT 0, metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP, updated_at DATETIME DEFAULT CURRENT_TIMESTAMP, deleted_at DATETIME)`,
		`CREATE TABLE site (
			id TEXT PRIMARY KEY, user_id TEXT NOT NULL, site_code TEXT NOT NULL UNIQUE,
			site_name TEXT NOT NULL DEFAULT '', primary_domain TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP, updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			deleted_at DATETIME)`,
		`CREATE TABLE site_script (
			id TEXT PRIMARY KEY, user_id TEXT NOT NULL, site_code TEXT NOT NULL,
			javascript_content TEXT NOT NULL DEFAULT '', css_content TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 1, is_active NUMERIC NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP, updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			deleted_at DATETIME)`,
		`CREATE TABLE user_token_wallet (
			id TEXT PRIMARY KEY, user_id TEXT NOT NULL UNIQUE,
			balance_usd NUMERIC NOT NULL DEFAULT 0, total_spent_usd NUMERIC NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP, updated_at DATETIME DEFAULT CURRENT_TIMESTAMP)`,
		`CREATE TABLE token_transaction (
			id TEXT PRIMARY KEY, user_id TEXT NOT NULL, type TEXT NOT NULL,
			amount_usd NUMERIC NOT NULL, balance_after_usd NUMERIC NOT NULL,
			model_name TEXT NOT NULL DEFAULT '', input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0, thoughts_tokens INTEGER NOT NULL DEFAULT 0,
			thread_id TEXT, message_id TEXT, source_event_id TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}', created_at DATETIME DEFAULT CURRENT_TIMESTAMP)`,
		`CREATE TABLE system_event (
			id TEXT PRIMARY KEY, user_id TEXT, event_type TEXT NOT NULL,
			event_data TEXT NOT NULL DEFAULT '{}', created_at DATETIME DEFAULT CURRENT_TIMESTAMP)`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func seedThread(t *testing.T, db *gorm.DB, userID uuid.UUID, siteCode string) *types.ChatThread {
	t.Helper()
	row := &types.ChatThread{ID: uuid.New(), UserID: userID, SiteCode: siteCode}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("seed thread: %v", err)
	}
	return row
}

func seedWalletBalance(t *testing.T, db *gorm.DB, userID uuid.UUID, balance string) {
	t.Helper()
	w := types.Wallet{ID: uuid.New(), UserID: userID, BalanceUSD: decimal.RequireFromString(balance)}
	if err := db.Create(&w).Error; err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
}

func seedSite(t *testing.T, db *gorm.DB, userID uuid.UUID, siteCode string) {
	t.Helper()
	row := &types.Site{ID: uuid.New(), UserID: userID, SiteCode: siteCode, SiteName: siteCode, PrimaryDomain: siteCode + ".example.com"}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("seed site: %v", err)
	}
}

type fakeInvoker struct {
	mu      sync.Mutex
	result  *invoke.Result
	err     error
	calls   int
	lastReq invoke.Request
}

func (f *fakeInvoker) Run(_ context.Context, req invoke.Request) (*invoke.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	return f.result, f.err
}

type notifierEvent struct {
	MessageID uuid.UUID
	Status    string
	Body      string
}

type captureNotifier struct {
	mu     sync.Mutex
	events []notifierEvent
}

func (n *captureNotifier) StatusChanged(_ context.Context, _, messageID uuid.UUID, status, body string, _ map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifierEvent{MessageID: messageID, Status: status, Body: body})
}

func (n *captureNotifier) statuses() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Status
	}
	return out
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, *uuid.UUID, string, map[string]interface{}) {}
