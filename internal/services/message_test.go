package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brenlab/bren-backend/internal/ai/invoke"
	"github.com/brenlab/bren-backend/internal/ai/provider"
	"github.com/brenlab/bren-backend/internal/data/repos"
	types "github.com/brenlab/bren-backend/internal/domain"
	pkgerr "github.com/brenlab/bren-backend/internal/pkg/errors"
)

type messageFixture struct {
	db       *gorm.DB
	svc      MessageService
	invoker  *fakeInvoker
	notifier *captureNotifier
	wallet   WalletService
	userID   uuid.UUID
	thread   *types.ChatThread
}

func newMessageFixture(t *testing.T, inv *fakeInvoker, balance string) *messageFixture {
	t.Helper()
	db := newTestDB(t)
	log := mustTestLogger(t)
	userID := uuid.New()
	thread := seedThread(t, db, userID, "ws1site")
	seedSite(t, db, userID, "ws1site")
	if balance != "" {
		seedWalletBalance(t, db, userID, balance)
	}

	threadRepo := repos.NewThreadRepo(db, log)
	messageRepo := repos.NewMessageRepo(db, log)
	scriptRepo := repos.NewScriptRepo(db, log)
	siteRepo := repos.NewSiteRepo(db, log)
	walletRepo := repos.NewWalletRepo(db, log)

	wallet := NewWalletService(walletRepo, noopAudit{}, log)
	scripts := NewScriptService(scriptRepo, siteRepo, noopAudit{}, log)
	notifier := &captureNotifier{}

	svc := NewMessageService(threadRepo, messageRepo, scriptRepo, wallet, scripts, inv, notifier, noopAudit{}, log)
	return &messageFixture{
		db:       db,
		svc:      svc,
		invoker:  inv,
		notifier: notifier,
		wallet:   wallet,
		userID:   userID,
		thread:   thread,
	}
}

func jsonResult(model, text string) *invoke.Result {
	return &invoke.Result{
		Model: model,
		Text:  text,
		Usage: provider.Usage{InputTokens: 1000, OutputTokens: 500, TotalTokens: 1500},
	}
}

func TestSubmitHappyPath(t *testing.T) {
	inv := &fakeInvoker{result: jsonResult("gemini-2.5-flash",
		`{"message": "Banner updated.", "changes": {"css": {"diff": ".banner { color: red; }"}}}`)}
	fx := newMessageFixture(t, inv, "5.00")

	res, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID: fx.thread.ID,
		UserID:   fx.userID,
		Content:  "make the banner red",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.UserMessage.Role != types.RoleUser || res.UserMessage.Status != types.MessageStatusCompleted {
		t.Fatalf("user message: %+v", res.UserMessage)
	}
	ai := res.AssistantMessage
	if ai.Status != types.MessageStatusCompleted {
		t.Fatalf("assistant status = %s", ai.Status)
	}
	if ai.Content != "Banner updated." {
		t.Fatalf("assistant content = %q", ai.Content)
	}
	if ai.Model != "gemini-2.5-flash" {
		t.Fatalf("model = %q", ai.Model)
	}
	// 1000 in * 0.30 + 500 out * 2.50 per million = 0.00155
	if !ai.CostUSD.Equal(decimal.RequireFromString("0.00155")) {
		t.Fatalf("cost = %s", ai.CostUSD)
	}
	if !strings.Contains(string(ai.Metadata), `"changes"`) {
		t.Fatalf("metadata missing changes: %s", ai.Metadata)
	}

	got := fx.notifier.statuses()
	want := []string{types.MessageStatusPending, types.MessageStatusInProgress, types.MessageStatusCompleted}
	if len(got) != len(want) {
		t.Fatalf("events = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	w, err := fx.wallet.Get(context.Background(), fx.userID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if !w.BalanceUSD.Equal(decimal.RequireFromString("4.99845")) {
		t.Fatalf("balance after charge = %s", w.BalanceUSD)
	}
}

func TestSubmitEmptyContentRejected(t *testing.T) {
	fx := newMessageFixture(t, &fakeInvoker{}, "5.00")
	_, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID: fx.thread.ID,
		UserID:   fx.userID,
		Content:  "   ",
	})
	if err != pkgerr.ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if fx.invoker.calls != 0 {
		t.Fatalf("invoker should not run")
	}
}

func TestSubmitDuplicateRejected(t *testing.T) {
	inv := &fakeInvoker{result: jsonResult("gemini-2.5-flash", `{"message": "ok"}`)}
	fx := newMessageFixture(t, inv, "5.00")
	in := SubmitInput{ThreadID: fx.thread.ID, UserID: fx.userID, Content: "same message"}

	if _, err := fx.svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	_, err := fx.svc.Submit(context.Background(), in)
	if err != pkgerr.ErrDuplicateMessage {
		t.Fatalf("expected ErrDuplicateMessage, got %v", err)
	}
}

func TestSubmitSetsThreadTitleFromFirstMessage(t *testing.T) {
	inv := &fakeInvoker{result: jsonResult("gemini-2.5-flash", `{"message": "ok"}`)}
	fx := newMessageFixture(t, inv, "5.00")

	if _, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID: fx.thread.ID,
		UserID:   fx.userID,
		Content:  "first message becomes the title",
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	var thread types.ChatThread
	if err := fx.db.Where("id = ?", fx.thread.ID).First(&thread).Error; err != nil {
		t.Fatalf("reload thread: %v", err)
	}
	if thread.Title != "first message becomes the title" {
		t.Fatalf("title = %q", thread.Title)
	}
}

func TestSubmitLowBalanceShortCircuits(t *testing.T) {
	inv := &fakeInvoker{result: jsonResult("gemini-2.5-flash", `{"message": "should not run"}`)}
	fx := newMessageFixture(t, inv, "0.001")

	res, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID: fx.thread.ID,
		UserID:   fx.userID,
		Content:  "do something expensive",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ai := res.AssistantMessage
	if ai.Status != types.MessageStatusCompleted {
		t.Fatalf("status = %s, low balance is a business outcome, not an error", ai.Status)
	}
	if ai.Content != lowBalanceNotice {
		t.Fatalf("content = %q", ai.Content)
	}
	if !ai.CostUSD.IsZero() {
		t.Fatalf("cost = %s, want 0", ai.CostUSD)
	}
	if fx.invoker.calls != 0 {
		t.Fatalf("model must not be invoked below the minimum balance")
	}
}

func TestSubmitInsufficientFundsAtChargeTime(t *testing.T) {
	// Balance clears the pre-check but not the actual bill.
	inv := &fakeInvoker{result: &invoke.Result{
		Model: "gemini-2.5-pro",
		Text:  `{"message": "a very expensive answer"}`,
		Usage: provider.Usage{InputTokens: 1_000_000, OutputTokens: 100_000},
	}}
	fx := newMessageFixture(t, inv, "0.10")

	res, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID: fx.thread.ID,
		UserID:   fx.userID,
		Content:  "summarize everything",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ai := res.AssistantMessage
	if ai.Status != types.MessageStatusCompleted {
		t.Fatalf("status = %s", ai.Status)
	}
	if ai.Content != lowBalanceNotice {
		t.Fatalf("content = %q", ai.Content)
	}
	if !ai.CostUSD.IsZero() {
		t.Fatalf("cost = %s, unpaid answers must not be billed", ai.CostUSD)
	}
	w, _ := fx.wallet.Get(context.Background(), fx.userID)
	if !w.BalanceUSD.Equal(decimal.RequireFromString("0.10")) {
		t.Fatalf("balance changed: %s", w.BalanceUSD)
	}
}

func TestSubmitAllModelsBusy(t *testing.T) {
	inv := &fakeInvoker{err: &invoke.ExhaustedError{Attempts: 7, AllTransient: true}}
	fx := newMessageFixture(t, inv, "5.00")

	res, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID: fx.thread.ID,
		UserID:   fx.userID,
		Content:  "hello",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ai := res.AssistantMessage
	if ai.Status != types.MessageStatusError {
		t.Fatalf("status = %s", ai.Status)
	}
	if ai.Content != busyNotice {
		t.Fatalf("content = %q", ai.Content)
	}
	got := fx.notifier.statuses()
	if got[len(got)-1] != types.MessageStatusError {
		t.Fatalf("last event = %s", got[len(got)-1])
	}
}

func TestSubmitUnknownModelPricing(t *testing.T) {
	inv := &fakeInvoker{result: jsonResult("experimental-model", `{"message": "free lunch"}`)}
	fx := newMessageFixture(t, inv, "5.00")

	res, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID: fx.thread.ID,
		UserID:   fx.userID,
		Content:  "hello",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ai := res.AssistantMessage
	if ai.Status != types.MessageStatusCompleted {
		t.Fatalf("status = %s", ai.Status)
	}
	if !ai.CostUSD.IsZero() {
		t.Fatalf("unknown model must cost zero, got %s", ai.CostUSD)
	}
	if !strings.Contains(string(ai.Metadata), "pricing_not_available") {
		t.Fatalf("metadata missing pricing marker: %s", ai.Metadata)
	}
}

func TestSubmitAutoDeployAppliesChanges(t *testing.T) {
	inv := &fakeInvoker{result: jsonResult("gemini-2.5-flash",
		`{"message": "Deployed.", "changes": {"javascript": {"diff": "console.log('v1');"}}}`)}
	fx := newMessageFixture(t, inv, "5.00")

	res, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID:   fx.thread.ID,
		UserID:     fx.userID,
		Content:    "add a log line",
		AutoDeploy: true,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.AssistantMessage.Status != types.MessageStatusCompleted {
		t.Fatalf("status = %s", res.AssistantMessage.Status)
	}
	var script types.SiteScript
	if err := fx.db.Where("site_code = ? AND is_active = ?", "ws1site", true).First(&script).Error; err != nil {
		t.Fatalf("deployed script: %v", err)
	}
	if script.JavascriptContent != "console.log('v1');" {
		t.Fatalf("deployed js = %q", script.JavascriptContent)
	}
	if !strings.Contains(string(res.AssistantMessage.Metadata), `"deployed_version":1`) {
		t.Fatalf("metadata missing deployed_version: %s", res.AssistantMessage.Metadata)
	}
}

func TestSubmitAutoDeployFailureFailsMessage(t *testing.T) {
	// A hunk that cannot apply to empty current content.
	inv := &fakeInvoker{result: jsonResult("gemini-2.5-flash",
		`{"message": "patching", "changes": {"javascript": {"diff": "@@ -5,2 +5,2 @@\n-old line\n+new line"}}}`)}
	fx := newMessageFixture(t, inv, "5.00")

	_, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID:   fx.thread.ID,
		UserID:     fx.userID,
		Content:    "patch it",
		AutoDeploy: true,
	})
	if err == nil || !strings.Contains(err.Error(), "auto deploy") {
		t.Fatalf("deploy failure must propagate from Submit, got %v", err)
	}

	// The failure surfaces to the caller, but both rows are still persisted:
	// the user message and the assistant row terminalized as error.
	var rows []*types.ChatMessage
	if err := fx.db.Where("thread_id = ?", fx.thread.ID).Order("created_at ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load messages: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(rows))
	}
	if rows[1].Status != types.MessageStatusError {
		t.Fatalf("auto-deploy failure must fail the message, status = %s", rows[1].Status)
	}
}

func TestSubmitSystemRoleSkipsGeneration(t *testing.T) {
	inv := &fakeInvoker{result: jsonResult("gemini-2.5-flash", `{"message": "ok"}`)}
	fx := newMessageFixture(t, inv, "5.00")

	res, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID: fx.thread.ID,
		UserID:   fx.userID,
		Role:     types.RoleSystem,
		Content:  "script deployed from dashboard",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if inv.calls != 0 {
		t.Fatalf("system turns must not invoke a model, calls = %d", inv.calls)
	}
	if res.AssistantMessage != nil {
		t.Fatalf("system turns must not create an assistant reply")
	}
	if res.UserMessage.Role != types.RoleSystem || res.UserMessage.Status != types.MessageStatusCompleted {
		t.Fatalf("system message = %s/%s", res.UserMessage.Role, res.UserMessage.Status)
	}

	var count int64
	if err := fx.db.Model(&types.ChatMessage{}).Where("thread_id = ?", fx.thread.ID).Count(&count).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 persisted message, got %d", count)
	}
}

func TestSubmitRejectsAssistantRole(t *testing.T) {
	inv := &fakeInvoker{result: jsonResult("gemini-2.5-flash", `{"message": "ok"}`)}
	fx := newMessageFixture(t, inv, "5.00")

	_, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID: fx.thread.ID,
		UserID:   fx.userID,
		Role:     types.RoleAssistant,
		Content:  "forged reply",
	})
	if err != pkgerr.ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSubmitWrongOwnerNotFound(t *testing.T) {
	inv := &fakeInvoker{result: jsonResult("gemini-2.5-flash", `{"message": "ok"}`)}
	fx := newMessageFixture(t, inv, "5.00")

	_, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID: fx.thread.ID,
		UserID:   uuid.New(),
		Content:  "hello",
	})
	if err != pkgerr.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitTruncatesLongContent(t *testing.T) {
	inv := &fakeInvoker{result: jsonResult("gemini-2.5-flash", `{"message": "ok"}`)}
	fx := newMessageFixture(t, inv, "5.00")

	long := strings.Repeat("a", maxMessageLength+500)
	res, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID: fx.thread.ID,
		UserID:   fx.userID,
		Content:  long,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := len([]rune(res.UserMessage.Content)); got != maxMessageLength {
		t.Fatalf("content length = %d, want %d", got, maxMessageLength)
	}
}

func TestStatusEnforcesOwnership(t *testing.T) {
	inv := &fakeInvoker{result: jsonResult("gemini-2.5-flash", `{"message": "ok"}`)}
	fx := newMessageFixture(t, inv, "5.00")

	res, err := fx.svc.Submit(context.Background(), SubmitInput{
		ThreadID: fx.thread.ID,
		UserID:   fx.userID,
		Content:  "hello",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := fx.svc.Status(context.Background(), fx.userID, res.AssistantMessage.ID); err != nil {
		t.Fatalf("owner Status: %v", err)
	}
	if _, err := fx.svc.Status(context.Background(), uuid.New(), res.AssistantMessage.ID); err != pkgerr.ErrNotFound {
		t.Fatalf("expected ErrNotFound for stranger, got %v", err)
	}
}
