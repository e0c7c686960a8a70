package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/brenlab/bren-backend/internal/ai/extract"
	"github.com/brenlab/bren-backend/internal/ai/invoke"
	"github.com/brenlab/bren-backend/internal/ai/prompt"
	"github.com/brenlab/bren-backend/internal/ai/provider"
	"github.com/brenlab/bren-backend/internal/data/repos"
	types "github.com/brenlab/bren-backend/internal/domain"
	"github.com/brenlab/bren-backend/internal/pkg/dbctx"
	pkgerr "github.com/brenlab/bren-backend/internal/pkg/errors"
	"github.com/brenlab/bren-backend/internal/platform/logger"
	"github.com/brenlab/bren-backend/internal/pricing"
)

const (
	maxMessageLength = 2000
	duplicateWindow  = time.Second
	historyLimit     = 30

	lowBalanceNotice = "Your balance is too low to run an AI request. Please top up your wallet and try again."
	errorNotice      = "Something went wrong while generating a response. Please try again."
	busyNotice       = "The AI models are busy right now. Please try again in a moment."
)

// SubmitInput is one turn entering the pipeline. Role defaults to user;
// system turns are recorded as completed notes and never reach the AI.
type SubmitInput struct {
	ThreadID       uuid.UUID
	UserID         uuid.UUID
	Role           string
	Content        string
	PreferredModel string
	Images         []provider.ImageInput
	AutoDeploy     bool
}

// SubmitResult returns both rows the pipeline wrote. The assistant message
// carries the final status; callers stream the intermediate states via the
// hub.
type SubmitResult struct {
	UserMessage      *types.ChatMessage
	AssistantMessage *types.ChatMessage
}

type MessageService interface {
	Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error)
	// Status is the polling fallback for clients that cannot hold an SSE
	// stream open.
	Status(ctx context.Context, userID, messageID uuid.UUID) (*types.ChatMessage, error)
}

// Invoker is satisfied by invoke.Invoker; narrowed for tests.
type Invoker interface {
	Run(ctx context.Context, req invoke.Request) (*invoke.Result, error)
}

type messageService struct {
	log      *logger.Logger
	threads  repos.ThreadRepo
	messages repos.MessageRepo
	scripts  repos.ScriptRepo
	wallet   WalletService
	deployer ScriptService
	invoker  Invoker
	notifier MessageNotifier
	audit    AuditService
}

func NewMessageService(
	threads repos.ThreadRepo,
	messages repos.MessageRepo,
	scripts repos.ScriptRepo,
	wallet WalletService,
	deployer ScriptService,
	invoker Invoker,
	notifier MessageNotifier,
	audit AuditService,
	log *logger.Logger,
) MessageService {
	return &messageService{
		log:      log.With("service", "MessageService"),
		threads:  threads,
		messages: messages,
		scripts:  scripts,
		wallet:   wallet,
		deployer: deployer,
		invoker:  invoker,
		notifier: notifier,
		audit:    audit,
	}
}

func (s *messageService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, pkgerr.ErrInvalidArgument
	}
	content = clampContent(content)

	role := in.Role
	if role == "" {
		role = types.RoleUser
	}
	if role != types.RoleUser && role != types.RoleSystem {
		return nil, pkgerr.ErrInvalidArgument
	}

	dbc := dbctx.Context{Ctx: ctx}
	thread, err := s.threads.GetByID(dbc, in.ThreadID)
	if err != nil {
		return nil, err
	}
	if thread.UserID != in.UserID {
		return nil, pkgerr.ErrNotFound
	}

	dup, err := s.messages.HasRecentDuplicate(dbc, in.UserID, in.ThreadID, role, content, duplicateWindow)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, pkgerr.ErrDuplicateMessage
	}

	// System turns are notes on the thread: persisted completed, no
	// assistant reply, no billing.
	if role == types.RoleSystem {
		sysMsg := &types.ChatMessage{
			ID:       uuid.New(),
			ThreadID: in.ThreadID,
			UserID:   in.UserID,
			Role:     types.RoleSystem,
			Status:   types.MessageStatusCompleted,
			Content:  content,
		}
		if _, err := s.messages.Create(dbc, []*types.ChatMessage{sysMsg}); err != nil {
			return nil, err
		}
		if err := s.threads.TouchLastMessage(dbc, thread.ID, time.Now().UTC()); err != nil {
			s.log.Warn("touch last message failed", "thread_id", thread.ID, "error", err.Error())
		}
		return &SubmitResult{UserMessage: sysMsg}, nil
	}

	// First message names the thread. Best effort; a failed rename never
	// blocks the message.
	if thread.Title == "" {
		if err := s.threads.UpdateTitle(dbc, thread.ID, clampTitle(content)); err != nil {
			s.log.Warn("thread title update failed", "thread_id", thread.ID, "error", err.Error())
		}
	}

	now := time.Now().UTC()
	userMsg := &types.ChatMessage{
		ID:       uuid.New(),
		ThreadID: in.ThreadID,
		UserID:   in.UserID,
		Role:     types.RoleUser,
		Status:   types.MessageStatusCompleted,
		Content:  content,
	}
	assistantMsg := &types.ChatMessage{
		ID:       uuid.New(),
		ThreadID: in.ThreadID,
		UserID:   in.UserID,
		Role:     types.RoleAssistant,
		Status:   types.MessageStatusPending,
	}
	if _, err := s.messages.Create(dbc, []*types.ChatMessage{userMsg, assistantMsg}); err != nil {
		return nil, err
	}
	if err := s.threads.TouchLastMessage(dbc, thread.ID, now); err != nil {
		s.log.Warn("touch last message failed", "thread_id", thread.ID, "error", err.Error())
	}
	s.notifier.StatusChanged(ctx, in.ThreadID, assistantMsg.ID, types.MessageStatusPending, "", nil)

	// The generation must survive the caller hanging up once it has
	// started; billing depends on the final write landing.
	detached := context.WithoutCancel(ctx)
	if err := s.runGeneration(detached, thread, assistantMsg, in, content); err != nil {
		// Deploy failure is the one pipeline error the caller must see;
		// the user message and the failed assistant row are already
		// persisted.
		return nil, err
	}

	final, err := s.messages.GetByID(dbctx.Context{Ctx: detached}, assistantMsg.ID)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{UserMessage: userMsg, AssistantMessage: final}, nil
}

func (s *messageService) Status(ctx context.Context, userID, messageID uuid.UUID) (*types.ChatMessage, error) {
	msg, err := s.messages.GetByID(dbctx.Context{Ctx: ctx}, messageID)
	if err != nil {
		return nil, err
	}
	if msg.UserID != userID {
		return nil, pkgerr.ErrNotFound
	}
	return msg, nil
}

func (s *messageService) runGeneration(ctx context.Context, thread *types.ChatThread, msg *types.ChatMessage, in SubmitInput, content string) error {
	dbc := dbctx.Context{Ctx: ctx}

	s.transition(ctx, msg, types.MessageStatusInProgress, map[string]interface{}{
		"status": types.MessageStatusInProgress,
	}, "")

	ok, err := s.wallet.HasMinimumBalance(ctx, in.UserID)
	if err != nil {
		s.fail(ctx, msg, errorNotice, "wallet check: "+err.Error())
		return nil
	}
	if !ok {
		// Not an error: the answer the user gets is the notice itself.
		s.complete(ctx, dbc, msg, lowBalanceNotice, "", map[string]interface{}{
			"balance_exceeded": true,
		})
		return nil
	}

	system := s.buildSystemPrompt(ctx, dbc, thread, in)
	result, err := s.invoker.Run(ctx, invoke.Request{
		PreferredModel: in.PreferredModel,
		System:         system,
		User:           content,
		Images:         in.Images,
	})
	if err != nil {
		var exhausted *invoke.ExhaustedError
		if errors.As(err, &exhausted) && exhausted.AllTransient {
			s.fail(ctx, msg, busyNotice, err.Error())
		} else {
			s.fail(ctx, msg, errorNotice, err.Error())
		}
		return nil
	}

	resp := extract.Parse(result.Text)
	cost := pricing.Calculate(result.Model, pricing.Usage{
		InputTokens:    result.Usage.InputTokens,
		OutputTokens:   result.Usage.OutputTokens,
		ThoughtsTokens: result.Usage.ThoughtsTokens,
	})

	metadata := map[string]interface{}{
		"model":         result.Model,
		"fallback_used": result.FallbackUsed,
		"attempts":      result.Attempts,
		"usage": map[string]interface{}{
			"input_tokens":    result.Usage.InputTokens,
			"output_tokens":   result.Usage.OutputTokens,
			"thoughts_tokens": result.Usage.ThoughtsTokens,
			"total_tokens":    result.Usage.TotalTokens,
		},
	}
	if resp.HasChanges() {
		metadata["changes"] = resp.Changes
	}
	if !cost.PricingAvailable {
		metadata["pricing_not_available"] = true
	} else {
		metadata["cost_krw"] = cost.TotalKRW.String()
	}

	body := resp.Message
	if cost.PricingAvailable && cost.TotalUSD.IsPositive() {
		_, err := s.wallet.Charge(ctx, in.UserID, repos.WalletCharge{
			AmountUSD:      cost.TotalUSD,
			ModelName:      result.Model,
			InputTokens:    result.Usage.InputTokens,
			OutputTokens:   result.Usage.OutputTokens,
			ThoughtsTokens: result.Usage.ThoughtsTokens,
			ThreadID:       &thread.ID,
			MessageID:      &msg.ID,
		})
		if err == pkgerr.ErrInsufficientFunds {
			// The generated answer is discarded: the user did not pay
			// for it, so they do not receive it.
			s.complete(ctx, dbc, msg, lowBalanceNotice, result.Model, map[string]interface{}{
				"balance_exceeded": true,
			})
			return nil
		}
		if err != nil {
			s.fail(ctx, msg, errorNotice, "wallet charge: "+err.Error())
			return nil
		}
	}

	if in.AutoDeploy && resp.HasChanges() {
		deployed, err := s.deployer.ApplyChanges(ctx, in.UserID, thread.SiteCode, resp.Changes)
		if err != nil {
			s.fail(ctx, msg, errorNotice, "auto deploy: "+err.Error())
			return fmt.Errorf("auto deploy: %w", err)
		}
		metadata["deployed_version"] = deployed.Version
	}

	costUSD := cost.TotalUSD
	s.completeWithCost(ctx, dbc, msg, body, result.Model, costUSD, metadata)

	s.audit.Record(ctx, &in.UserID, "message_created", map[string]interface{}{
		"thread_id":     thread.ID.String(),
		"message_id":    msg.ID.String(),
		"model":         result.Model,
		"fallback_used": result.FallbackUsed,
	})
	return nil
}

func (s *messageService) buildSystemPrompt(ctx context.Context, dbc dbctx.Context, thread *types.ChatThread, in SubmitInput) string {
	pc := prompt.Context{
		SiteName:   thread.SiteCode,
		ImageCount: len(in.Images),
	}
	if active, err := s.scripts.GetActive(dbc, thread.SiteCode); err == nil {
		pc.CurrentJS = active.JavascriptContent
		pc.CurrentCSS = active.CSSContent
	}
	if history, err := s.messages.ListByThread(dbc, thread.ID, historyLimit); err == nil {
		pc.History = renderHistory(history)
	}
	return prompt.BuildSystem(pc)
}

// renderHistory flattens prior turns into the prompt. The pending assistant
// placeholder is skipped.
func renderHistory(messages []*types.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		if m.Role == types.RoleAssistant && !types.TerminalStatus(m.Status) {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

func (s *messageService) transition(ctx context.Context, msg *types.ChatMessage, status string, eventMeta map[string]interface{}, body string) {
	updates := map[string]interface{}{"status": status}
	if err := s.messages.UpdateFields(dbctx.Context{Ctx: ctx}, msg.ID, updates); err != nil {
		s.log.Warn("status update failed", "message_id", msg.ID, "status", status, "error", err.Error())
	}
	s.notifier.StatusChanged(ctx, msg.ThreadID, msg.ID, status, body, eventMeta)
}

func (s *messageService) complete(ctx context.Context, dbc dbctx.Context, msg *types.ChatMessage, body, model string, metadata map[string]interface{}) {
	s.completeWithCost(ctx, dbc, msg, body, model, decimal.Zero, metadata)
}

func (s *messageService) completeWithCost(ctx context.Context, dbc dbctx.Context, msg *types.ChatMessage, body, model string, costUSD decimal.Decimal, metadata map[string]interface{}) {
	updates := map[string]interface{}{
		"status":  types.MessageStatusCompleted,
		"content": body,
	}
	if model != "" {
		updates["model"] = model
	}
	updates["cost_usd"] = costUSD
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			updates["metadata"] = datatypes.JSON(raw)
		}
	}
	if err := s.messages.UpdateFields(dbc, msg.ID, updates); err != nil {
		s.log.Error("final message update failed", "message_id", msg.ID, "error", err.Error())
	}
	s.notifier.StatusChanged(ctx, msg.ThreadID, msg.ID, types.MessageStatusCompleted, body, metadata)
}

func (s *messageService) fail(ctx context.Context, msg *types.ChatMessage, body, reason string) {
	s.log.Error("message pipeline failed", "message_id", msg.ID, "reason", reason)
	updates := map[string]interface{}{
		"status":  types.MessageStatusError,
		"content": body,
	}
	if raw, err := json.Marshal(map[string]interface{}{"error": reason}); err == nil {
		updates["metadata"] = datatypes.JSON(raw)
	}
	if err := s.messages.UpdateFields(dbctx.Context{Ctx: ctx}, msg.ID, updates); err != nil {
		s.log.Error("error status update failed", "message_id", msg.ID, "error", err.Error())
	}
	s.notifier.StatusChanged(ctx, msg.ThreadID, msg.ID, types.MessageStatusError, body, nil)
	s.audit.Record(ctx, &msg.UserID, "message_failed", map[string]interface{}{
		"message_id": msg.ID.String(),
		"reason":     reason,
	})
}

func clampContent(content string) string {
	runes := []rune(content)
	if len(runes) > maxMessageLength {
		return string(runes[:maxMessageLength])
	}
	return content
}
