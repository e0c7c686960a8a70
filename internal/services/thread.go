package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/brenlab/bren-backend/internal/data/repos"
	types "github.com/brenlab/bren-backend/internal/domain"
	"github.com/brenlab/bren-backend/internal/pkg/dbctx"
	pkgerr "github.com/brenlab/bren-backend/internal/pkg/errors"
	"github.com/brenlab/bren-backend/internal/platform/logger"
)

const maxTitleLength = 200

type ThreadService interface {
	Create(ctx context.Context, userID uuid.UUID, siteCode, title string) (*types.ChatThread, error)
	Get(ctx context.Context, userID, threadID uuid.UUID) (*types.ChatThread, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ChatThread, error)
	Messages(ctx context.Context, userID, threadID uuid.UUID, limit int) ([]*types.ChatMessage, error)
	Rename(ctx context.Context, userID, threadID uuid.UUID, title string) error
	Delete(ctx context.Context, userID, threadID uuid.UUID) error
}

type threadService struct {
	log      *logger.Logger
	threads  repos.ThreadRepo
	messages repos.MessageRepo
	audit    AuditService
}

func NewThreadService(threads repos.ThreadRepo, messages repos.MessageRepo, audit AuditService, log *logger.Logger) ThreadService {
	return &threadService{
		log:      log.With("service", "ThreadService"),
		threads:  threads,
		messages: messages,
		audit:    audit,
	}
}

func (s *threadService) Create(ctx context.Context, userID uuid.UUID, siteCode, title string) (*types.ChatThread, error) {
	if userID == uuid.Nil {
		return nil, pkgerr.ErrUnauthorized
	}
	if siteCode == "" {
		siteCode = "default"
	}
	row := &types.ChatThread{
		ID:       uuid.New(),
		UserID:   userID,
		SiteCode: siteCode,
		Title:    clampTitle(title),
	}
	created, err := s.threads.Create(dbctx.Context{Ctx: ctx}, []*types.ChatThread{row})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &userID, "thread_created", map[string]interface{}{
		"thread_id": row.ID.String(),
		"site_code": siteCode,
	})
	return created[0], nil
}

// Get loads the thread and enforces ownership. A thread belonging to another
// user is reported as not found, not forbidden.
func (s *threadService) Get(ctx context.Context, userID, threadID uuid.UUID) (*types.ChatThread, error) {
	row, err := s.threads.GetByID(dbctx.Context{Ctx: ctx}, threadID)
	if err != nil {
		return nil, err
	}
	if row.UserID != userID {
		return nil, pkgerr.ErrNotFound
	}
	return row, nil
}

func (s *threadService) List(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ChatThread, error) {
	return s.threads.ListByUser(dbctx.Context{Ctx: ctx}, userID, limit)
}

func (s *threadService) Messages(ctx context.Context, userID, threadID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	if _, err := s.Get(ctx, userID, threadID); err != nil {
		return nil, err
	}
	return s.messages.ListByThread(dbctx.Context{Ctx: ctx}, threadID, limit)
}

func (s *threadService) Rename(ctx context.Context, userID, threadID uuid.UUID, title string) error {
	if strings.TrimSpace(title) == "" {
		return pkgerr.ErrInvalidArgument
	}
	if _, err := s.Get(ctx, userID, threadID); err != nil {
		return err
	}
	return s.threads.UpdateTitle(dbctx.Context{Ctx: ctx}, threadID, clampTitle(title))
}

func (s *threadService) Delete(ctx context.Context, userID, threadID uuid.UUID) error {
	if _, err := s.Get(ctx, userID, threadID); err != nil {
		return err
	}
	if err := s.threads.Delete(dbctx.Context{Ctx: ctx}, threadID); err != nil {
		return err
	}
	s.audit.Record(ctx, &userID, "thread_deleted", map[string]interface{}{
		"thread_id": threadID.String(),
	})
	return nil
}

func clampTitle(title string) string {
	title = strings.TrimSpace(title)
	runes := []rune(title)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength])
	}
	return title
}
