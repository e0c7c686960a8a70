package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/brenlab/bren-backend/internal/data/repos"
	types "github.com/brenlab/bren-backend/internal/domain"
	"github.com/brenlab/bren-backend/internal/pkg/dbctx"
	"github.com/brenlab/bren-backend/internal/platform/logger"
)

// AuditService records system events. Record is fire-and-forget: it detaches
// from the caller's context and only logs failures.
type AuditService interface {
	Record(ctx context.Context, userID *uuid.UUID, eventType string, data map[string]interface{})
}

type auditService struct {
	log  *logger.Logger
	repo repos.AuditRepo
}

func NewAuditService(repo repos.AuditRepo, log *logger.Logger) AuditService {
	return &auditService{
		log:  log.With("service", "AuditService"),
		repo: repo,
	}
}

func (s *auditService) Record(ctx context.Context, userID *uuid.UUID, eventType string, data map[string]interface{}) {
	payload := datatypes.JSON([]byte("{}"))
	if len(data) > 0 {
		if raw, err := json.Marshal(data); err == nil {
			payload = datatypes.JSON(raw)
		}
	}
	event := &types.AuditEvent{
		ID:        uuid.New(),
		UserID:    userID,
		EventType: eventType,
		EventData: payload,
	}
	go func() {
		dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
		if _, err := s.repo.Create(dbc, event); err != nil {
			s.log.Warn("audit record failed", "event_type", eventType, "error", err.Error())
		}
	}()
}
