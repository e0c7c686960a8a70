package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/brenlab/bren-backend/internal/realtime"
)

// MessageNotifier publishes lifecycle updates for a message. Implementations
// must never fail the calling pipeline; delivery is best effort.
type MessageNotifier interface {
	StatusChanged(ctx context.Context, threadID, messageID uuid.UUID, status, body string, metadata map[string]interface{})
}

type statusNotifier struct {
	emitter StatusEmitter
}

func NewMessageNotifier(emitter StatusEmitter) MessageNotifier {
	return &statusNotifier{emitter: emitter}
}

func (n *statusNotifier) StatusChanged(ctx context.Context, threadID, messageID uuid.UUID, status, body string, metadata map[string]interface{}) {
	if n.emitter == nil {
		return
	}
	n.emitter.Emit(ctx, realtime.StatusEvent{
		Type:      realtime.EventStatusUpdate,
		ThreadID:  threadID,
		MessageID: messageID,
		Status:    status,
		Body:      body,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	})
}
