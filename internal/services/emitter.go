package services

import (
	"context"

	"github.com/brenlab/bren-backend/internal/realtime"
)

// StatusEmitter abstracts where a status event goes: straight to the local
// hub in single-instance deployments, or through redis when clustered.
type StatusEmitter interface {
	Emit(ctx context.Context, event realtime.StatusEvent)
}

type HubEmitter struct{ Hub *realtime.Hub }

func (e *HubEmitter) Emit(_ context.Context, event realtime.StatusEvent) {
	e.Hub.Publish(event)
}

type RedisEmitter struct{ Bus StatusBus }

func (e *RedisEmitter) Emit(ctx context.Context, event realtime.StatusEvent) {
	_ = e.Bus.Publish(ctx, event)
}
