package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brenlab/bren-backend/internal/platform/logger"
	"github.com/brenlab/bren-backend/internal/realtime"
)

// StatusBus carries status events across instances so a client streaming
// from one replica still sees updates produced on another.
type StatusBus interface {
	Publish(ctx context.Context, event realtime.StatusEvent) error
	StartForwarder(ctx context.Context, onEvent func(event realtime.StatusEvent)) error
	Close() error
}

type redisStatusBus struct {
	log     *logger.Logger
	rdb     *redis.Client
	channel string
}

func NewRedisStatusBus(log *logger.Logger) (StatusBus, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_STATUS_CHANNEL"))
	if ch == "" {
		ch = "message_status"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisStatusBus{
		log:     log.With("service", "RedisStatusBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *redisStatusBus) Publish(ctx context.Context, event realtime.StatusEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisStatusBus) StartForwarder(ctx context.Context, onEvent func(event realtime.StatusEvent)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var event realtime.StatusEvent
				if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
					b.log.Warn("bad redis status payload", "error", err)
					continue
				}
				onEvent(event)
			}
		}
	}()
	return nil
}

func (b *redisStatusBus) Close() error {
	return b.rdb.Close()
}
