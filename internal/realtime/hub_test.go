package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

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

func recvEvent(t *testing.T, c *Client) StatusEvent {
	t.Helper()
	select {
	case event := <-c.Outbound:
		return event
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
		return StatusEvent{}
	}
}

func TestPublishFansOutToThreadSubscribers(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	threadID := uuid.New()
	a := hub.Subscribe(uuid.New(), threadID)
	b := hub.Subscribe(uuid.New(), threadID)

	msgID := uuid.New()
	hub.Publish(StatusEvent{Type: EventStatusUpdate, ThreadID: threadID, MessageID: msgID, Status: "in_progress"})

	for _, c := range []*Client{a, b} {
		got := recvEvent(t, c)
		if got.Type != EventStatusUpdate || got.MessageID != msgID || got.Status != "in_progress" {
			t.Fatalf("unexpected event: %+v", got)
		}
		if got.Timestamp.IsZero() {
			t.Fatalf("timestamp not stamped")
		}
	}
}

func TestPublishIsScopedToThread(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	threadA := uuid.New()
	threadB := uuid.New()
	a := hub.Subscribe(uuid.New(), threadA)
	b := hub.Subscribe(uuid.New(), threadB)

	hub.Publish(StatusEvent{Type: EventStatusUpdate, ThreadID: threadA, Status: "completed"})

	if got := recvEvent(t, a); got.Status != "completed" {
		t.Fatalf("unexpected event: %+v", got)
	}
	select {
	case event := <-b.Outbound:
		t.Fatalf("cross-thread leak: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishPreservesOrderPerSubscriber(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	threadID := uuid.New()
	c := hub.Subscribe(uuid.New(), threadID)

	statuses := []string{"pending", "in_progress", "completed"}
	for _, s := range statuses {
		hub.Publish(StatusEvent{Type: EventStatusUpdate, ThreadID: threadID, Status: s})
	}
	for _, want := range statuses {
		if got := recvEvent(t, c); got.Status != want {
			t.Fatalf("out of order: got %q, want %q", got.Status, want)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	threadID := uuid.New()
	gone := hub.Subscribe(uuid.New(), threadID)
	stay := hub.Subscribe(uuid.New(), threadID)

	hub.Unsubscribe(gone)
	hub.Publish(StatusEvent{Type: EventStatusUpdate, ThreadID: threadID, Status: "completed"})

	if got := recvEvent(t, stay); got.Status != "completed" {
		t.Fatalf("remaining subscriber should still receive: %+v", got)
	}
	if n := hub.SubscriberCount(threadID); n != 1 {
		t.Fatalf("subscriber count = %d, want 1", n)
	}
	// The removed client's channel is closed, not fed.
	if _, ok := <-gone.Outbound; ok {
		t.Fatalf("unsubscribed client received an event")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	threadID := uuid.New()
	c := hub.Subscribe(uuid.New(), threadID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < outboundBuffer+10; i++ {
			hub.Publish(StatusEvent{Type: EventStatusUpdate, ThreadID: threadID, Status: "pending"})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publisher blocked on a full subscriber buffer")
	}
	if len(c.Outbound) != outboundBuffer {
		t.Fatalf("buffered = %d, want %d", len(c.Outbound), outboundBuffer)
	}
}
