// Package realtime fans message status updates out to streaming clients.
// Subscriptions are keyed by thread; there is no replay, a client only sees
// events published after it attached plus the initial snapshot the handler
// sends.
package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brenlab/bren-backend/internal/platform/logger"
)

const (
	EventInitial      = "initial"
	EventStatusUpdate = "status_update"
	EventHeartbeat    = "heartbeat"

	outboundBuffer    = 16
	heartbeatInterval = 5 * time.Second
)

// StatusEvent is one update on a message's lifecycle within a thread.
type StatusEvent struct {
	Type      string                 `json:"type"`
	ThreadID  uuid.UUID              `json:"thread_id"`
	MessageID uuid.UUID              `json:"message_id,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Body      string                 `json:"body,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Client is one attached stream. Outbound is bounded; slow consumers drop
// events rather than stall the publisher.
type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	ThreadID uuid.UUID
	Outbound chan StatusEvent
	done     chan struct{}
}

type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[uuid.UUID]map[*Client]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:           log.With("component", "StatusHub"),
		subscriptions: make(map[uuid.UUID]map[*Client]bool),
	}
}

// Subscribe attaches a new client to a thread's event stream.
func (h *Hub) Subscribe(userID, threadID uuid.UUID) *Client {
	client := &Client{
		ID:       uuid.New(),
		UserID:   userID,
		ThreadID: threadID,
		Outbound: make(chan StatusEvent, outboundBuffer),
		done:     make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.subscriptions[threadID]
	if !ok {
		clients = make(map[*Client]bool)
		h.subscriptions[threadID] = clients
	}
	clients[client] = true
	h.log.Debug("status client subscribed", "client_id", client.ID, "thread_id", threadID)
	return client
}

// Unsubscribe detaches the client and closes its channels. Safe to call once.
func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	if clients, ok := h.subscriptions[client.ThreadID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subscriptions, client.ThreadID)
		}
	}
	h.mu.Unlock()
	close(client.done)
	close(client.Outbound)
	h.log.Debug("status client unsubscribed", "client_id", client.ID, "thread_id", client.ThreadID)
}

// Publish delivers the event to every subscriber of its thread. Full buffers
// drop the event for that client only.
func (h *Hub) Publish(event StatusEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients, ok := h.subscriptions[event.ThreadID]
	if !ok {
		return
	}
	for c := range clients {
		select {
		case c.Outbound <- event:
		default:
			h.log.Warn("dropping status event; outbound buffer full",
				"client_id", c.ID, "thread_id", event.ThreadID)
		}
	}
}

// SubscriberCount reports how many clients watch a thread.
func (h *Hub) SubscriberCount(threadID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[threadID])
}

// ServeHTTP streams the client's events as SSE until the request context
// ends or the client is unsubscribed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug("status client context done", "client_id", client.ID, "err", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			hb := StatusEvent{Type: EventHeartbeat, ThreadID: client.ThreadID, Timestamp: time.Now().UTC()}
			writeEvent(w, h.log, hb)
			flusher.Flush()
		case event, ok := <-client.Outbound:
			if !ok {
				return
			}
			writeEvent(w, h.log, event)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, log *logger.Logger, event StatusEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Warn("failed to marshal status event", "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
}
