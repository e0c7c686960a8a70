package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brenlab/bren-backend/internal/http/response"
	"github.com/brenlab/bren-backend/internal/realtime"
	"github.com/brenlab/bren-backend/internal/services"
)

type RealtimeHandler struct {
	hub     *realtime.Hub
	threads services.ThreadService
}

func NewRealtimeHandler(hub *realtime.Hub, threads services.ThreadService) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, threads: threads}
}

// GET /api/v1/threads/:thread_id/messages/status-stream
//
// Ownership is checked before attaching; the initial event carries the
// thread snapshot so the client does not need a second request.
func (h *RealtimeHandler) StreamThread(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	threadID, ok := paramUUID(c, "thread_id")
	if !ok {
		return
	}
	thread, err := h.threads.Get(c.Request.Context(), userID, threadID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	client := h.hub.Subscribe(userID, threadID)
	defer h.hub.Unsubscribe(client)

	client.Outbound <- realtime.StatusEvent{
		Type:     realtime.EventInitial,
		ThreadID: threadID,
		Metadata: map[string]interface{}{
			"title":           thread.Title,
			"site_code":       thread.SiteCode,
			"last_message_at": thread.LastMessageAt,
		},
		Timestamp: time.Now().UTC(),
	}
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
