package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brenlab/bren-backend/internal/ai/provider"
	"github.com/brenlab/bren-backend/internal/http/response"
	"github.com/brenlab/bren-backend/internal/requestdata"
	"github.com/brenlab/bren-backend/internal/services"
)

type ChatHandler struct {
	threads  services.ThreadService
	messages services.MessageService
}

func NewChatHandler(threads services.ThreadService, messages services.MessageService) *ChatHandler {
	return &ChatHandler{threads: threads, messages: messages}
}

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing identity"))
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func queryLimit(c *gin.Context, fallback int) int {
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

type createThreadReq struct {
	SiteCode string `json:"site_code"`
	Title    string `json:"title"`
}

// POST /api/v1/threads
func (h *ChatHandler) CreateThread(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req createThreadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	thread, err := h.threads.Create(c.Request.Context(), userID, req.SiteCode, req.Title)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"thread": thread})
}

// GET /api/v1/threads?limit=50
func (h *ChatHandler) ListThreads(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	threads, err := h.threads.List(c.Request.Context(), userID, queryLimit(c, 50))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"threads": threads})
}

// GET /api/v1/threads/:thread_id
func (h *ChatHandler) GetThread(c *gin.Context) {
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
	response.RespondOK(c, gin.H{"thread": thread})
}

type renameThreadReq struct {
	Title string `json:"title"`
}

// PATCH /api/v1/threads/:thread_id/title
func (h *ChatHandler) RenameThread(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	threadID, ok := paramUUID(c, "thread_id")
	if !ok {
		return
	}
	var req renameThreadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.threads.Rename(c.Request.Context(), userID, threadID, req.Title); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"updated": true})
}

// DELETE /api/v1/threads/:thread_id
func (h *ChatHandler) DeleteThread(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	threadID, ok := paramUUID(c, "thread_id")
	if !ok {
		return
	}
	if err := h.threads.Delete(c.Request.Context(), userID, threadID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

// GET /api/v1/threads/:thread_id/messages?limit=100
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	threadID, ok := paramUUID(c, "thread_id")
	if !ok {
		return
	}
	messages, err := h.threads.Messages(c.Request.Context(), userID, threadID, queryLimit(c, 100))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": messages})
}

type sendMessageReq struct {
	Content    string   `json:"content"`
	Model      string   `json:"model"`
	Images     []string `json:"images"`
	AutoDeploy bool     `json:"auto_deploy"`
}

// POST /api/v1/threads/:thread_id/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	threadID, ok := paramUUID(c, "thread_id")
	if !ok {
		return
	}
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	images := make([]provider.ImageInput, 0, len(req.Images))
	for _, url := range req.Images {
		if strings.TrimSpace(url) != "" {
			images = append(images, provider.ImageInput{ImageURL: url})
		}
	}
	result, err := h.messages.Submit(c.Request.Context(), services.SubmitInput{
		ThreadID:       threadID,
		UserID:         userID,
		Content:        req.Content,
		PreferredModel: req.Model,
		Images:         images,
		AutoDeploy:     req.AutoDeploy,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"user_message":      result.UserMessage,
		"assistant_message": result.AssistantMessage,
	})
}

// GET /api/v1/messages/:message_id/status
func (h *ChatHandler) MessageStatus(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	messageID, ok := paramUUID(c, "message_id")
	if !ok {
		return
	}
	msg, err := h.messages.Status(c.Request.Context(), userID, messageID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"message_id": msg.ID,
		"status":     msg.Status,
		"content":    msg.Content,
		"model":      msg.Model,
		"metadata":   msg.Metadata,
	})
}
