package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brenlab/bren-backend/internal/http/response"
	"github.com/brenlab/bren-backend/internal/services"
)

type ScriptHandler struct {
	scripts services.ScriptService
}

func NewScriptHandler(scripts services.ScriptService) *ScriptHandler {
	return &ScriptHandler{scripts: scripts}
}

type deployScriptReq struct {
	Javascript string `json:"javascript"`
	CSS        string `json:"css"`
}

// POST /api/v1/sites/:site_code/scripts/deploy
func (h *ScriptHandler) Deploy(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req deployScriptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	script, err := h.scripts.Deploy(c.Request.Context(), userID, c.Param("site_code"), req.Javascript, req.CSS)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"script": script})
}

// GET /api/v1/sites/:site_code/scripts
func (h *ScriptHandler) Current(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	script, err := h.scripts.Current(c.Request.Context(), userID, c.Param("site_code"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"script": script})
}

// GET /api/v1/sites/:site_code/scripts/history?limit=20
func (h *ScriptHandler) History(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	history, err := h.scripts.History(c.Request.Context(), userID, c.Param("site_code"), queryLimit(c, 20))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"history": history})
}

// GET /api/v1/sites/:site_code/script
//
// Unauthenticated: this is what the deployed loader fetches.
func (h *ScriptHandler) PublicBundle(c *gin.Context) {
	bundle, err := h.scripts.ActiveBundle(c.Request.Context(), c.Param("site_code"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=60")
	response.RespondOK(c, bundle)
}
