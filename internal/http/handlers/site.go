package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brenlab/bren-backend/internal/http/response"
	"github.com/brenlab/bren-backend/internal/services"
)

type SiteHandler struct {
	sites services.SiteService
}

func NewSiteHandler(sites services.SiteService) *SiteHandler {
	return &SiteHandler{sites: sites}
}

type registerSiteReq struct {
	SiteName string `json:"site_name"`
	Domain   string `json:"domain"`
}

// POST /api/v1/sites
func (h *SiteHandler) Register(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req registerSiteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	site, err := h.sites.Register(c.Request.Context(), userID, req.SiteName, req.Domain)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"site": site})
}

// GET /api/v1/sites
func (h *SiteHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	sites, err := h.sites.List(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sites": sites})
}

type renameSiteReq struct {
	SiteName string `json:"site_name"`
}

// PATCH /api/v1/sites/:site_code/name
func (h *SiteHandler) Rename(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req renameSiteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	site, err := h.sites.Rename(c.Request.Context(), userID, c.Param("site_code"), req.SiteName)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"site": site})
}

// DELETE /api/v1/sites/:site_code
func (h *SiteHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.sites.Delete(c.Request.Context(), userID, c.Param("site_code")); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

// GET /api/v1/sites/:site_code
func (h *SiteHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	site, err := h.sites.GetOwned(c.Request.Context(), userID, c.Param("site_code"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"site": site})
}
