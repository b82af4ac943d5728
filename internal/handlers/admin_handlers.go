package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/middleware"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/store"
)

// AdminHandlers manages PBX connection configs. Activation is separate
// from upsert so the one-active-config-per-vendor invariant always holds.
type AdminHandlers struct {
	store *store.Store
}

func NewAdminHandlers(st *store.Store) *AdminHandlers {
	return &AdminHandlers{store: st}
}

// ListConfigs returns every stored PBX config. API keys are masked.
func (h *AdminHandlers) ListConfigs(c *gin.Context) {
	cfgs, err := h.store.ListConfigs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for i := range cfgs {
		cfgs[i].APIKey = "********"
	}
	c.JSON(http.StatusOK, gin.H{"configs": cfgs})
}

// UpsertConfig stores or updates a vendor connection config.
func (h *AdminHandlers) UpsertConfig(c *gin.Context) {
	var cfg models.PBXConnectionConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}
	if err := middleware.ValidateStruct(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}
	if err := h.store.UpsertConfig(c.Request.Context(), cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

type activateRequest struct {
	ServerURL string `json:"server_url" validate:"required,url"`
}

// ActivateConfig makes one stored config the active one for its vendor.
// Takes effect for the supervisor service on the next service start.
func (h *AdminHandlers) ActivateConfig(c *gin.Context) {
	vendor, err := models.ParseVendor(c.Param("vendor"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}
	if err := middleware.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}
	err = h.store.SetActiveConfig(c.Request.Context(), vendor, req.ServerURL)
	if errors.Is(err, store.ErrConfigNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "config not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "activated"})
}
