package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/middleware"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/pbx"
)

// PBXHandlers exposes the raw adapter surface per vendor.
type PBXHandlers struct {
	registry *pbx.Registry
}

func NewPBXHandlers(registry *pbx.Registry) *PBXHandlers {
	return &PBXHandlers{registry: registry}
}

func (h *PBXHandlers) adapter(c *gin.Context) (pbx.Adapter, bool) {
	vendor, err := models.ParseVendor(c.Param("vendor"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	a, ok := h.registry.Adapter(vendor)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no adapter for vendor"})
		return nil, false
	}
	return a, true
}

// writePBXError maps an adapter error to an HTTP status carrying the
// stable code.
func writePBXError(c *gin.Context, err error) {
	status := http.StatusServiceUnavailable
	if pbx.IsCode(err, pbx.CodeVendor) {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": string(pbx.CodeOf(err))})
}

// Status reports connection state plus a live snapshot. Never fails; a
// broken vendor degrades to connected=false.
func (h *PBXHandlers) Status(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":  a.State(),
		"status": a.SystemStatus(c.Request.Context()),
	})
}

func (h *PBXHandlers) Metrics(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}
	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, err := a.Metrics(c.Request.Context(), from, to)
	if err != nil {
		writePBXError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *PBXHandlers) CallLogs(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}
	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	calls, err := a.CallLogs(c.Request.Context(), from, to)
	if err != nil {
		writePBXError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": calls})
}

func (h *PBXHandlers) SystemLogs(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}
	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logs, err := a.SystemLogs(c.Request.Context(), from, to)
	if err != nil {
		writePBXError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (h *PBXHandlers) Extensions(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}
	exts, err := a.Extensions(c.Request.Context())
	if err != nil {
		writePBXError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"extensions": exts})
}

func (h *PBXHandlers) Queues(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}
	queues, err := a.QueueStatus(c.Request.Context())
	if err != nil {
		writePBXError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"queues": queues})
}

func (h *PBXHandlers) Recordings(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}
	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	recs, err := a.Recordings(c.Request.Context(), from, to)
	if err != nil {
		writePBXError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recordings": recs})
}

func (h *PBXHandlers) Trunks(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}
	trunks, err := a.Trunks(c.Request.Context())
	if err != nil {
		writePBXError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trunks": trunks})
}

// DIDNumbers serves the 3CX-specific extra. The capability check replaces
// a vendor downcast: adapters that don't implement DIDProvider yield 404.
func (h *PBXHandlers) DIDNumbers(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}
	provider, ok := a.(pbx.DIDProvider)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "vendor does not support DID lookup"})
		return
	}
	dids, err := provider.DIDNumbers(c.Request.Context())
	if err != nil {
		writePBXError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dids": dids})
}

// ConferenceRooms serves the Yeastar-specific extra.
func (h *PBXHandlers) ConferenceRooms(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}
	provider, ok := a.(pbx.ConferenceProvider)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "vendor does not support conference rooms"})
		return
	}
	rooms, err := provider.ConferenceRooms(c.Request.Context())
	if err != nil {
		writePBXError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conferences": rooms})
}

type maintenanceRequest struct {
	Action string `json:"action" validate:"required,oneof=clearCache restartServices emergencyStop"`
}

// Maintenance fires one maintenance action against every connected
// adapter concurrently. There is no cross-vendor atomicity: one vendor
// failing does not roll back the other, and each vendor reports its own
// outcome.
func (h *PBXHandlers) Maintenance(c *gin.Context) {
	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}
	if err := middleware.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}

	type outcome struct {
		Vendor models.PBXVendor `json:"vendor"`
		OK     bool             `json:"ok"`
		Error  string           `json:"error,omitempty"`
	}

	adapters := h.registry.Adapters()
	results := make([]outcome, len(adapters))
	var wg sync.WaitGroup
	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a pbx.Adapter) {
			defer wg.Done()
			var err error
			switch req.Action {
			case "clearCache":
				err = a.ClearCache(c.Request.Context())
			case "restartServices":
				err = a.RestartServices(c.Request.Context())
			case "emergencyStop":
				err = a.EmergencyStop(c.Request.Context())
			}
			results[i] = outcome{Vendor: a.Vendor(), OK: err == nil}
			if err != nil {
				results[i].Error = err.Error()
			}
		}(i, a)
	}
	wg.Wait()

	c.JSON(http.StatusOK, gin.H{"action": req.Action, "results": results})
}
