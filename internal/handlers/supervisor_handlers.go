package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/middleware"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/pbx"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/store"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/supervisor"
)

// SupervisorHandlers maps the aggregation service's Result envelopes onto
// HTTP responses.
type SupervisorHandlers struct {
	svc *supervisor.Service
}

func NewSupervisorHandlers(svc *supervisor.Service) *SupervisorHandlers {
	return &SupervisorHandlers{svc: svc}
}

// writeResult translates the uniform envelope to an HTTP status: the
// no-active-PBX condition maps to 409 so the UI can render "not
// configured", connectivity failures to 503, everything else to 500.
func writeResult(c *gin.Context, res supervisor.Result) {
	if res.Success {
		c.JSON(http.StatusOK, res)
		return
	}
	status := http.StatusInternalServerError
	switch pbx.Code(res.Error.Code) {
	case pbx.CodeNoActivePBX:
		status = http.StatusConflict
	case pbx.CodeNotConnected, pbx.CodeUnreachable, pbx.CodeTimeout, pbx.CodeTLS, pbx.CodeUnauthorized:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, res)
}

func (h *SupervisorHandlers) TeamStatus(c *gin.Context) {
	writeResult(c, h.svc.TeamStatus(c.Request.Context()))
}

func (h *SupervisorHandlers) ActiveCalls(c *gin.Context) {
	writeResult(c, h.svc.ActiveCalls(c.Request.Context()))
}

func (h *SupervisorHandlers) TeamMetrics(c *gin.Context) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	writeResult(c, h.svc.TeamMetrics(c.Request.Context(), from, to))
}

func (h *SupervisorHandlers) QualityMetrics(c *gin.Context) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	writeResult(c, h.svc.QualityMetrics(c.Request.Context(), from, to))
}

func (h *SupervisorHandlers) Alerts(c *gin.Context) {
	acked, err := parseBool(c, "acknowledged")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter := store.AlertFilter{
		Type:         models.AlertType(c.Query("type")),
		Priority:     models.AlertPriority(c.Query("priority")),
		Acknowledged: acked,
	}
	if filter.Type != "" && filter.Type != models.AlertSystem && filter.Type != models.AlertPerformance {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert type"})
		return
	}
	if filter.Priority != "" && !models.ValidPriority(filter.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert priority"})
		return
	}
	writeResult(c, h.svc.Alerts(c.Request.Context(), filter))
}

func (h *SupervisorHandlers) AcknowledgeAlert(c *gin.Context) {
	username := c.GetString("username")
	writeResult(c, h.svc.AcknowledgeAlert(c.Request.Context(), c.Param("id"), username))
}

type createAlertRequest struct {
	Type      string         `json:"type" validate:"required,oneof=system performance"`
	Title     string         `json:"title" validate:"required,max=200"`
	Message   string         `json:"message" validate:"required,max=2000"`
	Priority  string         `json:"priority" validate:"required,oneof=low medium high critical"`
	AgentID   string         `json:"agent_id,omitempty"`
	AgentName string         `json:"agent_name,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// CreateAlert records a system or performance alert.
func (h *SupervisorHandlers) CreateAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}
	if err := middleware.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}

	title := middleware.SanitizeString(req.Title)
	message := middleware.SanitizeString(req.Message)
	priority := models.AlertPriority(req.Priority)

	var res supervisor.Result
	if req.Type == string(models.AlertPerformance) {
		res = h.svc.CreatePerformanceAlert(c.Request.Context(), title, message, priority, req.AgentID, req.AgentName, req.Metadata)
	} else {
		res = h.svc.CreateSystemAlert(c.Request.Context(), title, message, priority, req.Metadata)
	}
	writeResult(c, res)
}

func (h *SupervisorHandlers) GetSettings(c *gin.Context) {
	username := c.GetString("username")
	writeResult(c, h.svc.Settings(c.Request.Context(), username))
}

func (h *SupervisorHandlers) UpdateSettings(c *gin.Context) {
	var req models.SupervisorSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}
	username := c.GetString("username")
	writeResult(c, h.svc.UpdateSettings(c.Request.Context(), username, req))
}
