package models

import "time"

// AlertType distinguishes system alerts (PBX health) from performance
// alerts (agent/queue behaviour).
type AlertType string

const (
	AlertSystem      AlertType = "system"
	AlertPerformance AlertType = "performance"
)

// AlertPriority orders alerts for display.
type AlertPriority string

const (
	PriorityLow      AlertPriority = "low"
	PriorityMedium   AlertPriority = "medium"
	PriorityHigh     AlertPriority = "high"
	PriorityCritical AlertPriority = "critical"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p AlertPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Alert is a persisted supervisor alert. Alerts start open and move to
// acknowledged exactly once; the audit fields are immutable after that.
type Alert struct {
	ID             string         `json:"id"`
	Type           AlertType      `json:"type"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Priority       AlertPriority  `json:"priority"`
	Acknowledged   bool           `json:"acknowledged"`
	AcknowledgedBy string         `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	AgentID        string         `json:"agent_id,omitempty"`
	AgentName      string         `json:"agent_name,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
