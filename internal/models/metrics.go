package models

import "time"

// CallMetrics holds the call-volume counters a vendor reports for a time
// window. Vendors omit fields they do not track; omitted fields decode to
// zero and are reported as zero, never as an error.
type CallMetrics struct {
	TotalCalls      int     `json:"total_calls"`
	AverageDuration float64 `json:"average_duration"`
	AnsweredCalls   int     `json:"answered_calls"`
	MissedCalls     int     `json:"missed_calls"`
	AverageWaitTime float64 `json:"average_wait_time"`
}

// MetricsSnapshot is the full picture of a PBX at one poll instant. It is
// regenerated every cycle and never persisted.
type MetricsSnapshot struct {
	CPUPct               float64          `json:"cpu_pct"`
	MemoryPct            float64          `json:"memory_pct"`
	DiskPct              float64          `json:"disk_pct"`
	NetworkRxKbps        float64          `json:"network_rx_kbps"`
	NetworkTxKbps        float64          `json:"network_tx_kbps"`
	UptimeSec            int64            `json:"uptime_sec"`
	Version              string           `json:"version,omitempty"`
	ExtensionsTotal      int              `json:"extensions_total"`
	ExtensionsRegistered int              `json:"extensions_registered"`
	QueuesTotal          int              `json:"queues_total"`
	ActiveCalls          int              `json:"active_calls"`
	Calls                CallMetrics      `json:"calls"`
	RecentCalls          []CallRecord     `json:"recent_calls,omitempty"`
	RecentLogs           []SystemLogEntry `json:"recent_logs,omitempty"`
	CollectedAt          time.Time        `json:"collected_at"`
}

// SystemStatus is the never-failing status answer an adapter gives. When the
// adapter is not connected or the probe fails, Connected is false and Error
// carries the reason; callers render a badge instead of handling a failure.
type SystemStatus struct {
	Connected bool             `json:"connected"`
	LastSync  *time.Time       `json:"last_sync,omitempty"`
	Data      *MetricsSnapshot `json:"data,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// TeamMetrics is the supervisor-level aggregation over a time window.
// Missing vendor fields default to zero.
type TeamMetrics struct {
	TotalCalls      int     `json:"totalCalls"`
	AverageDuration float64 `json:"averageDuration"`
	AnsweredCalls   int     `json:"answeredCalls"`
	MissedCalls     int     `json:"missedCalls"`
	AverageWaitTime float64 `json:"averageWaitTime"`
}

// QualityDistribution buckets recording scores. Boundaries are inclusive:
// 90 is excellent, 70 is good, 50 is fair.
type QualityDistribution struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Fair      int `json:"fair"`
	Poor      int `json:"poor"`
}

// QualityMetrics summarises recording scores over a time window.
type QualityMetrics struct {
	TotalRecordings int                 `json:"totalRecordings"`
	AverageScore    float64             `json:"averageScore"`
	Distribution    QualityDistribution `json:"distribution"`
}
