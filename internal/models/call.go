package models

import "time"

// CallType classifies a call record as reported by the vendor.
type CallType string

const (
	CallInbound  CallType = "inbound"
	CallOutbound CallType = "outbound"
	CallInternal CallType = "internal"
	CallMissed   CallType = "missed"
	CallFailed   CallType = "failed"
)

// CallQuality carries the optional per-call media quality block some
// vendors attach to call records.
type CallQuality struct {
	MOS           float64 `json:"mos,omitempty"`
	JitterMs      float64 `json:"jitter_ms,omitempty"`
	LatencyMs     float64 `json:"latency_ms,omitempty"`
	PacketLossPct float64 `json:"packet_loss_pct,omitempty"`
}

// CallRecord is a read-only snapshot of one call as fetched from a vendor.
// Records are never mutated, only aggregated.
type CallRecord struct {
	ID          string       `json:"id"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Type        CallType     `json:"type"`
	Status      string       `json:"status,omitempty"`
	DurationSec int          `json:"duration_sec"`
	StartedAt   time.Time    `json:"started_at"`
	Trunk       string       `json:"trunk,omitempty"`
	Cost        float64      `json:"cost,omitempty"`
	Quality     *CallQuality `json:"quality,omitempty"`
}

// SystemLogEntry is one line from a vendor's system log.
type SystemLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Service   string    `json:"service,omitempty"`
	Message   string    `json:"message"`
}

// Extension is a PBX extension and its registration state.
type Extension struct {
	Number     string `json:"number"`
	Name       string `json:"name,omitempty"`
	Registered bool   `json:"registered"`
	Status     string `json:"status,omitempty"`
}

// QueueStatus is the live state of one call queue.
type QueueStatus struct {
	ID              string  `json:"id"`
	Name            string  `json:"name,omitempty"`
	Waiting         int     `json:"waiting"`
	AgentsLoggedIn  int     `json:"agents_logged_in"`
	AgentsAvailable int     `json:"agents_available"`
	LongestWaitSec  int     `json:"longest_wait_sec"`
	ServiceLevelPct float64 `json:"service_level_pct,omitempty"`
}

// Recording is a scored call recording as reported by the vendor.
type Recording struct {
	ID          string    `json:"id"`
	CallID      string    `json:"call_id,omitempty"`
	Agent       string    `json:"agent,omitempty"`
	DurationSec int       `json:"duration_sec"`
	StartedAt   time.Time `json:"started_at"`
	Score       float64   `json:"score"`
	URL         string    `json:"url,omitempty"`
}

// Trunk is a SIP trunk and its channel utilisation.
type Trunk struct {
	ID            string `json:"id"`
	Provider      string `json:"provider,omitempty"`
	Status        string `json:"status"`
	ChannelsInUse int    `json:"channels_in_use"`
	ChannelsTotal int    `json:"channels_total"`
}

// DIDNumber is a 3CX-specific inbound number mapping.
type DIDNumber struct {
	Number      string `json:"number"`
	Destination string `json:"destination,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// ConferenceRoom is a Yeastar-specific conference room.
type ConferenceRoom struct {
	Number       string `json:"number"`
	Name         string `json:"name,omitempty"`
	Participants int    `json:"participants"`
	Locked       bool   `json:"locked"`
}
