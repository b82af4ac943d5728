package pbx

import (
	"context"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
)

// Status is an adapter's connection state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// State is a snapshot of one adapter's connection lifecycle.
type State struct {
	Status   Status     `json:"status"`
	LastSync *time.Time `json:"last_sync,omitempty"`
	LastErr  string     `json:"last_error,omitempty"`
}

// Adapter is the uniform capability surface over one vendor's HTTP API.
// Callers hold this interface and never a concrete vendor type; the
// vendor-specific extras live behind the optional capability interfaces
// below.
//
// Every data call requires a prior successful Connect and returns a
// *pbx.Error on failure. SystemStatus is the exception: it never fails,
// degrading to a disconnected result instead.
type Adapter interface {
	Vendor() models.PBXVendor
	Connect(ctx context.Context, cfg models.PBXConnectionConfig) error
	Disconnect()
	State() State
	Events() *Broker

	SystemStatus(ctx context.Context) models.SystemStatus
	Metrics(ctx context.Context, from, to time.Time) (*models.MetricsSnapshot, error)
	CallLogs(ctx context.Context, from, to time.Time) ([]models.CallRecord, error)
	SystemLogs(ctx context.Context, from, to time.Time) ([]models.SystemLogEntry, error)
	Extensions(ctx context.Context) ([]models.Extension, error)
	QueueStatus(ctx context.Context) ([]models.QueueStatus, error)
	Recordings(ctx context.Context, from, to time.Time) ([]models.Recording, error)
	Trunks(ctx context.Context) ([]models.Trunk, error)

	ClearCache(ctx context.Context) error
	RestartServices(ctx context.Context) error
	EmergencyStop(ctx context.Context) error
}

// DIDProvider is the optional DID-number capability (3CX).
type DIDProvider interface {
	DIDNumbers(ctx context.Context) ([]models.DIDNumber, error)
}

// ConferenceProvider is the optional conference-room capability (Yeastar).
type ConferenceProvider interface {
	ConferenceRooms(ctx context.Context) ([]models.ConferenceRoom, error)
}

// Options tune adapter behaviour. Zero values fall back to defaults.
type Options struct {
	PollInterval time.Duration // default 30s
	HTTPTimeout  time.Duration // default 15s
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 30 * time.Second
	}
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = 15 * time.Second
	}
	return o
}
