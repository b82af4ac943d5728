package pbx

import (
	"context"
	"sync"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
)

// ConfigSource resolves the currently active connection config per vendor.
// Returns (nil, nil) when no config is active.
type ConfigSource interface {
	ActiveConfig(ctx context.Context, vendor models.PBXVendor) (*models.PBXConnectionConfig, error)
}

// Registry holds the process-wide adapter set: exactly one long-lived
// adapter per vendor, built at startup and passed by reference to every
// consumer. All consumers share the same connection state and event stream.
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.PBXVendor]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[models.PBXVendor]Adapter)}
}

// Register adds an adapter. Registering a second adapter for the same
// vendor replaces the first; callers are expected to register each vendor
// once at startup.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Vendor()] = a
}

// Adapter returns the adapter for a vendor.
func (r *Registry) Adapter(v models.PBXVendor) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[v]
	return a, ok
}

// Adapters returns every registered adapter in vendor order.
func (r *Registry) Adapters() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, v := range models.Vendors() {
		if a, ok := r.adapters[v]; ok {
			out = append(out, a)
		}
	}
	return out
}

// ConnectActive connects every adapter whose vendor has an active, enabled
// config. A vendor that fails to connect does not stop the others; the
// first error is returned after all vendors were attempted.
func (r *Registry) ConnectActive(ctx context.Context, cfgs ConfigSource) error {
	var firstErr error
	for _, a := range r.Adapters() {
		cfg, err := cfgs.ActiveConfig(ctx, a.Vendor())
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if cfg == nil || !cfg.Enabled {
			continue
		}
		if err := a.Connect(ctx, *cfg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Shutdown disconnects every adapter and closes its event broker.
func (r *Registry) Shutdown() {
	for _, a := range r.Adapters() {
		a.Disconnect()
		a.Events().Close()
	}
}
