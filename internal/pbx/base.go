package pbx

import (
	"context"
	"sync"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/utils"
)

// base holds the connection lifecycle shared by both vendor adapters:
// state tracking, the event broker, and poller ownership. The concrete
// adapters supply the vendor-specific fetchers through the probe/fetcher
// hooks.
type base struct {
	vendor models.PBXVendor
	opts   Options
	logger *utils.Logger

	mu     sync.Mutex
	state  State
	cli    *client
	poller *poller

	broker *Broker
}

func newBase(vendor models.PBXVendor, opts Options, logger *utils.Logger) base {
	return base{
		vendor: vendor,
		opts:   opts.withDefaults(),
		logger: logger,
		state:  State{Status: StatusDisconnected},
		broker: NewBroker(),
	}
}

func (b *base) Vendor() models.PBXVendor { return b.vendor }
func (b *base) Events() *Broker          { return b.broker }

func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// connect runs the shared connect protocol: build the HTTP client, probe
// the vendor with the given status call, and on success mark connected and
// start the poller driven by fetch.
func (b *base) connect(ctx context.Context, cfg models.PBXConnectionConfig, probe func(ctx context.Context, c *client) error, fetch fetcher) error {
	if cfg.Vendor != b.vendor {
		return Errf(CodeVendor, "config is for vendor %q, adapter is %q", cfg.Vendor, b.vendor)
	}

	b.mu.Lock()
	switch b.state.Status {
	case StatusConnected:
		b.mu.Unlock()
		return nil
	case StatusConnecting:
		// Another Connect holds the lifecycle; starting a second probe
		// here would race it for the poller slot.
		b.mu.Unlock()
		return Errf(CodeNotConnected, "%s connect already in progress", b.vendor)
	}
	b.state = State{Status: StatusConnecting}
	b.mu.Unlock()

	cli, err := newClient(cfg, b.opts.HTTPTimeout)
	if err == nil {
		err = probe(ctx, cli)
	}
	if err != nil {
		b.mu.Lock()
		if b.state.Status == StatusConnecting {
			b.state = State{Status: StatusError, LastErr: err.Error()}
		}
		b.mu.Unlock()
		b.logf("%s connect failed: %v", b.vendor, err)
		return err
	}

	now := time.Now()
	b.mu.Lock()
	if b.state.Status != StatusConnecting {
		// Disconnect won the race while the probe was in flight; do not
		// start a poller nobody owns.
		b.mu.Unlock()
		return Errf(CodeNotConnected, "%s connection closed during connect", b.vendor)
	}
	b.cli = cli
	b.state = State{Status: StatusConnected, LastSync: &now}
	b.poller = startPoller(b.vendor, b.opts.PollInterval, fetch, b.broker, b.markSync)
	b.mu.Unlock()
	b.logf("%s connected to %s", b.vendor, cfg.ServerURL)
	return nil
}

// Disconnect stops the poller and clears connection state. Idempotent.
func (b *base) Disconnect() {
	b.mu.Lock()
	p := b.poller
	b.poller = nil
	b.cli = nil
	already := b.state.Status == StatusDisconnected
	b.state = State{Status: StatusDisconnected}
	b.mu.Unlock()

	if p != nil {
		p.stop()
	}
	if !already {
		b.logf("%s disconnected", b.vendor)
	}
}

// client returns the live HTTP client, or ErrNotConnected.
func (b *base) client() (*client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cli == nil || b.state.Status != StatusConnected {
		return nil, ErrNotConnected
	}
	return b.cli, nil
}

func (b *base) markSync() {
	now := time.Now()
	b.mu.Lock()
	if b.state.Status == StatusConnected {
		b.state.LastSync = &now
	}
	b.mu.Unlock()
}

// systemStatus implements the never-failing status contract shared by both
// adapters: any failure degrades to a disconnected result.
func (b *base) systemStatus(ctx context.Context, metrics func(ctx context.Context, from, to time.Time) (*models.MetricsSnapshot, error)) models.SystemStatus {
	st := b.State()
	if st.Status != StatusConnected {
		msg := st.LastErr
		if msg == "" {
			msg = ErrNotConnected.Message
		}
		return models.SystemStatus{Connected: false, LastSync: st.LastSync, Error: msg}
	}
	snap, err := metrics(ctx, time.Time{}, time.Time{})
	if err != nil {
		return models.SystemStatus{Connected: false, LastSync: st.LastSync, Error: err.Error()}
	}
	return models.SystemStatus{Connected: true, LastSync: st.LastSync, Data: snap}
}

func (b *base) logf(format string, args ...any) {
	if b.logger != nil {
		b.logger.Writef(format, args...)
	}
}
