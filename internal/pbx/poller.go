package pbx

import (
	"context"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
)

// fetcher is the slice of an adapter the poller drives.
type fetcher interface {
	CallLogs(ctx context.Context, from, to time.Time) ([]models.CallRecord, error)
	SystemLogs(ctx context.Context, from, to time.Time) ([]models.SystemLogEntry, error)
	Metrics(ctx context.Context, from, to time.Time) (*models.MetricsSnapshot, error)
}

// poller refreshes adapter data on a fixed delay and republishes it as
// events. Ticks run on a single goroutine and the timer is rearmed only
// after a tick completes, so the gap between a tick finishing and the next
// one starting is never shorter than the interval, even when vendor calls
// run long. A failed tick publishes an error event and the loop continues;
// recovery is retry-on-next-tick, no backoff.
type poller struct {
	vendor   models.PBXVendor
	interval time.Duration
	fetch    fetcher
	broker   *Broker
	onSync   func()

	stopCh chan struct{}
	doneCh chan struct{}
}

func startPoller(vendor models.PBXVendor, interval time.Duration, fetch fetcher, broker *Broker, onSync func()) *poller {
	p := &poller{
		vendor:   vendor,
		interval: interval,
		fetch:    fetch,
		broker:   broker,
		onSync:   onSync,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *poller) run() {
	defer close(p.doneCh)
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-timer.C:
			// Re-check stop so a Disconnect that raced the tick wins.
			select {
			case <-p.stopCh:
				return
			default:
			}
			p.tick()
			// Rearm only after the tick finishes so a slow vendor still
			// gets a full interval of quiet before the next poll.
			timer.Reset(p.interval)
		}
	}
}

// stop prevents any further tick from firing and waits for an in-progress
// tick to finish. It does not cancel HTTP calls already issued.
func (p *poller) stop() {
	close(p.stopCh)
	<-p.doneCh
}

func (p *poller) tick() {
	ctx := context.Background()
	window := time.Now().Add(-p.interval)
	ok := true

	calls, err := p.fetch.CallLogs(ctx, window, time.Time{})
	if err != nil {
		ok = false
		p.broker.Publish(Event{Type: EventError, Vendor: p.vendor, Err: err.Error()})
	} else if n := len(calls); n > 0 {
		latest := calls[n-1]
		p.broker.Publish(Event{Type: EventCallLog, Vendor: p.vendor, Call: &latest})
	}

	logs, err := p.fetch.SystemLogs(ctx, window, time.Time{})
	if err != nil {
		ok = false
		p.broker.Publish(Event{Type: EventError, Vendor: p.vendor, Err: err.Error()})
	} else if n := len(logs); n > 0 {
		latest := logs[n-1]
		p.broker.Publish(Event{Type: EventSystemLog, Vendor: p.vendor, Log: &latest})
	}

	snap, err := p.fetch.Metrics(ctx, time.Time{}, time.Time{})
	if err != nil {
		ok = false
		p.broker.Publish(Event{Type: EventError, Vendor: p.vendor, Err: err.Error()})
	} else {
		p.broker.Publish(Event{Type: EventMetrics, Vendor: p.vendor, Metrics: snap})
	}

	if ok && p.onSync != nil {
		p.onSync()
	}
}
