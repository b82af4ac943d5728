package pbx

import (
	"sync"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
)

// EventType names the classes of events a poller publishes.
type EventType string

const (
	EventCallLog   EventType = "callLog"
	EventSystemLog EventType = "systemLog"
	EventMetrics   EventType = "metrics"
	EventError     EventType = "error"
	EventNewAlert  EventType = "newAlert"
)

// Event is one item on an adapter's event stream. Exactly one payload field
// is set, matching Type.
type Event struct {
	Type    EventType
	Vendor  models.PBXVendor
	Call    *models.CallRecord
	Log     *models.SystemLogEntry
	Metrics *models.MetricsSnapshot
	Alert   *models.Alert
	Err     string
	At      time.Time
}

// Broker is a per-adapter publish/subscribe channel. Subscribers hold an
// explicit Subscription they close when done; publishing never blocks, a
// subscriber that falls behind loses events rather than stalling the
// poll loop.
type Broker struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// Subscription is one subscriber's handle on a Broker.
type Subscription struct {
	ch     chan Event
	broker *Broker
	once   sync.Once
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber with the given channel buffer.
func (b *Broker) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscription{ch: make(chan Event, buffer), broker: b}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish delivers ev to every live subscriber without blocking.
func (b *Broker) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			// Slow subscriber, drop.
		}
	}
}

// Close terminates the broker and closes every subscriber channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
		delete(b.subs, sub)
	}
}

// C is the receive channel for this subscription. It is closed when the
// subscription or the broker is closed.
func (s *Subscription) C() <-chan Event { return s.ch }

// Close cancels the subscription and closes its channel. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		if _, ok := s.broker.subs[s]; ok {
			delete(s.broker.subs, s)
			close(s.ch)
		}
		s.broker.mu.Unlock()
	})
}
