package pbx

import (
	"testing"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	s1 := b.Subscribe(4)
	s2 := b.Subscribe(4)
	defer s1.Close()
	defer s2.Close()

	b.Publish(Event{Type: EventCallLog, Vendor: models.VendorThreeCX})

	for i, sub := range []*Subscription{s1, s2} {
		select {
		case ev := <-sub.C():
			if ev.Type != EventCallLog {
				t.Fatalf("subscriber %d: got type %q", i, ev.Type)
			}
			if ev.At.IsZero() {
				t.Fatalf("subscriber %d: publish did not stamp At", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: no event", i)
		}
	}
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	slow := b.Subscribe(1)
	defer slow.Close()

	b.Publish(Event{Type: EventMetrics})
	// Buffer is full; this must not block and must be dropped.
	done := make(chan struct{})
	go func() {
		b.Publish(Event{Type: EventError})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	ev := <-slow.C()
	if ev.Type != EventMetrics {
		t.Fatalf("got %q, want the first event", ev.Type)
	}
	select {
	case ev := <-slow.C():
		t.Fatalf("unexpected second event %q", ev.Type)
	default:
	}
}

func TestBrokerCloseClosesSubscribers(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe(1)
	b.Close()

	if _, ok := <-sub.C(); ok {
		t.Fatal("channel still open after broker close")
	}
	// Publishing after close is a no-op, not a panic.
	b.Publish(Event{Type: EventCallLog})
	// Subscribing after close yields an already-closed channel.
	late := b.Subscribe(1)
	if _, ok := <-late.C(); ok {
		t.Fatal("late subscription channel open on a closed broker")
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	sub := b.Subscribe(1)
	sub.Close()
	sub.Close()
	b.Publish(Event{Type: EventCallLog})
}
