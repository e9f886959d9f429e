package events

import (
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(4)
	defer cancel()

	batch := Batch{
		Op: "OpenOrder",
		At: time.Now(),
		Events: []Event{
			{Name: "OpenOrder", Fields: map[string]any{"maker": "0xmaker"}},
		},
	}
	bus.Publish(batch)

	select {
	case got := <-ch:
		if got.Op != "OpenOrder" || len(got.Events) != 1 {
			t.Errorf("unexpected batch: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("batch never arrived")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(Batch{Op: "first"})
	bus.Publish(Batch{Op: "second"}) // buffer full, dropped

	got := <-ch
	if got.Op != "first" {
		t.Errorf("got %s, want first", got.Op)
	}
	select {
	case extra := <-ch:
		t.Errorf("expected the second batch to be dropped, got %s", extra.Op)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	cancel()
	cancel() // idempotent

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after cancel")
	}

	// publishing after cancel must not panic
	bus.Publish(Batch{Op: "late"})
}
