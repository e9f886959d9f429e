// Package events carries the audit feed: every committed engine operation
// publishes one batch holding the operation name and the resulting field
// values of every touched entity. Batches are delivered whole, so a
// subscriber observes an operation's events together or not at all.
package events

import (
	"sync"
	"time"
)

// Event is one entity update inside a batch.
type Event struct {
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields"`
}

// Batch is the atomic unit of publication.
type Batch struct {
	Op     string    `json:"op"`
	At     time.Time `json:"at"`
	Events []Event   `json:"events"`
}

// Bus fans batches out to subscribers. Slow subscribers drop batches
// rather than block the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Batch
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Batch)}
}

// Subscribe returns a receive channel and a cancel function. buf bounds
// how far the subscriber may lag before batches are dropped.
func (b *Bus) Subscribe(buf int) (<-chan Batch, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Batch, buf)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers a batch to every subscriber without blocking.
func (b *Bus) Publish(batch Batch) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- batch:
		default:
		}
	}
}
