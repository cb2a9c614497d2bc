// Package events carries typed notifications from the sync core to the
// presentation layer. The core never touches presentation state; it
// publishes events and subscribers decide whether to re-render.
package events

import "sync"

// QueueDrained is published once per reconciliation sweep, even when
// some items remain queued.
type QueueDrained struct {
	Synced  int
	Failed  int
	Dropped int
}

// DataRefreshed is published when a background refresh replaced the
// cached story snapshot.
type DataRefreshed struct {
	Count int
}

// Event is one of the notification types above.
type Event any

const subscriberBuffer = 8

// Bus is a small publish/subscribe fan-out. Publishing never blocks:
// a subscriber that falls behind misses events rather than stalling
// the reconciler.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
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

// Publish delivers ev to every current subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
