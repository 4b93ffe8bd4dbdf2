package eventbus

import (
	"sync"
	"time"
)

// BookingEventKind discriminates ledger transitions published on the bus.
type BookingEventKind string

const (
	BookingCreated   BookingEventKind = "created"
	BookingConfirmed BookingEventKind = "confirmed"
	BookingCancelled BookingEventKind = "cancelled"
	MaintenanceSet   BookingEventKind = "maintenance"
)

// Event is a ledger or registry transition consumed by the alert watcher.
type Event struct {
	Kind      BookingEventKind
	BookingID string
	SlotID    string
	Message   string
	At        time.Time
}

// Bus is a fan-out publish/subscribe bus. Delivery is non-blocking: a slow
// subscriber drops events rather than stalling the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	closed bool
}

func New() *Bus { return &Bus{} }

// Publish sends the event to all subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Close closes all subscriber channels and clears the list.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.mu.Unlock()
}
