package queue

import (
	"sync"
	"time"
)

// EventType names a queue change.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is broadcast to subscribers after a change is persisted. Case is
// nil for deletions.
type Event struct {
	Type      EventType `json:"type"`
	PatientID string    `json:"patient_id"`
	Case      *Case     `json:"patient,omitempty"`
	Stats     *Stats    `json:"stats,omitempty"`
	Time      time.Time `json:"time"`
}

// Broker fans events out to subscribers. A subscriber that falls behind
// loses events rather than stalling the writer.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	onChange    func(count int)
}

// NewBroker creates a broker. onChange, if set, receives the subscriber
// count whenever it changes.
func NewBroker(onChange func(count int)) *Broker {
	return &Broker{
		subscribers: make(map[chan Event]struct{}),
		onChange:    onChange,
	}
}

// Subscribe registers a listener with the given buffer. The returned
// function unsubscribes and closes the channel; it is safe to call twice.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	count := len(b.subscribers)
	b.mu.Unlock()
	b.notify(count)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, ch)
			close(ch)
			count := len(b.subscribers)
			b.mu.Unlock()
			b.notify(count)
		})
	}
}

// Publish delivers ev to every subscriber with room in its buffer and
// returns how many received it.
func (b *Broker) Publish(ev Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for ch := range b.subscribers {
		select {
		case ch <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the current listener count.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broker) notify(count int) {
	if b.onChange != nil {
		b.onChange(count)
	}
}
