// Package events is the in-process change-notification bus. Cart and
// favorites mutations publish per-owner events; the SSE endpoint subscribes
// so clients refetch on any change, including their own writes.
package events

import (
	"sync"
	"time"
)

// Event names a change for one owner. Subscribers refetch rather than
// patching state from the event, so the payload stays minimal.
type Event struct {
	Owner string    `json:"-"`
	Topic string    `json:"topic"`
	At    time.Time `json:"at"`
}

const (
	TopicCartChanged      = "cart.changed"
	TopicFavoritesChanged = "favorites.changed"
)

type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]chan Event)}
}

// Subscribe registers for one owner's events. The returned cancel func must
// be called when the consumer goes away.
func (b *Bus) Subscribe(owner string) (<-chan Event, func()) {
	ch := make(chan Event, 8)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[owner] == nil {
		b.subs[owner] = make(map[int]chan Event)
	}
	b.subs[owner][id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if owners, ok := b.subs[owner]; ok {
			delete(owners, id)
			if len(owners) == 0 {
				delete(b.subs, owner)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish fans out to the owner's subscribers. Slow subscribers drop events
// rather than blocking the mutation path; a dropped event only costs an
// extra refetch.
func (b *Bus) Publish(owner, topic string) {
	ev := Event{Owner: owner, Topic: topic, At: time.Now().UTC()}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[owner] {
		select {
		case ch <- ev:
		default:
		}
	}
}
