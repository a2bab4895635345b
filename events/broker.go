// Package events fans out call updates to live subscribers.
package events

import (
	"sync"
	"time"

	"call-filter/domain"
)

type EventType string

const (
	EventCallUpdated EventType = "call_updated"
	EventCallDeleted EventType = "call_deleted"
)

type Event struct {
	Type      EventType    `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Call      *domain.Call `json:"call"`
}

// Subscriber receives events on Events until it is closed.
type Subscriber struct {
	Events chan *Event

	once sync.Once
	done chan struct{}
}

func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		close(s.Events)
	})
}

// Broker delivers each published event to every subscriber. A subscriber
// that is not keeping up loses events rather than blocking the publisher.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	buffer      int
}

func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 16
	}
	return &Broker{subscribers: map[*Subscriber]struct{}{}, buffer: buffer}
}

func (b *Broker) Subscribe() *Subscriber {
	sub := &Subscriber{Events: make(chan *Event, b.buffer), done: make(chan struct{})}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *Broker) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	delete(b.subscribers, sub)
	b.mu.Unlock()
	sub.close()
}

// Publish sends a copy of call, so subscribers never see later changes
// made by the publisher.
func (b *Broker) Publish(t EventType, call *domain.Call) {
	event := &Event{Type: t, Timestamp: time.Now().UTC(), Call: call.Clone()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub.Events <- event:
		default:
		}
	}
}

// Close disconnects every subscriber.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		sub.close()
	}
	b.subscribers = map[*Subscriber]struct{}{}
}

func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
