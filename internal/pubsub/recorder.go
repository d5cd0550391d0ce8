package pubsub

import (
	"sync"
	"time"
)

// Recorder is a synchronous Publisher that keeps every event in order.
// It suits callers that need a complete history, such as tests and run reports.
type Recorder[T any] struct {
	mu     sync.Mutex
	events []Event[T]
}

// NewRecorder creates an empty recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

// Publish appends the event.
func (r *Recorder[T]) Publish(eventType EventType, payload T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event[T]{
		Type:      eventType,
		Payload:   payload,
		Seq:       uint64(len(r.events) + 1),
		Timestamp: time.Now(),
	})
}

// Events returns a copy of the recorded events.
func (r *Recorder[T]) Events() []Event[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event[T], len(r.events))
	copy(out, r.events)
	return out
}

// Reset discards the recorded events.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Fanout publishes each event to every wrapped publisher in order.
type Fanout[T any] []Publisher[T]

// Publish forwards the event to each non-nil publisher.
func (f Fanout[T]) Publish(eventType EventType, payload T) {
	for _, p := range f {
		if p != nil {
			p.Publish(eventType, payload)
		}
	}
}
