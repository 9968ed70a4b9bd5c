// Package events carries session events from the timer loop to slower
// consumers such as desktop notifications and the event journal.
package events

import (
	"sync"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// EventSessionStarted is published once the first stage starts counting.
	EventSessionStarted EventType = "session_started"
	// EventFeedback carries an agitate, rest, pulse or stage_complete cue.
	EventFeedback EventType = "feedback"
	// EventStageFinished is published when a stage's countdown reaches zero.
	EventStageFinished EventType = "stage_finished"
	// EventStageStarted is published when a following stage begins.
	EventStageStarted EventType = "stage_started"
	// EventSessionFinished is published after the last stage finishes.
	EventSessionFinished EventType = "session_finished"
	EventPaused          EventType = "paused"
	EventResumed         EventType = "resumed"
	EventReset           EventType = "reset"
	// EventModesReloaded is published when the mode catalog changes on disk.
	EventModesReloaded EventType = "modes_reloaded"
)

// AllEventTypes lists every type, for subscribers that want everything.
var AllEventTypes = []EventType{
	EventSessionStarted,
	EventFeedback,
	EventStageFinished,
	EventStageStarted,
	EventSessionFinished,
	EventPaused,
	EventResumed,
	EventReset,
	EventModesReloaded,
}

// Event represents a session event.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]interface{}
}

// Subscriber is a function that receives events.
type Subscriber func(Event)

// Bus is a non-blocking event bus. Events are delivered asynchronously via
// one buffered channel per subscriber. If a subscriber's channel is full the
// event is dropped for that subscriber, so a stalled notifier can never hold
// up the timer.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan Event
	bufferSize  int
	closed      bool
	wg          sync.WaitGroup
}

// NewBus creates a new event bus with the specified buffer size per subscriber.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers fn for eventType and returns an unsubscribe function.
// fn runs on its own goroutine; a panic in fn is recovered.
func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	if b.closed {
		close(ch)
		return func() {}
	}
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for event := range ch {
			func() {
				defer func() { _ = recover() }()
				fn(event)
			}()
		}
	}()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subscribers[eventType]
		for i, subCh := range subs {
			if subCh == ch {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
}

// SubscribeAll registers fn for every event type.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	unsubs := make([]func(), 0, len(AllEventTypes))
	for _, et := range AllEventTypes {
		unsubs = append(unsubs, b.Subscribe(et, fn))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Publish sends an event to all subscribers of the given type without blocking.
func (b *Bus) Publish(eventType EventType, data map[string]interface{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	for _, ch := range b.subscribers[eventType] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close closes all subscriber channels and clears subscriptions.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, eventType)
	}
	b.closed = true
}

// CloseWait closes the bus and waits up to timeout for subscribers to work
// through what was already queued. It reports whether they finished.
func (b *Bus) CloseWait(timeout time.Duration) bool {
	b.Close()
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
