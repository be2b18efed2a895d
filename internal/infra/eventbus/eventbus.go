// Package eventbus is an in-memory publish/subscribe bus. Ingest publishes
// article events; the embedder consumes them.
//
//   - Buffered channel per subscriber (buffer=100).
//   - Publish never blocks: when a buffer is full the event is dropped and counted.
//   - No persistence. A reindex replays pending work from the store.
package eventbus

import (
	"sync"

	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/metrics"
)

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
}

// EventBus publishes to and subscribes on named topics.
type EventBus interface {
	Publish(topic string, payload any)
	Subscribe(topic string) <-chan Event
}

const defaultBufferSize = 100

// Bus is the in-memory EventBus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
	bufferSize  int
	closed      bool
}

// New returns a Bus with the default buffer size.
func New() *Bus {
	return NewWithBuffer(defaultBufferSize)
}

// NewWithBuffer returns a Bus whose subscriber channels hold size events.
func NewWithBuffer(size int) *Bus {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Bus{subscribers: make(map[string][]chan Event), bufferSize: size}
}

// Subscribe returns a channel receiving every event published on topic.
// The channel is closed by Close. Subscribing after Close returns a closed channel.
func (b *Bus) Subscribe(topic string) <-chan Event {
	ch := make(chan Event, b.bufferSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch
}

// Publish delivers an event to all current subscribers of topic.
func (b *Bus) Publish(topic string, payload any) {
	evt := Event{Topic: topic, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- evt:
		default:
			metrics.EventsDropped.WithLabelValues(topic).Inc()
			logging.Warn().Str("topic", topic).Msg("eventbus: subscriber buffer full, event dropped")
		}
	}
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = nil
}
