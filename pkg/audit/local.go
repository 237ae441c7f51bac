package audit

import (
	"context"
	"errors"
	"sync"
)

// ErrSinkClosed is returned when publishing to a closed sink.
var ErrSinkClosed = errors.New("audit sink is closed")

// Callback is invoked for each event published to a topic.
type Callback func(topic string, event Event)

// LocalSink is an in-memory Sink for library mode. It routes events to
// topics and invokes registered callbacks for each published message, so
// embedders can forward events to their own telemetry without a broker.
type LocalSink struct {
	router    *TopicRouter
	mu        sync.RWMutex
	callbacks []Callback
	closed    bool
}

// Ensure LocalSink implements the Sink interface.
var _ Sink = (*LocalSink)(nil)

// NewLocalSink creates a local sink routing over the given topics.
func NewLocalSink(topics Topics) *LocalSink {
	return &LocalSink{
		router: NewTopicRouter(topics),
	}
}

// OnPublish registers a callback invoked for each (topic, event) pair, in
// registration order.
func (s *LocalSink) OnPublish(cb Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// Publish routes each event and invokes every callback.
func (s *LocalSink) Publish(ctx context.Context, events ...Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSinkClosed
	}

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, topic := range s.router.Route(event) {
			for _, cb := range s.callbacks {
				cb(topic, event)
			}
		}
	}
	return nil
}

// Close marks the sink closed; later publishes return ErrSinkClosed.
func (s *LocalSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
