// Package events provides an in-process publish/subscribe bus for domain events.
//
// Publishing is non-blocking: events are handed to a bounded queue and
// delivered to subscribers from a single dispatch goroutine. A slow consumer
// can never stall the producer; when the queue is full the event is dropped
// and counted.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mbd888/churnsight/internal/idgen"
	"github.com/mbd888/churnsight/internal/metrics"
)

// Topic identifies a domain event stream.
type Topic string

const (
	TopicIntentDetected Topic = "intent.detected"
	TopicRiskComputed   Topic = "risk.computed"
)

// DefaultQueueSize is the bounded queue capacity for undelivered events.
const DefaultQueueSize = 256

// Event is a single published domain event.
type Event struct {
	ID        string    `json:"id"`
	Topic     Topic     `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Handler consumes a published event. Handlers run on the bus dispatch
// goroutine; long-running work should be moved off it by the handler.
type Handler func(ctx context.Context, evt *Event)

// Bus is a bounded in-process pub/sub hub.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]Handler
	queue  chan *Event
	logger *slog.Logger
}

// NewBus creates a bus with the default queue size.
func NewBus(logger *slog.Logger) *Bus {
	return NewBusWithQueue(logger, DefaultQueueSize)
}

// NewBusWithQueue creates a bus with an explicit queue capacity.
func NewBusWithQueue(logger *slog.Logger, queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{
		subs:   make(map[Topic][]Handler),
		queue:  make(chan *Event, queueSize),
		logger: logger,
	}
}

// Subscribe registers a handler for a topic. Must be called before Run for
// deterministic delivery; late subscriptions only see subsequent events.
func (b *Bus) Subscribe(topic Topic, h Handler) {
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], h)
	b.mu.Unlock()
}

// Publish enqueues an event without blocking. Returns false if the queue was
// full and the event was dropped.
func (b *Bus) Publish(topic Topic, data any) bool {
	evt := &Event{
		ID:        idgen.WithPrefix("evt_"),
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	select {
	case b.queue <- evt:
		return true
	default:
		metrics.EventsDroppedTotal.WithLabelValues(string(topic)).Inc()
		b.logger.Warn("event dropped, bus queue full", "topic", topic)
		return false
	}
}

// Run dispatches queued events until ctx is cancelled. Call in a goroutine.
func (b *Bus) Run(ctx context.Context) {
	b.logger.Info("event bus started", "queue_size", cap(b.queue))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("event bus shutting down")
			return
		case evt := <-b.queue:
			b.dispatch(ctx, evt)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, evt *Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.subs[evt.Topic]))
	copy(handlers, b.subs[evt.Topic])
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safeHandle(ctx, h, evt)
	}
}

func (b *Bus) safeHandle(ctx context.Context, h Handler, evt *Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in event handler",
				"topic", evt.Topic,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	h(ctx, evt)
}
