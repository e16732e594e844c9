package service

import (
	"context"
	"encoding/json"
	"sync"

	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/internal/monitoring"

	"github.com/rs/zerolog"
)

type queuedEvent struct {
	eventType string
	data      json.RawMessage
}

// EventPublisher implements ports.EventPublisher. It queues internal events
// and hands them to the sender from a single worker goroutine.
//
// Lifecycle: NewEventPublisher, then Start once, then Close on shutdown.
// Close stops intake, drains what is queued and waits for the worker.
type EventPublisher struct {
	sender  ports.SenderService
	queue   chan queuedEvent
	metrics *monitoring.Metrics
	log     zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

// NewEventPublisher creates a publisher with the given queue capacity.
func NewEventPublisher(sender ports.SenderService, buffer int, metrics *monitoring.Metrics, log zerolog.Logger) *EventPublisher {
	if buffer <= 0 {
		buffer = 1
	}
	return &EventPublisher{
		sender:  sender,
		queue:   make(chan queuedEvent, buffer),
		metrics: metrics,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Start launches the worker. Calls after the first are no-ops.
func (p *EventPublisher) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	go p.run(ctx)
}

func (p *EventPublisher) run(ctx context.Context) {
	defer close(p.done)
	for ev := range p.queue {
		summary, err := p.sender.Send(ctx, ports.SendRequest{EventType: ev.eventType, Data: ev.data})
		if err != nil {
			p.log.Error().Err(err).Str("event_type", ev.eventType).Msg("publisher: send failed")
			continue
		}
		p.log.Debug().
			Str("event_type", ev.eventType).
			Int("succeeded", summary.Succeeded).
			Int("failed", summary.Failed).
			Msg("publisher: event fanned out")
	}
}

// Publish queues an event without blocking. It returns false when the
// queue is full, the publisher is closed, or data cannot be encoded.
func (p *EventPublisher) Publish(eventType string, data any) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		p.log.Error().Err(err).Str("event_type", eventType).Msg("publisher: encode event")
		p.metrics.RecordPublisherDrop()
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.RecordPublisherDrop()
		return false
	}
	select {
	case p.queue <- queuedEvent{eventType: eventType, data: raw}:
		return true
	default:
		p.log.Warn().Str("event_type", eventType).Msg("publisher: queue full, event dropped")
		p.metrics.RecordPublisherDrop()
		return false
	}
}

// Close stops intake and waits until queued events are sent. Safe to call
// more than once.
func (p *EventPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		if p.started {
			<-p.done
		}
		return
	}
	p.closed = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if !started {
		if n := len(p.queue); n > 0 {
			p.log.Warn().Int("dropped", n).Msg("publisher: closed before start")
		}
		return
	}
	<-p.done
}
