package events

import (
	"context"
	"log/slog"
	"sync"
)

// Publisher fans registry events out to the configured sinks. It can run
// synchronously (events persisted before Emit returns) or with an async
// buffer so emission never blocks the registry's writer lock.
type Publisher struct {
	sinks  []Sink
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Events are queued and delivered in a background goroutine.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher constructs a publisher delivering to the given sinks.
func NewPublisher(sinks []Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{sinks: sinks}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

// processEvents runs in a goroutine and delivers events from the channel.
func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		p.deliver(context.Background(), event)
	}
}

func (p *Publisher) deliver(ctx context.Context, event Event) {
	for _, sink := range p.sinks {
		if err := sink.Append(ctx, event); err != nil && p.logger != nil {
			p.logger.Error("failed to deliver registry event",
				"error", err,
				"event_type", event.Type,
				"event_id", event.ID,
			)
		}
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

// Emit publishes an event to every sink. In async mode the send is
// non-blocking; if the buffer is full the event is dropped with a warning
// rather than stalling a mutating registry call.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p.async {
		select {
		case p.events <- event:
		default:
			if p.logger != nil {
				p.logger.Warn("event buffer full, event dropped",
					"event_type", event.Type,
					"event_id", event.ID,
				)
			}
		}
		return
	}
	p.deliver(ctx, event)
}
