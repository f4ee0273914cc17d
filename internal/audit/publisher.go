package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"credon/internal/platform/middleware"
	"credon/pkg/domain"
)

// Publisher fans audit events out to a primary store and optional extra
// sinks. Sink failures are logged, never surfaced; the audit trail must not
// break the operation it records.
type Publisher struct {
	store  Store
	sinks  []Store
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithSink adds a secondary write-only sink.
func WithSink(sink Store) Option {
	return func(p *Publisher) {
		p.sinks = append(p.sinks, sink)
	}
}

// WithAsyncBuffer queues events and persists them in a background goroutine.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// NewPublisher creates an audit publisher over the primary store.
func NewPublisher(store Store, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.events {
		p.persist(context.Background(), event)
	}
}

func (p *Publisher) persist(ctx context.Context, event Event) {
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.Error("failed to persist audit event", "action", event.Action, "error", err)
	}
	for _, sink := range p.sinks {
		if err := sink.Append(ctx, event); err != nil {
			p.logger.Warn("audit sink rejected event", "action", event.Action, "error", err)
		}
	}
}

// Emit records one audit event. With an async buffer a full queue drops the
// event and logs it rather than blocking the caller. Events emitted inside a
// request pick up the caller's parsed client metadata unless already set.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Client == "" {
		event.Client = middleware.GetClientMeta(ctx).String()
	}
	if p.async {
		select {
		case p.events <- event:
		default:
			p.logger.Warn("audit buffer full, event dropped", "action", event.Action)
		}
		return
	}
	p.persist(ctx, event)
}

// List returns the audit trail for one holder label.
func (p *Publisher) List(ctx context.Context, label domain.Label) ([]Event, error) {
	return p.store.ListByLabel(ctx, label)
}

// Close drains the async queue.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}
