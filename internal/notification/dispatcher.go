package notification

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"chrona/internal/auditlog"
	platformmetrics "chrona/internal/platform/metrics"
	"chrona/internal/workflow/models"
	id "chrona/pkg/domain"
	dErrors "chrona/pkg/domain-errors"
)

// Renderer resolves a notification type and locale to a title and body.
// Implemented by the locale catalog.
type Renderer interface {
	Render(typ Type, locale string, args ...any) (title, body string)
}

// LocaleDirectory resolves a recipient's notification locale. Supplied by
// the identity collaborator; an empty result falls back to the dispatcher's
// default locale.
type LocaleDirectory interface {
	LocaleFor(ctx context.Context, userID id.UserID) (string, error)
}

// Deduper makes redelivery idempotent across restarts: a log entry claimed
// once is never dispatched again. Implemented by the Redis client; nil
// disables dedupe.
type Deduper interface {
	// Claim returns true the first time a key is claimed.
	Claim(ctx context.Context, key string) (bool, error)
}

type task struct {
	entry      auditlog.Entry
	subject    *models.Subject
	submission bool
}

// Dispatcher consumes committed transitions from a bounded queue and turns
// them into persisted, delivered notifications. It is the fire-and-forget
// half of the engine: nothing here can fail a transition that already
// committed.
type Dispatcher struct {
	deriver  *Deriver
	renderer Renderer
	store    Store
	sinks    []Sink
	deduper  Deduper
	locales  LocaleDirectory
	logger   *slog.Logger
	metrics  *platformmetrics.Metrics

	queue       chan task
	maxAttempts int
	baseBackoff time.Duration
	locale      string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize bounds the dispatch queue. When the queue is full new tasks
// are dropped with a log line rather than blocking the committer.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan task, n)
		}
	}
}

// WithRetry tunes delivery attempts and the base backoff between them.
func WithRetry(maxAttempts int, baseBackoff time.Duration) Option {
	return func(d *Dispatcher) {
		if maxAttempts > 0 {
			d.maxAttempts = maxAttempts
		}
		if baseBackoff > 0 {
			d.baseBackoff = baseBackoff
		}
	}
}

// WithDeduper enables cross-restart dispatch dedupe.
func WithDeduper(deduper Deduper) Option {
	return func(d *Dispatcher) { d.deduper = deduper }
}

// WithMetrics wires the dispatcher's observability counters.
func WithMetrics(m *platformmetrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLocale overrides the fallback rendering locale.
func WithLocale(locale string) Option {
	return func(d *Dispatcher) {
		if locale != "" {
			d.locale = locale
		}
	}
}

// WithLocales renders each notification in the recipient's own locale
// instead of the fallback.
func WithLocales(locales LocaleDirectory) Option {
	return func(d *Dispatcher) { d.locales = locales }
}

func NewDispatcher(deriver *Deriver, renderer Renderer, store Store, sinks []Sink, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		deriver:     deriver,
		renderer:    renderer,
		store:       store,
		sinks:       sinks,
		logger:      logger,
		queue:       make(chan task, 1024),
		maxAttempts: 3,
		baseBackoff: 250 * time.Millisecond,
		locale:      "en",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnCommitted enqueues a committed transition for dispatch. It never blocks:
// when the queue is full the event is dropped and counted, because a slow
// notification pipeline must not slow down approvals.
func (d *Dispatcher) OnCommitted(entry auditlog.Entry, subject *models.Subject) {
	d.enqueue(task{entry: entry, subject: subject})
}

// OnSubmitted enqueues approver fan-out for a freshly created PENDING subject.
func (d *Dispatcher) OnSubmitted(subject *models.Subject) {
	d.enqueue(task{subject: subject, submission: true})
}

func (d *Dispatcher) enqueue(t task) {
	select {
	case d.queue <- t:
		if d.metrics != nil {
			d.metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
		}
	default:
		d.logger.Error("dispatch queue full, dropping event",
			"subject_id", t.subject.ID.String(),
			"submission", t.submission,
		)
	}
}

// Run consumes the queue with a pool of workers until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case t := <-d.queue:
					if d.metrics != nil {
						d.metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
					}
					d.process(ctx, t)
				}
			}
		})
	}
	return g.Wait()
}

func (d *Dispatcher) process(ctx context.Context, t task) {
	if claimed := d.claim(ctx, t); !claimed {
		return
	}

	var (
		intents []Intent
		err     error
	)
	if t.submission {
		intents, err = d.deriver.DeriveSubmission(ctx, t.subject)
	} else {
		intents, err = d.deriver.Derive(ctx, t.entry, t.subject)
	}
	if err != nil {
		d.logger.Error("derive notification intents",
			"error", err,
			"subject_id", t.subject.ID.String(),
		)
		return
	}

	for _, intent := range intents {
		d.dispatchIntent(ctx, intent, t.subject)
	}
}

func (d *Dispatcher) claim(ctx context.Context, t task) bool {
	if d.deduper == nil {
		return true
	}
	key := "dispatch:" + t.entry.ID.String()
	if t.submission {
		key = "dispatch:submitted:" + t.subject.ID.String()
	}
	claimed, err := d.deduper.Claim(ctx, key)
	if err != nil {
		// Dedupe is best-effort; at-least-once beats dropping on a Redis
		// hiccup.
		d.logger.Warn("dispatch dedupe unavailable", "error", err)
		return true
	}
	return claimed
}

func (d *Dispatcher) dispatchIntent(ctx context.Context, intent Intent, subject *models.Subject) {
	title, body := d.renderer.Render(intent.Type, d.recipientLocale(ctx, intent.Recipient), subject.ID.String())

	n := &Notification{
		ID:        id.NewNotificationID(),
		Recipient: intent.Recipient,
		Type:      intent.Type,
		Title:     title,
		Message:   body,
		Status:    DeliveryPending,
		CreatedAt: time.Now(),
	}
	if err := d.store.Create(ctx, n); err != nil {
		d.logger.Error("persist notification",
			"error", err,
			"recipient", intent.Recipient.String(),
			"type", string(intent.Type),
		)
		return
	}

	failed := false
	for _, sink := range d.sinks {
		if err := d.deliverWithRetry(ctx, sink, *n); err != nil {
			failed = true
			if d.metrics != nil {
				d.metrics.NotificationsFailed.WithLabelValues(string(sink.Channel())).Inc()
			}
			d.logger.Error("notification delivery exhausted",
				"error", err,
				"channel", string(sink.Channel()),
				"notification_id", n.ID.String(),
			)
		} else if d.metrics != nil {
			d.metrics.NotificationsSent.WithLabelValues(string(sink.Channel())).Inc()
		}
	}

	if failed {
		if err := d.store.MarkFailed(ctx, n.ID); err != nil {
			d.logger.Error("mark notification failed", "error", err, "notification_id", n.ID.String())
		}
		return
	}
	if err := d.store.MarkSent(ctx, n.ID, time.Now()); err != nil {
		d.logger.Error("mark notification sent", "error", err, "notification_id", n.ID.String())
	}
}

// recipientLocale resolves the locale to render in. Lookup failures fall
// back to the default; a missing preference must not block delivery.
func (d *Dispatcher) recipientLocale(ctx context.Context, recipient id.UserID) string {
	if d.locales == nil {
		return d.locale
	}
	loc, err := d.locales.LocaleFor(ctx, recipient)
	if err != nil {
		d.logger.Warn("resolve recipient locale", "error", err, "recipient", recipient.String())
		return d.locale
	}
	if loc == "" {
		return d.locale
	}
	return loc
}

// deliverWithRetry attempts delivery up to maxAttempts times with doubling
// backoff. The returned error is the last attempt's failure.
func (d *Dispatcher) deliverWithRetry(ctx context.Context, sink Sink, n Notification) error {
	var lastErr error
	backoff := d.baseBackoff
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if attempt > 1 {
			if d.metrics != nil {
				d.metrics.DispatchRetries.Inc()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if lastErr = sink.Deliver(ctx, n); lastErr == nil {
			return nil
		}
	}
	return dErrors.Wrap(lastErr, dErrors.CodeDeliveryFailure, "delivery attempts exhausted")
}
