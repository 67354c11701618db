// Package relay drains the transactional outbox into Kafka. The status write
// and the outbox insert commit together, so the relay can publish with
// at-least-once semantics and downstream consumers deduplicate on entry ID.
package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	platformmetrics "chrona/internal/platform/metrics"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Relay polls the outbox table and publishes pending rows to the workflow log
// topic. Rows are claimed with SKIP LOCKED so multiple replicas can run
// concurrently without double-publishing inside a healthy cluster.
type Relay struct {
	db       *sql.DB
	client   *kgo.Client
	topic    string
	logger   *slog.Logger
	metrics  *platformmetrics.Metrics
	interval time.Duration
	batch    int
}

// Option configures the Relay.
type Option func(*Relay)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

// WithBatchSize overrides the rows claimed per poll.
func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batch = n }
}

// WithMetrics wires publish counters.
func WithMetrics(m *platformmetrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// New constructs a relay with its own Kafka client. Close releases the client.
func New(db *sql.DB, brokers []string, topic string, logger *slog.Logger, opts ...Option) (*Relay, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	r := &Relay{
		db:       db,
		client:   client,
		topic:    topic,
		logger:   logger,
		interval: defaultInterval,
		batch:    defaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// EnsureTopic creates the log topic if the cluster does not have it yet.
func (r *Relay) EnsureTopic(ctx context.Context) error {
	admin := kadm.NewClient(r.client)
	resp, err := admin.CreateTopic(ctx, -1, -1, nil, r.topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", r.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", r.topic, resp.Err)
	}
	return nil
}

// Run polls until the context is cancelled. A failed drain is logged and
// retried on the next tick; unpublished rows stay in the outbox.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// Close flushes and releases the Kafka client.
func (r *Relay) Close() {
	r.client.Close()
}

type outboxRow struct {
	id          uuid.UUID
	aggregateID uuid.UUID
	eventType   string
	payload     []byte
}

// drain claims a batch of unpublished rows, produces them, and marks the
// published ones. Publishing and marking happen in the claiming transaction:
// if marking fails the rows are re-delivered later, which at-least-once
// allows.
func (r *Relay) drain(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batch)
	if err != nil {
		return fmt.Errorf("claim outbox rows: %w", err)
	}

	var pending []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.aggregateID, &row.eventType, &row.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate outbox rows: %w", err)
	}
	rows.Close()

	if len(pending) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(pending))
	for _, row := range pending {
		records = append(records, &kgo.Record{
			// Key by subject so per-subject ordering survives partitioning.
			Key:   []byte(row.aggregateID.String()),
			Value: row.payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(row.eventType)},
			},
		})
	}

	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		if r.metrics != nil {
			r.metrics.RelayPublishFailures.Add(float64(len(pending)))
		}
		return fmt.Errorf("produce outbox batch: %w", err)
	}

	ids := make([]string, 0, len(pending))
	for _, row := range pending {
		ids = append(ids, row.id.String())
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])
	`, time.Now(), pq.Array(ids)); err != nil {
		return fmt.Errorf("mark outbox rows published: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outbox tx: %w", err)
	}
	if r.metrics != nil {
		r.metrics.RelayPublished.Add(float64(len(pending)))
	}
	r.logger.DebugContext(ctx, "outbox batch published", "count", len(pending))
	return nil
}
