package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/avershov/hrstream/libs/event"
	"github.com/avershov/hrstream/libs/kafkax"
	"github.com/avershov/hrstream/services/query-service/internal/processed"
	"github.com/avershov/hrstream/services/query-service/internal/timing"
)

// Applier adapts one aggregate type to the shared consume loop: how its
// envelope is keyed and how its projection is written.
type Applier interface {
	// IDField is the envelope field carrying the aggregate id, e.g. "personId".
	IDField() string
	// IDPrefix namespaces derived event ids, e.g. "person".
	IDPrefix() string
	// Apply upserts the projection within the consumer's transaction.
	Apply(ctx context.Context, tx pgx.Tx, env event.Envelope, updatedAt time.Time) error
}

// Store is the slice of db.Pool the consumer needs.
type Store interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// DedupeLedger is satisfied by *processed.Repository.
type DedupeLedger interface {
	Insert(ctx context.Context, tx pgx.Tx, evt processed.Event) (bool, error)
}

// Consumer applies one topic's events to its projection with
// exactly-once-in-effect semantics: the processed-event insert and the
// projection upsert share a transaction, and the Kafka offset is committed
// only after that transaction commits.
type Consumer struct {
	reader  *kafka.Reader
	store   Store
	dedupe  DedupeLedger
	timings *timing.Tracker
	applier Applier
	logger  *slog.Logger
	backoff time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
	// Backoff between retries of a failing message. The message is retried
	// until it applies; a poisoned payload blocks its partition loudly rather
	// than being dropped.
	Backoff time.Duration
}

func New(store Store, dedupe DedupeLedger, timings *timing.Tracker,
	applier Applier, logger *slog.Logger, cfg Config) *Consumer {
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:  reader,
		store:   store,
		dedupe:  dedupe,
		timings: timings,
		applier: applier,
		logger:  logger.With("topic", cfg.Topic),
		backoff: cfg.Backoff,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			if !sleep(ctx, c.backoff) {
				return
			}
			continue
		}

		for {
			err := c.processMessage(ctx, msg)
			if err == nil {
				break
			}
			c.logger.Error("failed to process event, will retry",
				"partition", msg.Partition, "offset", msg.Offset, "err", err)
			if !sleep(ctx, c.backoff) {
				return
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			// Uncommitted offsets mean redelivery after rebalance; the
			// processed-event ledger absorbs the duplicates.
			c.logger.Error("kafka commit error", "err", err)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	receivedAt := time.Now().UTC()

	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("query-service").Start(ctxMsg, "projection.apply",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	env, err := event.Decode(c.applier.IDField(), msg.Value)
	if err != nil {
		span.RecordError(err)
		return err
	}

	meta := kafkax.ExtractEventMeta(msg)
	eventID := meta.EventID
	if eventID == "" {
		// Pre-header producers: fall back to the envelope's own identity.
		eventID = event.DeriveID(c.applier.IDPrefix(), env.AggregateID, env.Timestamp)
	}

	applied := false
	err = c.store.WithTx(ctxSpan, func(tx pgx.Tx) error {
		fresh, err := c.dedupe.Insert(ctxSpan, tx, processed.Event{
			EventID:   eventID,
			Topic:     msg.Topic,
			Offset:    msg.Offset,
			Partition: msg.Partition,
		})
		if err != nil {
			return fmt.Errorf("record processed event: %w", err)
		}
		if !fresh {
			return nil
		}
		applied = true
		return c.applier.Apply(ctxSpan, tx, env, time.Now().UTC())
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	if !applied {
		c.logger.Info("duplicate event ignored", "event_id", eventID, "event_type", env.EventType)
		return nil
	}

	// Best effort, outside the transaction: losing a timing sample never
	// affects projection correctness.
	c.timings.Record(timing.Calculate(env.AggregateID, env.EventType, env.Timestamp, receivedAt, time.Now().UTC()))

	c.logger.Info("applied event",
		"event_id", eventID, "event_type", env.EventType, "aggregate_id", env.AggregateID)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
