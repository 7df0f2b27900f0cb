package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/avershov/hrstream/libs/kafkax"
	otelx "github.com/avershov/hrstream/libs/otel"
)

// Ledger is the slice of Repository the relay needs.
type Ledger interface {
	FetchUnpublished(ctx context.Context, limit int) ([]Record, error)
	MarkPublished(ctx context.Context, id int64) error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Relay drains unpublished ledger records to one Kafka topic, keyed by
// aggregate id. Delivery is at-least-once: a record is marked published only
// after the broker acknowledges the write, and a crash in between means it is
// published again on restart. Consumers dedupe by event id.
type Relay struct {
	ledger      Ledger
	writer      MessageWriter
	logger      *slog.Logger
	pollEvery   time.Duration
	batchSize   int
	sendTimeout time.Duration
}

type RelayConfig struct {
	PollEvery   time.Duration
	BatchSize   int
	SendTimeout time.Duration
}

func NewRelay(ledger Ledger, writer MessageWriter, logger *slog.Logger, cfg RelayConfig) *Relay {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}
	return &Relay{
		ledger:      ledger,
		writer:      writer,
		logger:      logger,
		pollEvery:   cfg.PollEvery,
		batchSize:   cfg.BatchSize,
		sendTimeout: cfg.SendTimeout,
	}
}

// Run polls until ctx is done. The tick body executes on this goroutine, so
// iterations never overlap; a slow batch delays the next tick instead of
// racing it.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil {
				r.logger.Error("outbox poll failed", "err", err)
			}
		}
	}
}

// RelayOnce performs a single poll-and-publish pass and returns how many
// records were published and marked. A publish or mark failure on one record
// is logged and skipped; the record stays unpublished and retries next tick.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	records, err := r.ledger.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, rcd := range records {
		if err := r.publishOne(ctx, rcd); err != nil {
			r.logger.Error("failed to publish outbox record",
				"id", rcd.ID, "aggregate_id", rcd.AggregateID, "event_type", rcd.EventType, "err", err)
			continue
		}
		if err := r.ledger.MarkPublished(ctx, rcd.ID); err != nil {
			// Broker has the message but the ledger still says unpublished:
			// next tick re-publishes, a duplicate the consumer dedupes.
			r.logger.Error("failed to mark outbox record published", "id", rcd.ID, "err", err)
			continue
		}
		published++
		r.logger.Info("published event",
			"aggregate_type", rcd.AggregateType, "aggregate_id", rcd.AggregateID, "event_type", rcd.EventType)
	}
	return published, nil
}

func (r *Relay) publishOne(ctx context.Context, rcd Record) error {
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()

	msgCtx := otelx.ContextWithTraceContext(sendCtx, rcd.Traceparent, rcd.Tracestate)
	msg := kafka.Message{
		Key:   []byte(rcd.AggregateID),
		Value: rcd.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(rcd.EventID)},
			{Key: "event_type", Value: []byte(rcd.EventType)},
		},
	}
	msg.Headers = kafkax.InjectTraceHeaders(msgCtx, msg.Headers)
	return r.writer.WriteMessages(msgCtx, msg)
}
