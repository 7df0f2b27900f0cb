package processed

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avershov/hrstream/libs/db"
)

// Event identifies one logical event instance. A row's presence means the
// event was already applied and must be skipped.
type Event struct {
	EventID   string
	Topic     string
	Offset    int64
	Partition int
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert records the event inside the caller's transaction and reports
// whether it was new. ON CONFLICT DO NOTHING keeps a duplicate from aborting
// the transaction, so the idempotency check and the projection upsert stay in
// one atomic unit with no check-then-act window.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, evt Event) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO processed_events (event_id, topic, event_offset, partition_id, processed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
	`, evt.EventID, evt.Topic, evt.Offset, evt.Partition, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Count reports how many distinct events this consumer has applied.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM processed_events`).Scan(&n)
	return n, err
}
