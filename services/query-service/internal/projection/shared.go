package projection

import (
	"context"
	"time"

	"github.com/avershov/hrstream/libs/db"
)

// The table name is always one of our own constants, never user input.
func lastUpdateTime(ctx context.Context, pool *db.Pool, table string) (*time.Time, error) {
	var last *time.Time
	err := pool.QueryRow(ctx, `SELECT max(last_updated) FROM `+table).Scan(&last)
	if err != nil {
		return nil, err
	}
	return last, nil
}

func count(ctx context.Context, pool *db.Pool, table string) (int64, error) {
	var n int64
	err := pool.QueryRow(ctx, `SELECT count(*) FROM `+table).Scan(&n)
	return n, err
}
