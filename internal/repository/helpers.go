package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// insertBatchSize keeps named batch inserts well below the Postgres parameter limit.
const insertBatchSize = 500

func insertInBatches[T any](ctx context.Context, tx *sqlx.Tx, query string, rows []T) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := tx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return fmt.Errorf("insert batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}
