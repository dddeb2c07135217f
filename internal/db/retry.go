package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"profecia/internal/apperr"
)

const (
	maxRetryAttempts = 5
	initialBackoff   = 10 * time.Millisecond
)

// WithSerializableRetry runs fn inside a SERIALIZABLE transaction,
// retrying with exponential backoff on Postgres 40001 serialization
// failures — the concurrency strategy spec.md §5 requires for C4/C5's
// matching and resolution transactions.
func WithSerializableRetry(ctx context.Context, s *Store, fn func(tx *sql.Tx) error) error {
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetryAttempts; attempt++ {
		tx, err := s.BeginSerializable(ctx)
		if err != nil {
			return apperr.DatabaseErr(err)
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if IsSerializationFailure(err) {
				time.Sleep(backoff)
				backoff *= 2
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if IsSerializationFailure(err) {
				time.Sleep(backoff)
				backoff *= 2
				continue
			}
			return apperr.DatabaseErr(err)
		}
		return nil
	}
	return apperr.DatabaseErr(fmt.Errorf("exceeded %d attempts on serialization failure", maxRetryAttempts))
}
