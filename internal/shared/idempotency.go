package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rinde/rinde/internal/platform/db"
)

// IdempotencyStore persists processed request keys together with the id of
// the record they produced, so a replayed request returns the same result.
type IdempotencyStore struct {
	db db.DBTX
}

// NewIdempotencyStore constructs the store over a pool or a transaction.
func NewIdempotencyStore(q db.DBTX) *IdempotencyStore {
	return &IdempotencyStore{db: q}
}

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// Lookup returns the result recorded for key within the module and location.
func (s *IdempotencyStore) Lookup(ctx context.Context, key, module string, locationID int64) (int64, bool, error) {
	if s == nil {
		return 0, false, errors.New("idempotency store not initialised")
	}
	var resultID int64
	err := s.db.QueryRow(ctx, `SELECT result_id FROM idempotency_keys WHERE key = $1 AND module = $2 AND location_id = $3`,
		key, module, locationID).Scan(&resultID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return resultID, true, nil
}

// Record stores key with its result. A concurrent duplicate reports ErrIdempotencyConflict.
func (s *IdempotencyStore) Record(ctx context.Context, key, module string, locationID, resultID int64) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	_, err := s.db.Exec(ctx, `INSERT INTO idempotency_keys (key, module, location_id, result_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		key, module, locationID, resultID, time.Now())
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
