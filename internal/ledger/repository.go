package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/calendar"
	"github.com/rinde/rinde/internal/platform/db"
	"github.com/rinde/rinde/internal/platform/httpx"
	"github.com/rinde/rinde/internal/shared"
)

// IdempotencyModule scopes movement idempotency keys.
const IdempotencyModule = "movements"

// Reader exposes movement reads usable inside and outside a transaction.
type Reader interface {
	actions.Store
	// ListMovements returns movements ordered by date descending then id.
	// A nil bounds lists every movement of the location.
	ListMovements(ctx context.Context, locationID int64, bounds *calendar.Bounds) ([]Movement, error)
	LastMovementDate(ctx context.Context, locationID int64) (*time.Time, error)
	// ListDayMovements returns the movements of one day in insertion order,
	// optionally restricted to actionIDs.
	ListDayMovements(ctx context.Context, locationID int64, day time.Time, actionIDs []int64) ([]Movement, error)
}

// Repository defines ledger data access.
type Repository interface {
	Reader
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository defines operations within a transaction.
type TxRepository interface {
	Reader
	EnsureAction(ctx context.Context, locationID, actionID int64) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
	UpdateSlot(ctx context.Context, movementID int64, amount decimal.Decimal, typ actions.MovementType) error
	LookupIdempotency(ctx context.Context, locationID int64, key string) (int64, bool, error)
	RecordIdempotency(ctx context.Context, locationID int64, key string, movementID int64) error
}

var (
	_ Repository   = (*pgRepository)(nil)
	_ TxRepository = (*Queries)(nil)
)

type pgRepository struct {
	*Queries
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{Queries: NewQueries(pool), pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewQueries(tx))
	})
}

// Queries runs movement SQL against a pool or a transaction. It embeds the
// action queries so writers can ensure and resolve actions in the same transaction.
type Queries struct {
	*actions.Queries
	db          db.DBTX
	idempotency *shared.IdempotencyStore
}

// NewQueries binds queries to q.
func NewQueries(q db.DBTX) *Queries {
	return &Queries{Queries: actions.NewQueries(q), db: q, idempotency: shared.NewIdempotencyStore(q)}
}

const movementSelect = `SELECT m.id, m.location_id, m.movement_date, m.action_id, a.name, m.type, m.amount::text,
	m.shift, m.person_name, m.created_by, m.created_at
	FROM movements m JOIN actions a ON a.id = m.action_id`

func scanMovement(row pgx.Row) (Movement, error) {
	var m Movement
	var typ, amount string
	var shift *string
	if err := row.Scan(&m.ID, &m.LocationID, &m.Date, &m.ActionID, &m.ActionName, &typ, &amount,
		&shift, &m.PersonName, &m.CreatedBy, &m.CreatedAt); err != nil {
		return Movement{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Movement{}, err
	}
	m.Amount = d
	m.Type = actions.MovementType(typ)
	if shift != nil {
		s := Shift(*shift)
		m.Shift = &s
	}
	return m, nil
}

func collectMovements(rows pgx.Rows) ([]Movement, error) {
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (q *Queries) ListMovements(ctx context.Context, locationID int64, bounds *calendar.Bounds) ([]Movement, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if bounds == nil {
		rows, err = q.db.Query(ctx, movementSelect+` WHERE m.location_id = $1
			ORDER BY m.movement_date DESC, m.id`, locationID)
	} else {
		rows, err = q.db.Query(ctx, movementSelect+` WHERE m.location_id = $1
			AND m.movement_date >= $2 AND m.movement_date < $3
			ORDER BY m.movement_date DESC, m.id`, locationID, bounds.Start, bounds.End)
	}
	if err != nil {
		return nil, err
	}
	return collectMovements(rows)
}

func (q *Queries) LastMovementDate(ctx context.Context, locationID int64) (*time.Time, error) {
	var last *time.Time
	if err := q.db.QueryRow(ctx, `SELECT max(movement_date) FROM movements WHERE location_id = $1`, locationID).Scan(&last); err != nil {
		return nil, err
	}
	return last, nil
}

func (q *Queries) ListDayMovements(ctx context.Context, locationID int64, day time.Time, actionIDs []int64) ([]Movement, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if actionIDs == nil {
		rows, err = q.db.Query(ctx, movementSelect+` WHERE m.location_id = $1 AND m.movement_date = $2
			ORDER BY m.id`, locationID, day)
	} else {
		rows, err = q.db.Query(ctx, movementSelect+` WHERE m.location_id = $1 AND m.movement_date = $2
			AND m.action_id = ANY($3) ORDER BY m.id`, locationID, day, actionIDs)
	}
	if err != nil {
		return nil, err
	}
	return collectMovements(rows)
}

func (q *Queries) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var shift *string
	if m.Shift != nil {
		s := string(*m.Shift)
		shift = &s
	}
	var id int64
	err := q.db.QueryRow(ctx, `INSERT INTO movements
		(location_id, movement_date, action_id, type, amount, shift, person_name, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, now())
		RETURNING id`,
		m.LocationID, m.Date, m.ActionID, string(m.Type), m.Amount.StringFixed(2), shift, m.PersonName, m.CreatedBy,
	).Scan(&id)
	return id, err
}

func (q *Queries) UpdateSlot(ctx context.Context, movementID int64, amount decimal.Decimal, typ actions.MovementType) error {
	tag, err := q.db.Exec(ctx, `UPDATE movements SET amount = $2::numeric, type = $3 WHERE id = $1`,
		movementID, amount.StringFixed(2), string(typ))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.NotFound("MOVEMENT_NOT_FOUND")
	}
	return nil
}

func (q *Queries) LookupIdempotency(ctx context.Context, locationID int64, key string) (int64, bool, error) {
	return q.idempotency.Lookup(ctx, key, IdempotencyModule, locationID)
}

func (q *Queries) RecordIdempotency(ctx context.Context, locationID int64, key string, movementID int64) error {
	err := q.idempotency.Record(ctx, key, IdempotencyModule, locationID, movementID)
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		return httpx.NewError(httpx.ErrDuplicate, "IDEMPOTENCY_CONFLICT", "request with this key is already in progress")
	}
	return err
}
