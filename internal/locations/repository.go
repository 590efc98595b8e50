package locations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/platform/db"
	"github.com/rinde/rinde/internal/platform/httpx"
	"github.com/rinde/rinde/internal/rbac"
)

// Reader exposes location and membership reads.
type Reader interface {
	rbac.MembershipReader
	// ListMemberships returns the user's active memberships at active locations, by name.
	ListMemberships(ctx context.Context, userID int64) ([]rbac.Membership, error)
	GetLocation(ctx context.Context, locationID int64) (Location, error)
	// ListActiveIDs returns every active location id, ascending.
	ListActiveIDs(ctx context.Context) ([]int64, error)
}

// Repository defines location data access.
type Repository interface {
	Reader
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository defines operations within a transaction.
type TxRepository interface {
	Reader
	CreateLocation(ctx context.Context, name string) (Location, error)
	AddMembership(ctx context.Context, userID, locationID int64, role rbac.Role) error
	DeactivateLocation(ctx context.Context, locationID int64) error
	// EnsureLocation provisions override rows for every active catalog action.
	EnsureLocation(ctx context.Context, locationID int64) (int64, error)
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

// Queries runs location SQL against a pool or a transaction.
type Queries struct {
	actions *actions.Queries
	db      db.DBTX
}

// NewQueries binds queries to q.
func NewQueries(q db.DBTX) *Queries {
	return &Queries{actions: actions.NewQueries(q), db: q}
}

const membershipSelect = `SELECT ul.user_id, ul.location_id, l.name, ul.role, ul.is_active, ul.created_at
	FROM user_locations ul JOIN locations l ON l.id = ul.location_id`

func scanMembership(row pgx.Row) (rbac.Membership, error) {
	var m rbac.Membership
	var role string
	if err := row.Scan(&m.UserID, &m.LocationID, &m.LocationName, &role, &m.IsActive, &m.CreatedAt); err != nil {
		return rbac.Membership{}, err
	}
	m.Role = rbac.Role(role)
	return m, nil
}

func (q *Queries) ActiveMembership(ctx context.Context, userID, locationID int64) (rbac.Membership, error) {
	m, err := scanMembership(q.db.QueryRow(ctx, membershipSelect+`
		WHERE ul.user_id = $1 AND ul.location_id = $2 AND ul.is_active AND l.is_active`, userID, locationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return rbac.Membership{}, httpx.NotFound(CodeLocationNotFound)
	}
	return m, err
}

func (q *Queries) ListMemberships(ctx context.Context, userID int64) ([]rbac.Membership, error) {
	rows, err := q.db.Query(ctx, membershipSelect+`
		WHERE ul.user_id = $1 AND ul.is_active AND l.is_active ORDER BY l.name, l.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []rbac.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (q *Queries) GetLocation(ctx context.Context, locationID int64) (Location, error) {
	var l Location
	err := q.db.QueryRow(ctx, `SELECT id, name, is_active, created_at, updated_at FROM locations WHERE id = $1`, locationID).
		Scan(&l.ID, &l.Name, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Location{}, httpx.NotFound(CodeLocationNotFound)
	}
	return l, err
}

func (q *Queries) ListActiveIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.Query(ctx, `SELECT id FROM locations WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (q *Queries) CreateLocation(ctx context.Context, name string) (Location, error) {
	var l Location
	err := q.db.QueryRow(ctx, `INSERT INTO locations (name, is_active, created_at, updated_at)
		VALUES ($1, TRUE, now(), now())
		RETURNING id, name, is_active, created_at, updated_at`, name).
		Scan(&l.ID, &l.Name, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (q *Queries) AddMembership(ctx context.Context, userID, locationID int64, role rbac.Role) error {
	_, err := q.db.Exec(ctx, `INSERT INTO user_locations (user_id, location_id, role, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, now())
		ON CONFLICT (user_id, location_id) DO UPDATE SET role = EXCLUDED.role, is_active = TRUE`,
		userID, locationID, string(role))
	return err
}

func (q *Queries) DeactivateLocation(ctx context.Context, locationID int64) error {
	tag, err := q.db.Exec(ctx, `UPDATE locations SET is_active = FALSE, updated_at = now() WHERE id = $1 AND is_active`, locationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.NotFound(CodeLocationNotFound)
	}
	return nil
}

func (q *Queries) EnsureLocation(ctx context.Context, locationID int64) (int64, error) {
	return q.actions.EnsureLocation(ctx, locationID)
}
