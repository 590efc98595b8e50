package actions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rinde/rinde/internal/platform/db"
	"github.com/rinde/rinde/internal/platform/httpx"
)

// Store exposes catalog and override reads. Implementations work both inside
// and outside a transaction.
type Store interface {
	ListDefinitions(ctx context.Context, activeOnly bool) ([]Definition, error)
	GetDefinition(ctx context.Context, actionID int64) (Definition, error)
	ListOverrides(ctx context.Context, locationID int64) ([]Override, error)
	GetOverride(ctx context.Context, locationID, actionID int64) (*Override, error)
}

// Repository defines action data access.
type Repository interface {
	Store
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository defines operations within a transaction.
type TxRepository interface {
	Store
	EnsureLocation(ctx context.Context, locationID int64) (int64, error)
	EnsureAction(ctx context.Context, locationID, actionID int64) error
	SaveOverride(ctx context.Context, ov Override) error
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

// Queries runs catalog and override SQL against a pool or a transaction. Other
// packages embed it in their transactional repositories to ensure and resolve
// actions within their own transactions.
type Queries struct {
	db db.DBTX
}

// NewQueries binds queries to q.
func NewQueries(q db.DBTX) *Queries {
	return &Queries{db: q}
}

const definitionColumns = `id, name, category, default_type, impacts_total_default, uses_shift, uses_name, is_active`

func scanDefinition(row pgx.Row) (Definition, error) {
	var d Definition
	var category, defaultType string
	if err := row.Scan(&d.ID, &d.Name, &category, &defaultType, &d.ImpactsTotalDefault, &d.UsesShift, &d.UsesName, &d.IsActive); err != nil {
		return Definition{}, err
	}
	d.Category = Category(category)
	d.DefaultType = MovementType(defaultType)
	return d, nil
}

func (q *Queries) ListDefinitions(ctx context.Context, activeOnly bool) ([]Definition, error) {
	rows, err := q.db.Query(ctx, `SELECT `+definitionColumns+` FROM actions WHERE is_active OR NOT $1 ORDER BY id`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Definition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *Queries) GetDefinition(ctx context.Context, actionID int64) (Definition, error) {
	d, err := scanDefinition(q.db.QueryRow(ctx, `SELECT `+definitionColumns+` FROM actions WHERE id = $1`, actionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Definition{}, httpx.NotFound(CodeActionNotFound)
	}
	return d, err
}

const overrideColumns = `location_id, action_id, is_enabled, display_order, type_override, impacts_total,
	impacts_total_since, uses_shift_override, uses_name_override, updated_at`

func scanOverride(row pgx.Row) (Override, error) {
	var ov Override
	var typeOverride *string
	if err := row.Scan(&ov.LocationID, &ov.ActionID, &ov.IsEnabled, &ov.DisplayOrder, &typeOverride,
		&ov.ImpactsTotal, &ov.ImpactsTotalSince, &ov.UsesShiftOverride, &ov.UsesNameOverride, &ov.UpdatedAt); err != nil {
		return Override{}, err
	}
	if typeOverride != nil {
		t := MovementType(*typeOverride)
		ov.TypeOverride = &t
	}
	return ov, nil
}

func (q *Queries) ListOverrides(ctx context.Context, locationID int64) ([]Override, error) {
	rows, err := q.db.Query(ctx, `SELECT `+overrideColumns+` FROM location_actions
		WHERE location_id = $1 ORDER BY display_order, updated_at DESC`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Override
	for rows.Next() {
		ov, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ov)
	}
	return out, rows.Err()
}

func (q *Queries) GetOverride(ctx context.Context, locationID, actionID int64) (*Override, error) {
	ov, err := scanOverride(q.db.QueryRow(ctx, `SELECT `+overrideColumns+` FROM location_actions
		WHERE location_id = $1 AND action_id = $2`, locationID, actionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ov, nil
}

// EnsureLocation inserts the default override row for every active catalog
// action the location is missing. Existing rows are never touched.
func (q *Queries) EnsureLocation(ctx context.Context, locationID int64) (int64, error) {
	tag, err := q.db.Exec(ctx, `INSERT INTO location_actions (location_id, action_id, is_enabled, display_order, impacts_total, updated_at)
		SELECT $1, a.id, TRUE, 0, a.impacts_total_default, now()
		FROM actions a
		WHERE a.is_active
		ON CONFLICT (location_id, action_id) DO NOTHING`, locationID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// EnsureAction is EnsureLocation restricted to a single action.
func (q *Queries) EnsureAction(ctx context.Context, locationID, actionID int64) error {
	_, err := q.db.Exec(ctx, `INSERT INTO location_actions (location_id, action_id, is_enabled, display_order, impacts_total, updated_at)
		SELECT $1, a.id, TRUE, 0, a.impacts_total_default, now()
		FROM actions a
		WHERE a.is_active AND a.id = $2
		ON CONFLICT (location_id, action_id) DO NOTHING`, locationID, actionID)
	return err
}

func (q *Queries) SaveOverride(ctx context.Context, ov Override) error {
	var typeOverride *string
	if ov.TypeOverride != nil {
		s := string(*ov.TypeOverride)
		typeOverride = &s
	}
	tag, err := q.db.Exec(ctx, `UPDATE location_actions SET
			is_enabled = $3, display_order = $4, type_override = $5, impacts_total = $6,
			impacts_total_since = $7, uses_shift_override = $8, uses_name_override = $9, updated_at = now()
		WHERE location_id = $1 AND action_id = $2`,
		ov.LocationID, ov.ActionID, ov.IsEnabled, ov.DisplayOrder, typeOverride, ov.ImpactsTotal,
		ov.ImpactsTotalSince, ov.UsesShiftOverride, ov.UsesNameOverride)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.NotFound(CodeActionNotFound)
	}
	return nil
}

// LoadEffective resolves every active catalog action for the location without
// provisioning missing override rows.
func LoadEffective(ctx context.Context, s Store, locationID int64) ([]Effective, error) {
	return loadResolved(ctx, s, locationID, true)
}

// LoadIndex resolves every catalog action, deactivated ones included, so
// movements recorded before a deactivation keep their impacts-total flag.
func LoadIndex(ctx context.Context, s Store, locationID int64) (Index, error) {
	all, err := loadResolved(ctx, s, locationID, false)
	if err != nil {
		return nil, err
	}
	return NewIndex(all), nil
}

func loadResolved(ctx context.Context, s Store, locationID int64, activeOnly bool) ([]Effective, error) {
	defs, err := s.ListDefinitions(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	ovs, err := s.ListOverrides(ctx, locationID)
	if err != nil {
		return nil, err
	}
	byAction := make(map[int64]Override, len(ovs))
	for _, ov := range ovs {
		byAction[ov.ActionID] = ov
	}
	return ResolveAll(defs, byAction), nil
}

// LoadAction resolves a single action. Unknown and inactive actions report ACTION_NOT_FOUND.
func LoadAction(ctx context.Context, s Store, locationID, actionID int64) (Effective, error) {
	def, err := s.GetDefinition(ctx, actionID)
	if err != nil {
		return Effective{}, err
	}
	if !def.IsActive {
		return Effective{}, httpx.NotFound(CodeActionNotFound)
	}
	ov, err := s.GetOverride(ctx, locationID, actionID)
	if err != nil {
		return Effective{}, err
	}
	return Resolve(def, ov), nil
}

// RequireUsable resolves an action and rejects it unless user flows may write
// movements for it at the location.
func RequireUsable(ctx context.Context, s Store, locationID, actionID int64) (Effective, error) {
	eff, err := LoadAction(ctx, s, locationID, actionID)
	if err != nil {
		return Effective{}, err
	}
	if eff.Category == CategoryPartner {
		return Effective{}, httpx.Conflict(CodePartnerDisabled, "partner actions cannot be used")
	}
	if !eff.Enabled {
		return Effective{}, httpx.Conflict(CodeActionNotEnabled, "action is disabled at this location")
	}
	return eff, nil
}
