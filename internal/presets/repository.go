package presets

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/ledger"
	"github.com/rinde/rinde/internal/platform/db"
	"github.com/rinde/rinde/internal/platform/httpx"
)

// Reader exposes preset reads.
type Reader interface {
	// ListVisible returns active GLOBAL presets and the location's active LOCAL
	// presets, GLOBAL first, then by display order and name.
	ListVisible(ctx context.Context, locationID int64) ([]Preset, error)
	GetPreset(ctx context.Context, presetID int64) (Preset, error)
	ListItems(ctx context.Context, presetID int64) ([]Item, error)
}

// Repository defines preset data access.
type Repository interface {
	Reader
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository defines operations within a transaction. Movement writes go
// through the ledger queries bound to the same transaction.
type TxRepository interface {
	Reader
	actions.Store
	EnsureAction(ctx context.Context, locationID, actionID int64) error
	ListDayMovements(ctx context.Context, locationID int64, day time.Time, actionIDs []int64) ([]ledger.Movement, error)
	InsertMovement(ctx context.Context, m ledger.Movement) (int64, error)

	CreatePreset(ctx context.Context, p Preset) (int64, error)
	UpdatePreset(ctx context.Context, presetID int64, in UpdatePresetInput) error
	InsertItem(ctx context.Context, it Item) (int64, error)
	DeleteItem(ctx context.Context, presetID, itemID int64) error
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

// Queries runs preset SQL and embeds the ledger queries for placeholder writes.
type Queries struct {
	*ledger.Queries
	db db.DBTX
}

// NewQueries binds queries to q.
func NewQueries(q db.DBTX) *Queries {
	return &Queries{Queries: ledger.NewQueries(q), db: q}
}

const presetColumns = `id, scope, location_id, name, display_order, is_active, updated_at`

func scanPreset(row pgx.Row) (Preset, error) {
	var p Preset
	var scope string
	if err := row.Scan(&p.ID, &scope, &p.LocationID, &p.Name, &p.DisplayOrder, &p.IsActive, &p.UpdatedAt); err != nil {
		return Preset{}, err
	}
	p.Scope = Scope(scope)
	return p, nil
}

func (q *Queries) ListVisible(ctx context.Context, locationID int64) ([]Preset, error) {
	rows, err := q.db.Query(ctx, `SELECT `+presetColumns+` FROM presets
		WHERE is_active AND ((scope = 'GLOBAL' AND location_id IS NULL) OR (scope = 'LOCAL' AND location_id = $1))
		ORDER BY scope, display_order, name`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) GetPreset(ctx context.Context, presetID int64) (Preset, error) {
	p, err := scanPreset(q.db.QueryRow(ctx, `SELECT `+presetColumns+` FROM presets WHERE id = $1`, presetID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Preset{}, httpx.NotFound(CodePresetNotFound)
	}
	return p, err
}

func (q *Queries) ListItems(ctx context.Context, presetID int64) ([]Item, error) {
	rows, err := q.db.Query(ctx, `SELECT id, preset_id, kind, action_id, category, display_order
		FROM preset_items WHERE preset_id = $1 ORDER BY display_order, id`, presetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		var kind string
		var category *string
		if err := rows.Scan(&it.ID, &it.PresetID, &kind, &it.ActionID, &category, &it.DisplayOrder); err != nil {
			return nil, err
		}
		it.Kind = ItemKind(kind)
		if category != nil {
			c := actions.Category(*category)
			it.Category = &c
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (q *Queries) CreatePreset(ctx context.Context, p Preset) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, `INSERT INTO presets (scope, location_id, name, display_order, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now()) RETURNING id`,
		string(p.Scope), p.LocationID, p.Name, p.DisplayOrder, p.IsActive,
	).Scan(&id)
	return id, err
}

func (q *Queries) UpdatePreset(ctx context.Context, presetID int64, in UpdatePresetInput) error {
	tag, err := q.db.Exec(ctx, `UPDATE presets SET
			name = COALESCE($2, name),
			display_order = COALESCE($3, display_order),
			is_active = COALESCE($4, is_active),
			updated_at = now()
		WHERE id = $1`, presetID, in.Name, in.Order, in.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.NotFound(CodePresetNotFound)
	}
	return nil
}

func (q *Queries) InsertItem(ctx context.Context, it Item) (int64, error) {
	var category *string
	if it.Category != nil {
		c := string(*it.Category)
		category = &c
	}
	var id int64
	err := q.db.QueryRow(ctx, `INSERT INTO preset_items (preset_id, kind, action_id, category, display_order)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		it.PresetID, string(it.Kind), it.ActionID, category, it.DisplayOrder,
	).Scan(&id)
	return id, err
}

func (q *Queries) DeleteItem(ctx context.Context, presetID, itemID int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM preset_items WHERE id = $1 AND preset_id = $2`, itemID, presetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.NotFound(CodePresetItemNotFound)
	}
	return nil
}
