package settlement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/rinde/rinde/internal/platform/db"
	"github.com/rinde/rinde/internal/platform/httpx"
)

// CodePercentageInvalid is reported for partner percentages outside 1..99.
const CodePercentageInvalid = "PERCENTAGE_INVALID"

// DefaultPercentage is shown for locations that never configured sharing.
const DefaultPercentage = 50

var hundred = decimal.NewFromInt(100)

// ShareConfig is the partner share of a location, stored as a fraction of one.
type ShareConfig struct {
	IsEnabled bool
	Fraction  decimal.Decimal
}

// DefaultShare is the configuration of a location without a stored row.
func DefaultShare() ShareConfig {
	return ShareConfig{Fraction: decimal.NewFromInt(DefaultPercentage).Div(hundred)}
}

// Percentage renders the fraction as a whole percentage.
func (c ShareConfig) Percentage() int {
	return int(c.Fraction.Mul(hundred).Round(0).IntPart())
}

// Effective is the fraction used by settlement: zero while sharing is disabled.
func (c ShareConfig) Effective() decimal.Decimal {
	if !c.IsEnabled {
		return decimal.Zero
	}
	return c.Fraction
}

// ShareInput is the payload of a partner share update.
type ShareInput struct {
	IsEnabled  *bool `json:"isEnabled"`
	Percentage *int  `json:"percentage"`
}

// ToConfig validates the input and converts the percentage to a fraction.
func (in ShareInput) ToConfig() (ShareConfig, error) {
	if in.IsEnabled == nil || in.Percentage == nil {
		return ShareConfig{}, httpx.Validation("BAD_REQUEST", "isEnabled and percentage are required")
	}
	pct := *in.Percentage
	if pct < 1 || pct > 99 {
		return ShareConfig{}, httpx.Validation(CodePercentageInvalid, "percentage must be between 1 and 99")
	}
	return ShareConfig{IsEnabled: *in.IsEnabled, Fraction: decimal.NewFromInt(int64(pct)).Div(hundred)}, nil
}

// ShareRepository persists partner share configuration.
type ShareRepository interface {
	// GetShare returns DefaultShare when the location has no row.
	GetShare(ctx context.Context, locationID int64) (ShareConfig, error)
	SaveShare(ctx context.Context, locationID int64, cfg ShareConfig) error
}

type pgShareRepository struct {
	db db.DBTX
}

// NewShareRepository returns a PostgreSQL-backed ShareRepository.
func NewShareRepository(q db.DBTX) ShareRepository {
	return &pgShareRepository{db: q}
}

func (r *pgShareRepository) GetShare(ctx context.Context, locationID int64) (ShareConfig, error) {
	var cfg ShareConfig
	var fraction string
	err := r.db.QueryRow(ctx, `SELECT is_enabled, share_fraction::text
		FROM partner_share_configs WHERE location_id = $1`, locationID).Scan(&cfg.IsEnabled, &fraction)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultShare(), nil
	}
	if err != nil {
		return ShareConfig{}, err
	}
	cfg.Fraction, err = decimal.NewFromString(fraction)
	return cfg, err
}

func (r *pgShareRepository) SaveShare(ctx context.Context, locationID int64, cfg ShareConfig) error {
	_, err := r.db.Exec(ctx, `INSERT INTO partner_share_configs (location_id, is_enabled, share_fraction, updated_at)
		VALUES ($1, $2, $3::numeric, now())
		ON CONFLICT (location_id) DO UPDATE
		SET is_enabled = EXCLUDED.is_enabled, share_fraction = EXCLUDED.share_fraction, updated_at = now()`,
		locationID, cfg.IsEnabled, cfg.Fraction.StringFixed(4))
	return err
}
