package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rinde/rinde/internal/calendar"
	"github.com/rinde/rinde/internal/ledger"
	"github.com/rinde/rinde/internal/platform/cache"
)

// Dashboard count bounds.
const (
	DefaultCount = 12
	MaxCount     = 52
)

const cacheName = "dashboard"

// MovementReader is the slice of the ledger the dashboard reads.
type MovementReader interface {
	ListMovements(ctx context.Context, locationID int64, bounds *calendar.Bounds) ([]ledger.Movement, error)
	LastMovementDate(ctx context.Context, locationID int64) (*time.Time, error)
}

// CacheObserver records dashboard cache lookups.
type CacheObserver interface {
	CacheLookup(cache string, hit bool)
}

// Dashboard is the settlement series of a location.
type Dashboard struct {
	Mode                 calendar.Mode   `json:"mode"`
	AnchorDate           time.Time       `json:"anchorDate"`
	PartnerShareFraction decimal.Decimal `json:"partnerShareFraction"`
	Series               []Row           `json:"series"`
}

// Service builds settlement dashboards and manages partner share configuration.
type Service struct {
	movements MovementReader
	shares    ShareRepository
	cache     *cache.Versioned
	observer  CacheObserver
	logger    *slog.Logger
	now       func() time.Time
	timeout   time.Duration
	group     singleflight.Group
}

// NewService wires the dashboard dependencies. A nil cache builds every request.
func NewService(movements MovementReader, shares ShareRepository, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		movements: movements,
		shares:    shares,
		cache:     c,
		logger:    logger,
		now:       time.Now,
		timeout:   10 * time.Second,
	}
}

// SetObserver injects cache lookup instrumentation.
func (s *Service) SetObserver(o CacheObserver) {
	s.observer = o
}

// WithClock overrides the clock used when a location has no movements.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ParseCount reads the series length, defaulting to DefaultCount and clamping to 1..MaxCount.
func ParseCount(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultCount
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultCount
	}
	return min(max(n, 1), MaxCount)
}

func locationScope(locationID int64) string {
	return "location:" + strconv.FormatInt(locationID, 10)
}

// Dashboard returns the settlement series for the location, served from the
// versioned cache when possible. Concurrent identical requests share one build.
func (s *Service) Dashboard(ctx context.Context, locationID int64, rawMode, rawCount string) (Dashboard, error) {
	mode, err := calendar.ParseMode(rawMode)
	if err != nil {
		return Dashboard{}, err
	}
	count := ParseCount(rawCount)

	key, err := s.cache.BuildKey(ctx, locationScope(locationID), cacheName, string(mode), strconv.Itoa(count))
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.Int64("location_id", locationID), slog.Any("error", err))
		return s.Build(ctx, locationID, mode, count)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		var dash Dashboard
		hit, err := s.cache.FetchJSON(ctx, key, &dash, func(ctx context.Context) (any, error) {
			return s.Build(ctx, locationID, mode, count)
		})
		if err != nil {
			return nil, err
		}
		if s.observer != nil {
			s.observer.CacheLookup(cacheName, hit)
		}
		return dash, nil
	})
	if err != nil {
		return Dashboard{}, err
	}
	return v.(Dashboard), nil
}

// Build computes the dashboard without the cache. The series ends with the
// period holding the last movement, or today when there is none.
func (s *Service) Build(ctx context.Context, locationID int64, mode calendar.Mode, count int) (Dashboard, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		share ShareConfig
		last  *time.Time
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		share, err = s.shares.GetShare(gctx, locationID)
		if err != nil {
			return fmt.Errorf("load partner share: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		last, err = s.movements.LastMovementDate(gctx, locationID)
		if err != nil {
			return fmt.Errorf("load last movement date: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	anchor := calendar.Day(s.now().UTC())
	if last != nil {
		anchor = calendar.Day(*last)
	}
	periods := calendar.Series(mode, anchor, count)
	span := calendar.Bounds{Start: periods[0].Start, End: periods[len(periods)-1].End}
	movements, err := s.movements.ListMovements(ctx, locationID, &span)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load movements: %w", err)
	}

	fraction := share.Effective()
	return Dashboard{
		Mode:                 mode,
		AnchorDate:           anchor,
		PartnerShareFraction: fraction,
		Series:               Settle(ledger.SummarizePeriods(movements, periods), fraction),
	}, nil
}

// Invalidate orphans every cached dashboard of the location.
func (s *Service) Invalidate(ctx context.Context, locationID int64) {
	if err := s.cache.Bump(ctx, locationScope(locationID)); err != nil {
		s.logger.Warn("dashboard cache bump failed", slog.Int64("location_id", locationID), slog.Any("error", err))
	}
}

// Share returns the location's partner share configuration.
func (s *Service) Share(ctx context.Context, locationID int64) (ShareConfig, error) {
	return s.shares.GetShare(ctx, locationID)
}

// SaveShare validates and stores the partner share, then invalidates dashboards.
func (s *Service) SaveShare(ctx context.Context, locationID int64, in ShareInput) (ShareConfig, error) {
	cfg, err := in.ToConfig()
	if err != nil {
		return ShareConfig{}, err
	}
	if err := s.shares.SaveShare(ctx, locationID, cfg); err != nil {
		return ShareConfig{}, err
	}
	s.Invalidate(ctx, locationID)
	s.logger.Info("partner share saved",
		slog.Int64("location_id", locationID),
		slog.Bool("enabled", cfg.IsEnabled),
		slog.Int("percentage", cfg.Percentage()))
	return cfg, nil
}

var _ ledger.Invalidator = (*Service)(nil)
