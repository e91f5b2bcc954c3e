package availability

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/daterange"
	"github.com/nekogravitycat/space-booking-backend/internal/reservation"
	"github.com/nekogravitycat/space-booking-backend/internal/space"
)

const DefaultHorizonDays = 90

var (
	ErrSpaceNotFound    = apperror.New(apperror.KindNotFound, "space not found")
	ErrInvalidHorizon   = apperror.New(apperror.KindValidation, "horizon_days out of range")
	ErrInvalidDateRange = apperror.New(apperror.KindValidation, "start date must be before end date")
)

// ActiveSource is the reservation store query the calculator scans.
type ActiveSource interface {
	ActiveInRange(ctx context.Context, spaceID string, window daterange.Range) ([]*reservation.Reservation, error)
}

type Service interface {
	// AvailableDates lists every free date from today through today+horizonDays.
	// A horizon of zero selects DefaultHorizonDays.
	AvailableDates(ctx context.Context, spaceID string, horizonDays int) ([]time.Time, error)
	// IsAvailable reports whether rng is free of active reservations and blocks.
	IsAvailable(ctx context.Context, spaceID string, rng daterange.Range) (bool, error)
}

type service struct {
	spaces     space.Service
	active     ActiveSource
	blocks     reservation.BlockSource
	cache      Cache
	cacheTTL   time.Duration
	maxHorizon int
	log        *slog.Logger
	now        func() time.Time
}

type Option func(*service)

// WithCache enables read-through caching of AvailableDates results.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithMaxHorizon caps the horizon callers may request.
func WithMaxHorizon(days int) Option {
	return func(s *service) {
		if days > 0 {
			s.maxHorizon = days
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(spaces space.Service, active ActiveSource, blocks reservation.BlockSource, log *slog.Logger, opts ...Option) Service {
	if log == nil {
		log = slog.Default()
	}
	s := &service{
		spaces:     spaces,
		active:     active,
		blocks:     blocks,
		maxHorizon: 365,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) ensureSpace(ctx context.Context, spaceID string) error {
	if _, err := s.spaces.GetByID(ctx, spaceID); err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return fmt.Errorf("space %s: %w", spaceID, ErrSpaceNotFound)
		}
		return err
	}
	return nil
}

func (s *service) AvailableDates(ctx context.Context, spaceID string, horizonDays int) ([]time.Time, error) {
	if horizonDays == 0 {
		horizonDays = DefaultHorizonDays
	}
	if horizonDays < 0 || horizonDays > s.maxHorizon {
		return nil, fmt.Errorf("%d (max %d): %w", horizonDays, s.maxHorizon, ErrInvalidHorizon)
	}
	if err := s.ensureSpace(ctx, spaceID); err != nil {
		return nil, err
	}

	today := daterange.Date(s.now())

	// The generation is read before the store so a concurrent invalidation
	// retires whatever this call writes back.
	var key string
	if s.cache != nil {
		gen, err := s.cache.Generation(ctx, spaceID)
		if err != nil {
			s.log.WarnContext(ctx, "availability cache generation read failed", "space_id", spaceID, "error", err)
		} else {
			key = CacheKey(spaceID, gen, today, horizonDays)
		}
	}
	if key != "" {
		dates, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.WarnContext(ctx, "availability cache read failed", "key", key, "error", err)
		} else if ok {
			return dates, nil
		}
	}

	window := daterange.Span(today, today.AddDate(0, 0, horizonDays))
	taken, err := s.taken(ctx, spaceID, window)
	if err != nil {
		return nil, err
	}
	dates := slices.Collect(FreeDates(window, taken))

	if key != "" {
		if err := s.cache.Set(ctx, key, dates, s.cacheTTL); err != nil {
			s.log.WarnContext(ctx, "availability cache write failed", "key", key, "error", err)
		}
	}
	return dates, nil
}

func (s *service) IsAvailable(ctx context.Context, spaceID string, rng daterange.Range) (bool, error) {
	if err := rng.Validate(); err != nil {
		return false, fmt.Errorf("%s: %w", rng, ErrInvalidDateRange)
	}
	if err := s.ensureSpace(ctx, spaceID); err != nil {
		return false, err
	}
	ranges, err := s.occupied(ctx, spaceID, rng)
	if err != nil {
		return false, err
	}
	return !daterange.Conflicts(rng, ranges), nil
}

// occupied returns active reservation and block ranges touching window.
func (s *service) occupied(ctx context.Context, spaceID string, window daterange.Range) ([]daterange.Range, error) {
	active, err := s.active.ActiveInRange(ctx, spaceID, window)
	if err != nil {
		return nil, err
	}
	blocked, err := s.blocks.BlockedRanges(ctx, spaceID, window)
	if err != nil {
		return nil, err
	}
	ranges := make([]daterange.Range, 0, len(active)+len(blocked))
	for _, r := range active {
		ranges = append(ranges, r.Range())
	}
	return append(ranges, blocked...), nil
}

func (s *service) taken(ctx context.Context, spaceID string, window daterange.Range) (daterange.DaySet, error) {
	ranges, err := s.occupied(ctx, spaceID, window)
	if err != nil {
		return nil, err
	}
	return daterange.Cover(window, ranges...), nil
}

// FreeDates yields the dates of window not present in taken, in order.
// The sequence can be ranged over any number of times.
func FreeDates(window daterange.Range, taken daterange.DaySet) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := window.Start; !d.After(window.End); d = d.AddDate(0, 0, 1) {
			if taken.Has(d) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}
