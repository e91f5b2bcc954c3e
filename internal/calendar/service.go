package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nekogravitycat/space-booking-backend/internal/events"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/daterange"
	"github.com/nekogravitycat/space-booking-backend/internal/space"
	"github.com/nekogravitycat/space-booking-backend/internal/user"
)

type BlockRequest struct {
	SpaceID   string
	StartDate time.Time
	EndDate   time.Time
	Kind      Kind
	Label     string
}

type Service interface {
	// BlockDates marks a range unavailable. Existing reservations are not checked.
	BlockDates(ctx context.Context, req BlockRequest, actor user.Actor) (*Block, error)
	DeleteBlock(ctx context.Context, id string, actor user.Actor) error
	ListInRange(ctx context.Context, spaceID string, window daterange.Range) ([]*Block, error)
	// BlockedRanges is the overlap-check view of ListInRange.
	BlockedRanges(ctx context.Context, spaceID string, window daterange.Range) ([]daterange.Range, error)
}

type service struct {
	repo   Repository
	spaces space.Service
	pub    events.Publisher
	log    *slog.Logger
}

func NewService(repo Repository, spaces space.Service, pub events.Publisher, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: repo, spaces: spaces, pub: pub, log: log}
}

// authorize resolves the space and checks the actor may manage its calendar.
func (s *service) authorize(ctx context.Context, spaceID string, actor user.Actor) error {
	sp, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return fmt.Errorf("space %s: %w", spaceID, ErrSpaceNotFound)
		}
		return err
	}
	if !actor.IsAdmin && !sp.OwnedBy(actor.UserID) {
		return ErrPermissionDenied
	}
	return nil
}

func (s *service) BlockDates(ctx context.Context, req BlockRequest, actor user.Actor) (*Block, error) {
	if req.Kind == "" {
		req.Kind = KindBlocked
	}
	if !req.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	req.Label = strings.TrimSpace(req.Label)
	if utf8.RuneCountInString(req.Label) > maxLabelLength {
		return nil, ErrLabelTooLong
	}
	// A block may cover a single day.
	rng := daterange.Span(req.StartDate, req.EndDate)
	if req.StartDate.IsZero() || req.EndDate.IsZero() || rng.End.Before(rng.Start) {
		return nil, fmt.Errorf("%s: %w", rng, ErrInvalidDateRange)
	}

	if err := s.authorize(ctx, req.SpaceID, actor); err != nil {
		return nil, err
	}

	b := &Block{
		SpaceID:   req.SpaceID,
		StartDate: rng.Start,
		EndDate:   rng.End,
		Kind:      req.Kind,
		Label:     req.Label,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "calendar block created",
		"block_id", b.ID,
		"space_id", b.SpaceID,
		"range", rng.String(),
		"kind", b.Kind,
	)
	events.Emit(ctx, s.pub, s.log, events.Event{
		Name:        events.CalendarBlocked,
		SpaceID:     b.SpaceID,
		AggregateID: b.ID,
		Payload: map[string]string{
			"start_date": b.StartDate.Format(time.DateOnly),
			"end_date":   b.EndDate.Format(time.DateOnly),
			"kind":       string(b.Kind),
		},
	})
	return b, nil
}

func (s *service) DeleteBlock(ctx context.Context, id string, actor user.Actor) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, b.SpaceID, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "calendar block deleted", "block_id", id, "space_id", b.SpaceID)
	events.Emit(ctx, s.pub, s.log, events.Event{
		Name:        events.CalendarReleased,
		SpaceID:     b.SpaceID,
		AggregateID: b.ID,
	})
	return nil
}

func (s *service) ListInRange(ctx context.Context, spaceID string, window daterange.Range) ([]*Block, error) {
	if window.End.Before(window.Start) {
		return nil, ErrInvalidDateRange
	}
	if window.Nights() > maxWindowDays {
		return nil, ErrWindowTooWide
	}
	return s.repo.ListInRange(ctx, spaceID, window)
}

func (s *service) BlockedRanges(ctx context.Context, spaceID string, window daterange.Range) ([]daterange.Range, error) {
	blocks, err := s.repo.ListInRange(ctx, spaceID, window)
	if err != nil {
		return nil, err
	}
	ranges := make([]daterange.Range, len(blocks))
	for i, b := range blocks {
		ranges[i] = b.Range()
	}
	return ranges, nil
}
