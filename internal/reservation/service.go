package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/events"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/daterange"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/lock"
	"github.com/nekogravitycat/space-booking-backend/internal/space"
	"github.com/nekogravitycat/space-booking-backend/internal/user"
)

// sweepBatch bounds how many finished stays one CompleteFinished pass handles.
const sweepBatch = 500

type CreateRequest struct {
	SpaceID   string
	TenantID  string
	StartDate time.Time
	EndDate   time.Time
}

// BlockSource exposes the calendar blocks that take part in overlap checks.
type BlockSource interface {
	BlockedRanges(ctx context.Context, spaceID string, window daterange.Range) ([]daterange.Range, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Reservation, error)
	UpdateStatus(ctx context.Context, id string, to Status, actor user.Actor) (*Reservation, error)
	Cancel(ctx context.Context, id string, actor user.Actor) (*Reservation, error)
	GetByID(ctx context.Context, id string, actor user.Actor) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)
	Delete(ctx context.Context, id string, actor user.Actor) error
	Stats(ctx context.Context, filter StatsFilter) (Stats, error)

	// CompleteFinished marks confirmed stays that ended before today as completed.
	CompleteFinished(ctx context.Context) (int, error)
}

type service struct {
	repo   Repository
	spaces space.Service
	users  user.Service
	blocks BlockSource
	locker lock.Locker
	pub    events.Publisher
	log    *slog.Logger
	now    func() time.Time
}

func NewService(
	repo Repository,
	spaces space.Service,
	users user.Service,
	blocks BlockSource,
	locker lock.Locker,
	pub events.Publisher,
	log *slog.Logger,
) Service {
	return newService(repo, spaces, users, blocks, locker, pub, log)
}

func newService(
	repo Repository,
	spaces space.Service,
	users user.Service,
	blocks BlockSource,
	locker lock.Locker,
	pub events.Publisher,
	log *slog.Logger,
) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{
		repo:   repo,
		spaces: spaces,
		users:  users,
		blocks: blocks,
		locker: locker,
		pub:    pub,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SpaceLockKey names the critical section guarding a space's calendar.
func SpaceLockKey(spaceID string) string {
	return "space:" + spaceID
}

func (s *service) today() time.Time {
	return daterange.Date(s.now())
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Reservation, error) {
	req.SpaceID = strings.TrimSpace(req.SpaceID)
	req.TenantID = strings.TrimSpace(req.TenantID)
	if req.SpaceID == "" || req.TenantID == "" {
		return nil, fmt.Errorf("space and tenant are required: %w", ErrInvalidInput)
	}

	// 1. Validate dates
	rng, err := daterange.New(req.StartDate, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", daterange.Span(req.StartDate, req.EndDate), ErrInvalidDateRange)
	}
	if rng.Start.Before(s.today()) {
		return nil, fmt.Errorf("start date %s: %w", rng.Start.Format(time.DateOnly), ErrStartInPast)
	}

	// 2. Resolve collaborators
	sp, err := s.spaces.GetByID(ctx, req.SpaceID)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, fmt.Errorf("space %s: %w", req.SpaceID, ErrSpaceNotFound)
		}
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, req.TenantID); err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, fmt.Errorf("tenant %s: %w", req.TenantID, ErrTenantNotFound)
		}
		return nil, err
	}

	res := &Reservation{
		SpaceID:   sp.ID,
		TenantID:  req.TenantID,
		StartDate: rng.Start,
		EndDate:   rng.End,
		Status:    StatusPending,
	}

	// 3. Check and insert under the space lock
	err = s.withSpaceLock(ctx, sp.ID, func() error {
		if err := s.ensureFree(ctx, sp.ID, rng, ""); err != nil {
			return err
		}
		return s.repo.Create(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "reservation created",
		"reservation_id", res.ID,
		"space_id", res.SpaceID,
		"tenant_id", res.TenantID,
		"start_date", res.StartDate.Format(time.DateOnly),
		"end_date", res.EndDate.Format(time.DateOnly),
	)
	events.Emit(ctx, s.pub, s.log, events.Event{
		Name:        events.ReservationCreated,
		SpaceID:     res.SpaceID,
		AggregateID: res.ID,
		OccurredAt:  s.now(),
		Payload:     newCreatedPayload(res),
	})
	return res, nil
}

func (s *service) UpdateStatus(ctx context.Context, id string, to Status, actor user.Actor) (*Reservation, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("status %q: %w", to, ErrInvalidStatus)
	}
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	roles := rolesFor(res, actor)
	if len(roles) == 0 {
		return nil, ErrPermissionDenied
	}
	return s.transition(ctx, res, to, roles, actor)
}

func (s *service) Cancel(ctx context.Context, id string, actor user.Actor) (*Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var roles []Role
	switch {
	case actor.IsAdmin:
		roles = []Role{RoleAdmin}
	case actor.UserID != "" && res.TenantID == actor.UserID:
		roles = []Role{RoleTenant}
	default:
		return nil, ErrPermissionDenied
	}
	return s.transition(ctx, res, StatusCancelled, roles, actor)
}

func (s *service) transition(ctx context.Context, res *Reservation, to Status, roles []Role, actor user.Actor) (*Reservation, error) {
	from := res.Status
	if from == to {
		return nil, fmt.Errorf("reservation %s already %s: %w", res.ID, to, ErrInvalidTransition)
	}

	role, err := Authorize(from, to, roles...)
	if err != nil {
		return nil, fmt.Errorf("reservation %s: %w", res.ID, err)
	}

	if role == RoleTenant && to == StatusCancelled {
		if err := s.checkCancellationWindow(res); err != nil {
			return nil, err
		}
	}

	var updated *Reservation
	apply := func() error {
		var err error
		updated, err = s.repo.UpdateStatus(ctx, res.ID, from, to)
		if errors.Is(err, ErrStatusChanged) {
			return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
		}
		return err
	}

	// An administrator reviving a released reservation must not double-book its dates.
	if !from.IsActive() && to.IsActive() {
		err = s.withSpaceLock(ctx, res.SpaceID, func() error {
			if err := s.ensureFree(ctx, res.SpaceID, res.Range(), res.ID); err != nil {
				return err
			}
			return apply()
		})
	} else {
		err = apply()
	}
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "reservation status changed",
		"reservation_id", updated.ID,
		"space_id", updated.SpaceID,
		"tenant_id", updated.TenantID,
		"from", from,
		"status", updated.Status,
		"role", role,
		"actor_id", actor.UserID,
	)
	events.Emit(ctx, s.pub, s.log, events.Event{
		Name:        events.ReservationStatusChanged,
		SpaceID:     updated.SpaceID,
		AggregateID: updated.ID,
		OccurredAt:  s.now(),
		Payload:     StatusChange{From: from, To: updated.Status, Role: role, ActorID: actor.UserID},
	})
	return updated, nil
}

// checkCancellationWindow rejects tenant cancellations less than a day before
// the stay begins. The day before the start is compared with the current
// instant rather than today's date, so a stay starting tomorrow can no longer
// be cancelled; a date-only comparison would allow it until midnight.
func (s *service) checkCancellationWindow(res *Reservation) error {
	deadline := daterange.Date(res.StartDate).AddDate(0, 0, -1)
	if deadline.Before(s.now()) {
		return fmt.Errorf("reservation %s starts %s: %w",
			res.ID, res.StartDate.Format(time.DateOnly), ErrCancellationWindow)
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id string, actor user.Actor) (*Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(rolesFor(res, actor)) == 0 {
		return nil, ErrPermissionDenied
	}
	return res, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, 0, fmt.Errorf("status %q: %w", st, ErrInvalidStatus)
		}
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Delete(ctx context.Context, id string, actor user.Actor) error {
	if !actor.IsAdmin {
		return ErrPermissionDenied
	}
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "reservation deleted",
		"reservation_id", res.ID,
		"space_id", res.SpaceID,
		"actor_id", actor.UserID,
	)
	events.Emit(ctx, s.pub, s.log, events.Event{
		Name:        events.ReservationDeleted,
		SpaceID:     res.SpaceID,
		AggregateID: res.ID,
		OccurredAt:  s.now(),
	})
	return nil
}

func (s *service) Stats(ctx context.Context, filter StatsFilter) (Stats, error) {
	counts, err := s.repo.CountByStatus(ctx, filter)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{ByStatus: make(map[Status]int, len(AllStatuses))}
	for _, status := range AllStatuses {
		st.ByStatus[status] = counts[status]
		st.Total += counts[status]
	}
	return st, nil
}

func (s *service) CompleteFinished(ctx context.Context) (int, error) {
	finished, err := s.repo.ListEndedBefore(ctx, StatusConfirmed, s.today(), sweepBatch)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, res := range finished {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		if _, err := s.transition(ctx, res, StatusCompleted, []Role{RoleAdmin}, user.System); err != nil {
			// Someone else moved it first; nothing to do.
			if errors.Is(err, ErrStatusChanged) {
				continue
			}
			return completed, err
		}
		completed++
	}
	return completed, nil
}

// ensureFree fails with ErrDatesUnavailable when rng overlaps an active
// reservation (other than excludeID) or a calendar block of the space.
func (s *service) ensureFree(ctx context.Context, spaceID string, rng daterange.Range, excludeID string) error {
	active, err := s.repo.ActiveInRange(ctx, spaceID, rng)
	if err != nil {
		return err
	}
	existing := make([]daterange.Range, 0, len(active))
	for _, r := range active {
		if r.ID == excludeID {
			continue
		}
		existing = append(existing, r.Range())
	}

	blocked, err := s.blocks.BlockedRanges(ctx, spaceID, rng)
	if err != nil {
		return err
	}
	existing = append(existing, blocked...)

	if other, found := daterange.FirstConflict(rng, existing); found {
		return fmt.Errorf("space %s %s overlaps %s: %w", spaceID, rng, other, ErrDatesUnavailable)
	}
	return nil
}

func (s *service) withSpaceLock(ctx context.Context, spaceID string, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, SpaceLockKey(spaceID))
	if err != nil {
		return apperror.Storage(err, "acquire space lock failed")
	}
	defer unlock()
	return fn()
}

// rolesFor lists every capacity in which actor relates to res.
func rolesFor(res *Reservation, actor user.Actor) []Role {
	var roles []Role
	if actor.IsAdmin {
		roles = append(roles, RoleAdmin)
	}
	if actor.UserID == "" {
		return roles
	}
	if res.OwnerID == actor.UserID {
		roles = append(roles, RoleOwner)
	}
	if res.TenantID == actor.UserID {
		roles = append(roles, RoleTenant)
	}
	return roles
}

// StatusChange is the payload of a status_changed event.
type StatusChange struct {
	From    Status `json:"from"`
	To      Status `json:"to"`
	Role    Role   `json:"role"`
	ActorID string `json:"actor_id"`
}

type createdPayload struct {
	TenantID   string `json:"tenant_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Status     Status `json:"status"`
	Nights     int    `json:"nights"`
	TotalPrice int64  `json:"total_price"`
}

func newCreatedPayload(r *Reservation) createdPayload {
	return createdPayload{
		TenantID:   r.TenantID,
		StartDate:  r.StartDate.Format(time.DateOnly),
		EndDate:    r.EndDate.Format(time.DateOnly),
		Status:     r.Status,
		Nights:     r.Nights(),
		TotalPrice: r.TotalPrice(),
	}
}
