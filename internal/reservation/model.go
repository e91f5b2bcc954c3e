package reservation

import (
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/daterange"
)

var (
	ErrNotFound           = apperror.New(apperror.KindNotFound, "reservation not found")
	ErrSpaceNotFound      = apperror.New(apperror.KindNotFound, "space not found")
	ErrTenantNotFound     = apperror.New(apperror.KindNotFound, "tenant not found")
	ErrInvalidInput       = apperror.New(apperror.KindValidation, "invalid input parameters")
	ErrInvalidDateRange   = apperror.New(apperror.KindValidation, "start date must be before end date")
	ErrStartInPast        = apperror.New(apperror.KindValidation, "cannot create reservation in the past")
	ErrInvalidStatus      = apperror.New(apperror.KindValidation, "invalid reservation status")
	ErrDatesUnavailable   = apperror.New(apperror.KindConflict, "dates unavailable")
	ErrInvalidTransition  = apperror.New(apperror.KindInvalidTransition, "status transition not allowed")
	ErrCancellationWindow = apperror.New(apperror.KindCancellationWindow, "cancellation must happen at least one day before the stay begins")
	ErrPermissionDenied   = apperror.New(apperror.KindForbidden, "permission denied")

	// ErrStatusChanged is returned by Repository.UpdateStatus when the row no
	// longer holds the expected status.
	ErrStatusChanged = apperror.New(apperror.KindInvalidTransition, "reservation status changed concurrently")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// AllStatuses lists statuses in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusRejected, StatusCancelled, StatusCompleted}

// ActiveStatuses hold a date lock on their space.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// IsActive reports whether the status holds the reservation's dates.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// IsTerminal is true for statuses only an administrator may leave.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusCompleted
}

// Role is the capacity in which an actor touches a reservation.
type Role string

const (
	RoleTenant Role = "tenant"
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
)

// Reservation is a tenant's claim on a space for an inclusive range of dates.
type Reservation struct {
	ID        string
	SpaceID   string
	TenantID  string
	StartDate time.Time
	EndDate   time.Time
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time

	// Joined from the space, never stored on the reservation row.
	SpaceTitle  string
	OwnerID     string
	NightlyRate int64
}

func (r *Reservation) Range() daterange.Range {
	return daterange.Span(r.StartDate, r.EndDate)
}

// Nights is end minus start in days.
func (r *Reservation) Nights() int {
	return r.Range().Nights()
}

// TotalPrice is nights times the space's nightly rate, in minor currency units.
func (r *Reservation) TotalPrice() int64 {
	return int64(r.Nights()) * r.NightlyRate
}

// Filter defines parameters for listing reservations.
type Filter struct {
	SpaceID   string
	TenantID  string
	OwnerID   string
	Statuses  []Status
	From      *time.Time // reservations ending on or after this date
	To        *time.Time // reservations starting on or before this date
	Page      int
	PageSize  int
	SortOrder string
}

// StatsFilter scopes the aggregation. Empty fields mean "all".
type StatsFilter struct {
	SpaceID  string
	TenantID string
	OwnerID  string
}

// Stats is a read-side aggregation of reservation counts by status.
type Stats struct {
	Total    int
	ByStatus map[Status]int
}

func (s Stats) Count(st Status) int {
	return s.ByStatus[st]
}
