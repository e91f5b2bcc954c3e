package calendar

import (
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/daterange"
)

var (
	ErrNotFound         = apperror.New(apperror.KindNotFound, "calendar block not found")
	ErrSpaceNotFound    = apperror.New(apperror.KindNotFound, "space not found")
	ErrInvalidDateRange = apperror.New(apperror.KindValidation, "start date must not be after end date")
	ErrInvalidKind      = apperror.New(apperror.KindValidation, "kind must be booked or blocked")
	ErrLabelTooLong     = apperror.New(apperror.KindValidation, "label must be at most 200 characters")
	ErrWindowTooWide    = apperror.New(apperror.KindValidation, "calendar window must not exceed 366 days")
	ErrPermissionDenied = apperror.New(apperror.KindForbidden, "only the space owner may manage its calendar")
)

const (
	maxLabelLength = 200
	maxWindowDays  = 366
)

type Kind string

const (
	// KindBooked marks dates taken through another channel.
	KindBooked Kind = "booked"
	// KindBlocked marks dates the owner withholds (maintenance, personal use).
	KindBlocked Kind = "blocked"
)

func (k Kind) Valid() bool {
	return k == KindBooked || k == KindBlocked
}

// Block is a manual unavailability declared by the space owner. It takes part in
// overlap checks like a confirmed reservation but has no tenant and no status.
type Block struct {
	ID        string
	SpaceID   string
	StartDate time.Time
	EndDate   time.Time
	Kind      Kind
	Label     string
	CreatedAt time.Time
}

func (b *Block) Range() daterange.Range {
	return daterange.Span(b.StartDate, b.EndDate)
}
