package space

import (
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound   = apperror.New(apperror.KindNotFound, "space not found")
	ErrIDRequired = apperror.New(apperror.KindValidation, "space id is required")
)

// Space is a rentable listing. Listing management lives in the catalogue service;
// the booking engine only needs the owner and the nightly rate.
type Space struct {
	ID          string
	OwnerID     string
	Title       string
	NightlyRate int64 // minor currency units
	CreatedAt   time.Time
}

// OwnedBy reports whether userID controls the space.
func (s *Space) OwnedBy(userID string) bool {
	return userID != "" && s.OwnerID == userID
}
