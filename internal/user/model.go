package user

import (
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound     = apperror.New(apperror.KindNotFound, "user not found")
	ErrInactiveUser = apperror.New(apperror.KindForbidden, "user is inactive")
	ErrIDRequired   = apperror.New(apperror.KindValidation, "user id is required")
)

// User is the account record owned by the identity service. The booking engine
// only reads it.
type User struct {
	ID            string // UUID
	Email         string
	DisplayName   *string
	CreatedAt     time.Time
	IsActive      bool
	IsSystemAdmin bool
}

// Name returns the display name, falling back to the email.
func (u *User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Email
}

// Actor is the authenticated caller of a booking operation.
// Whether it acts as tenant or space owner depends on the record it touches.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// System is the actor used by background jobs. It carries admin rights.
var System = Actor{UserID: "system", IsAdmin: true}
