package reservation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		role     Role
		want     bool
	}{
		{StatusPending, StatusConfirmed, RoleOwner, true},
		{StatusPending, StatusConfirmed, RoleAdmin, true},
		{StatusPending, StatusConfirmed, RoleTenant, false},
		{StatusPending, StatusRejected, RoleOwner, true},
		{StatusPending, StatusRejected, RoleTenant, false},
		{StatusPending, StatusCancelled, RoleTenant, true},
		{StatusPending, StatusCancelled, RoleOwner, false},
		{StatusPending, StatusCompleted, RoleOwner, false},
		{StatusPending, StatusCompleted, RoleAdmin, false},
		{StatusPending, StatusCompleted, RoleTenant, false},
		{StatusConfirmed, StatusCompleted, RoleOwner, true},
		{StatusConfirmed, StatusCompleted, RoleTenant, false},
		{StatusConfirmed, StatusCancelled, RoleTenant, true},
		{StatusConfirmed, StatusCancelled, RoleOwner, true},
		{StatusConfirmed, StatusRejected, RoleOwner, false},
		{StatusConfirmed, StatusPending, RoleAdmin, false},
		{StatusCancelled, StatusPending, RoleAdmin, true},
		{StatusCancelled, StatusConfirmed, RoleOwner, false},
		{StatusCompleted, StatusConfirmed, RoleAdmin, true},
		{StatusRejected, StatusPending, RoleTenant, false},
		{StatusCancelled, StatusCancelled, RoleAdmin, false},
		{StatusConfirmed, StatusConfirmed, RoleOwner, false},
		{Status("ARCHIVED"), StatusPending, RoleAdmin, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to)+"/"+string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to, tt.role))
		})
	}
}

func TestAuthorizePrefersMostPrivilegedRole(t *testing.T) {
	role, err := Authorize(StatusConfirmed, StatusCancelled, RoleTenant, RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, role)

	role, err = Authorize(StatusPending, StatusCancelled, RoleTenant, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	role, err = Authorize(StatusPending, StatusCancelled, RoleTenant)
	require.NoError(t, err)
	assert.Equal(t, RoleTenant, role)

	_, err = Authorize(StatusPending, StatusCompleted, RoleTenant, RoleOwner, RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "PENDING -> COMPLETED")

	_, err = Authorize(StatusPending, StatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
