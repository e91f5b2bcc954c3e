package reservation

import "fmt"

type edge struct {
	from, to Status
}

// transitions lists who may move a reservation between non-terminal states.
// Terminal states are handled separately: only an admin may leave them.
var transitions = map[edge][]Role{
	{StatusPending, StatusConfirmed}:   {RoleOwner, RoleAdmin},
	{StatusPending, StatusRejected}:    {RoleOwner, RoleAdmin},
	{StatusPending, StatusCancelled}:   {RoleTenant, RoleAdmin},
	{StatusConfirmed, StatusCompleted}: {RoleOwner, RoleAdmin},
	{StatusConfirmed, StatusCancelled}: {RoleTenant, RoleOwner, RoleAdmin},
}

// CanTransition reports whether role may move a reservation from one status to another.
func CanTransition(from, to Status, role Role) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	if from.IsTerminal() {
		return role == RoleAdmin
	}
	for _, r := range transitions[edge{from, to}] {
		if r == role {
			return true
		}
	}
	return false
}

// rolePrecedence orders roles from most to least privileged.
var rolePrecedence = []Role{RoleAdmin, RoleOwner, RoleTenant}

// Authorize returns the most privileged of roles allowed to perform the
// transition, or ErrInvalidTransition when none is.
func Authorize(from, to Status, roles ...Role) (Role, error) {
	for _, candidate := range rolePrecedence {
		for _, held := range roles {
			if held == candidate && CanTransition(from, to, held) {
				return held, nil
			}
		}
	}
	return "", fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
}
