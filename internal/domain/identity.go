package domain

import "context"

// Role is the portal-assigned role of a user. The collaboration core never
// assigns roles; it only consumes them from the caller's identity.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known portal roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleStudent, RoleAdmin:
		return true
	}
	return false
}

// Rank orders roles for display: teachers first, then admins, then
// students. Unknown roles sort last.
func (r Role) Rank() int {
	switch r {
	case RoleTeacher:
		return 3
	case RoleAdmin:
		return 2
	case RoleStudent:
		return 1
	}
	return 0
}

// CurrentUser is the identity supplied by the surrounding portal on every
// request. The core trusts it only after the portal's own access check.
type CurrentUser struct {
	ID          uint
	Role        Role
	DisplayName string
}

// AccessChecker is the capability the portal supplies to prove a user may
// participate in a room (course enrollment or ownership). The core calls it
// before touching any room-scoped state; it never implements it.
type AccessChecker interface {
	CanAccessRoom(ctx context.Context, userID uint, roomID uint) (bool, error)
}

// AccessCheckerFunc adapts a function to the AccessChecker interface.
type AccessCheckerFunc func(ctx context.Context, userID uint, roomID uint) (bool, error)

func (f AccessCheckerFunc) CanAccessRoom(ctx context.Context, userID uint, roomID uint) (bool, error) {
	return f(ctx, userID, roomID)
}
