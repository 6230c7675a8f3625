package domain

// Role enumerates parties that act on a maintenance request.
type Role string

const (
	RoleTenant     Role = "TENANT"
	RoleLandlord   Role = "LANDLORD"
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleCaretaker  Role = "CARETAKER"
)

// ValidRole reports whether r is one of the defined roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleTenant, RoleLandlord, RoleSuperAdmin, RoleCaretaker:
		return true
	}
	return false
}

// Actor identifies who is attempting a transition.
type Actor struct {
	ID   string
	Role Role
}

// LandlordSide reports whether the role may exercise landlord actions.
// Super admins bypass the ownership check, not state legality.
func (a Actor) LandlordSide() bool {
	return a.Role == RoleLandlord || a.Role == RoleSuperAdmin
}
