package domain

// Role enumerates console operator roles as carried in the role_id claim.
type Role int

const (
	RoleAdministrator Role = 1
	RoleStaff         Role = 2
)

// IsAdministrator reports whether the role grants administrative screens.
func (r Role) IsAdministrator() bool {
	return r == RoleAdministrator
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleStaff:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return "administrator"
	case RoleStaff:
		return "staff"
	default:
		return "unknown"
	}
}
