package session

import "slices"

// Role is the authorization role the backend assigns to an account.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleStaff    Role = "Staff"
	RoleCustomer Role = "Customer"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleStaff || r == RoleCustomer
}

// IsBackOffice reports whether the role may use the admin console.
func (r Role) IsBackOffice() bool {
	return r == RoleAdmin || r == RoleStaff
}

// ParseRole maps the server-provided role name to a Role. Empty or
// unrecognised names fall back to RoleCustomer, the least privileged role.
func ParseRole(s string) Role {
	role := Role(s)
	if role.IsValid() {
		return role
	}
	return RoleCustomer
}

// ContainsRole reports whether role is in the allowed set.
func ContainsRole(allowed []Role, role Role) bool {
	return slices.Contains(allowed, role)
}
