package domain

// Role differentiates portal customers from internal staff.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleEngineer Role = "ENGINEER"
	RoleAgent    Role = "AGENT"
	RoleManager  Role = "MANAGER"
)

// IsStaff reports whether the role belongs to internal staff.
func (r Role) IsStaff() bool {
	return r == RoleEngineer || r == RoleAgent || r == RoleManager
}

// Actor is the caller a command is attributed to.
type Actor struct {
	Contact Contact
	Role    Role
}
