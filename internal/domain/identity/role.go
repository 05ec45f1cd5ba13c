package identity

// Role is the closed set of dashboard roles an account can hold
type Role string

const (
	RoleSuperAdmin         Role = "SUPER_ADMIN"
	RoleApex               Role = "APEX"
	RoleParentOrganization Role = "PARENT_ORGANIZATION"
	RoleLeader             Role = "LEADER"
	RoleCooperative        Role = "COOPERATIVE"
	RoleMember             Role = "MEMBER"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleApex, RoleParentOrganization, RoleLeader, RoleCooperative, RoleMember:
		return true
	}
	return false
}

// String returns the string representation
func (r Role) String() string {
	return string(r)
}

// DashboardPath is the path of the role's landing dashboard
func (r Role) DashboardPath() string {
	switch r {
	case RoleSuperAdmin:
		return "/dashboard/admin"
	case RoleApex:
		return "/dashboard/apex"
	case RoleParentOrganization:
		return "/dashboard/parent-organization"
	case RoleLeader:
		return "/dashboard/leader"
	case RoleCooperative:
		return "/dashboard/cooperative"
	default:
		return "/dashboard/member"
	}
}

// IsAdministrative reports whether the role may change platform configuration
func (r Role) IsAdministrative() bool {
	return r == RoleSuperAdmin
}
