package auth

// Role is the authorization role carried in a token.
type Role string

const (
	RoleCustomer Role = "Customer"
	RoleAdmin    Role = "Admin"
)

// ParseRole maps user input onto a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleCustomer:
		return RoleCustomer, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

type roleSet map[Role]struct{}

func newRoleSet(roles []Role) roleSet {
	set := make(roleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

func (s roleSet) contains(role Role) bool {
	_, ok := s[role]
	return ok
}
