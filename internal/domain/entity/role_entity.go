package entity

// Role names are free-form strings; these two are the ones the system assigns.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Roles is the set of role names held by a user. It is never empty once persisted.
type Roles []string

// Has reports whether role is in the set.
func (r Roles) Has(role string) bool {
	for _, x := range r {
		if x == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the set contains the admin role.
func (r Roles) IsAdmin() bool { return r.Has(RoleAdmin) }

// RolesFor returns the role set granted on creation or role toggle.
func RolesFor(isAdmin bool) Roles {
	if isAdmin {
		return Roles{RoleAdmin, RoleUser}
	}
	return Roles{RoleUser}
}

// Normalize drops blanks and duplicates and falls back to {user} when nothing is left.
func (r Roles) Normalize() Roles {
	seen := make(map[string]struct{}, len(r))
	out := make(Roles, 0, len(r))
	for _, x := range r {
		if x == "" {
			continue
		}
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	if len(out) == 0 {
		return Roles{RoleUser}
	}
	return out
}
