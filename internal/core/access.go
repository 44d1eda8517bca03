package core

// access.go is the access control guard. Role checks are explicit calls at
// the top of every mutating operation, taking the operation's allow-list as
// a parameter. The guard is a pure function with no state.

// Require returns nil when actual is in the allowed set, otherwise a
// *PermissionError carrying both sides for diagnostics.
func Require(actual Role, allowed ...Role) error {
	for _, r := range allowed {
		if actual == r {
			return nil
		}
	}
	return &PermissionError{Required: allowed, Actual: actual}
}

// CanViewAll reports whether the role may see rows owned by other users.
// All other roles are narrowed to their own uploads on read operations.
func CanViewAll(r Role) bool {
	switch r {
	case RoleAdmin, RoleExecutive:
		return true
	case RoleStaff, RolePublic:
		return false
	}
	return false
}
