package types

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// IsEligibleRole reports whether a role may register for push delivery.
// Students are deliberately excluded: they have no real-time surface.
func IsEligibleRole(role string) bool {
	return role == RoleInstructor || role == RoleAdmin
}
