package enums

import "fmt"

// UserRole is the back-office role carried in access tokens.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
