package domain

import "time"

// UserRole enumerates account roles.
type UserRole string

const (
	UserRoleEmployee UserRole = "EMPLOYEE"
	UserRoleITStaff  UserRole = "IT_STAFF"
	UserRoleAdmin    UserRole = "ADMIN"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleEmployee, UserRoleITStaff, UserRoleAdmin:
		return true
	}
	return false
}

// User is an account that submits or works tickets.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	Role         UserRole
	TeamID       *string
	Department   string
	Preferences  map[string]any
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsStaff reports whether the user works tickets (IT staff or admin).
func (u *User) IsStaff() bool {
	return u.Role == UserRoleITStaff || u.Role == UserRoleAdmin
}
