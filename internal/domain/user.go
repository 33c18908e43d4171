package domain

import "time"

// Well-known role names.
const (
	RoleAdmin   = "Admin"
	RoleITAgent = "IT Agent"
	RoleStaff   = "Staff"
)

// Role groups users by permission level.
type Role struct {
	ID   int64
	Name string
}

// User is an account that can raise tickets and receive notifications.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	RoleID       int64
	RoleName     string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user holds one of the given roles.
func (u *User) HasRole(names ...string) bool {
	for _, name := range names {
		if u.RoleName == name {
			return true
		}
	}
	return false
}
