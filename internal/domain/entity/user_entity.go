package entity

import (
	"time"
)

// User is the aggregate root for the identity domain.
// PasswordHash holds a bcrypt hash and never leaves the service boundary.
//
// ResetToken and ResetTokenExpiry are either both set or both nil.
type User struct {
	ID               string
	Email            string
	Name             string
	PasswordHash     string
	IsActive         bool
	Roles            Roles
	LastLogin        time.Time
	Preferences      Preferences
	ResetToken       *string
	ResetTokenExpiry *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Roles.IsAdmin() }

// ResetPending reports whether a reset token is outstanding and unexpired at now.
func (u *User) ResetPending(now time.Time) bool {
	return u.ResetToken != nil && u.ResetTokenExpiry != nil && now.Before(*u.ResetTokenExpiry)
}

// UserFilter narrows list and count queries. Zero values mean "any".
type UserFilter struct {
	Active         *bool
	Role           string // "admin" selects admins, "user" selects non-admins
	CreatedSince   *time.Time
	LastLoginSince *time.Time
}
