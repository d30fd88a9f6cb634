package domain

import "time"

// Role is the coarse-grained permission group of a user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// User models an authenticated actor in the system.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// FullName is the display name snapshotted onto orders.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.Name
	}
	return u.Name + " " + u.LastName
}
