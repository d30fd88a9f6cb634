package domain

import "time"

// TokenType discriminates access tokens from refresh tokens inside the signed payload.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Caller is the identity resolved from a verified token. It lives for one request.
type Caller struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// IssuedToken is a signed bearer credential together with the lifetime the
// transport should advertise (cookie Max-Age).
type IssuedToken struct {
	Value     string
	Type      TokenType
	ExpiresAt time.Time
	MaxAge    time.Duration
}
