package ports

import (
	"context"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

// RegisterInput carries the fields of a new account. Role defaults to client.
type RegisterInput struct {
	Name     string
	LastName string
	Email    string
	Password string
	Role     string
}

// Session is the credential pair handed out on login.
type Session struct {
	User    *domain.User
	Access  domain.IssuedToken
	Refresh domain.IssuedToken
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (domain.IssuedToken, error)
	Profile(ctx context.Context, caller domain.Caller) (*domain.User, error)
	ListUsers(ctx context.Context, caller domain.Caller) ([]*domain.User, error)
}

// TokenService mints and verifies the two bearer token kinds.
type TokenService interface {
	IssueAccessToken(userID string, role domain.Role) (domain.IssuedToken, error)
	IssueRefreshToken(userID string) (domain.IssuedToken, error)
	// Verify fails with domain.ErrTokenExpired, ErrTokenMalformed or ErrTokenWrongType.
	Verify(token string, expected domain.TokenType) (domain.Caller, error)
	// RotateFromRefresh re-reads the user's role from storage and issues a new access token.
	RotateFromRefresh(ctx context.Context, refreshToken string) (domain.IssuedToken, error)
}
