package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

// Cookie names used to carry the bearer tokens.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// TokenLookup selects where the access token is read from.
type TokenLookup string

const (
	// LookupCookie reads the access_token cookie and falls back to the
	// Authorization header.
	LookupCookie TokenLookup = "cookie"
	// LookupHeader reads only the Authorization: Bearer header.
	LookupHeader TokenLookup = "header"
)

const callerKey = "caller"

type callerCtxKey struct{}

// TokenVerifier is the part of the token service the middleware needs.
type TokenVerifier interface {
	Verify(token string, expected domain.TokenType) (domain.Caller, error)
}

// Authenticate verifies the access token and attaches the resolved caller to
// both the echo context and the request context. On failure the chain stops.
func Authenticate(tokens TokenVerifier, lookup TokenLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := extractToken(c, lookup)
			if err != nil {
				return err
			}

			caller, err := tokens.Verify(raw, domain.TokenAccess)
			if err != nil {
				return err
			}

			SetCaller(c, caller)
			return next(c)
		}
	}
}

func extractToken(c echo.Context, lookup TokenLookup) (string, error) {
	if lookup != LookupHeader {
		if ck, err := c.Cookie(AccessTokenCookie); err == nil && ck.Value != "" {
			return ck.Value, nil
		}
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", domain.ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", domain.ErrTokenMalformed
	}
	return strings.TrimSpace(parts[1]), nil
}

// SetCaller attaches caller to the echo context and its request context.
func SetCaller(c echo.Context, caller domain.Caller) {
	c.Set(callerKey, caller)
	req := c.Request()
	c.SetRequest(req.WithContext(WithCaller(req.Context(), caller)))
}

// CallerFrom returns the caller resolved by Authenticate.
func CallerFrom(c echo.Context) (domain.Caller, bool) {
	caller, ok := c.Get(callerKey).(domain.Caller)
	return caller, ok
}

// WithCaller stores caller in ctx.
func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, caller)
}

// CallerFromContext reads the caller stored by WithCaller.
func CallerFromContext(ctx context.Context) (domain.Caller, bool) {
	caller, ok := ctx.Value(callerCtxKey{}).(domain.Caller)
	return caller, ok
}
