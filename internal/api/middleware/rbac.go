package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

// RBAC enforces the role policy for action. It must run after Authenticate.
func RBAC(action domain.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := CallerFrom(c)
			if !ok {
				return domain.ErrMissingToken
			}
			if err := domain.Authorize(caller, action); err != nil {
				return err
			}
			return next(c)
		}
	}
}
