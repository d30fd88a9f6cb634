package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/api/middleware"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

// callerFrom returns the identity resolved by the Authenticate middleware.
// A route wired without it fails closed with 401.
func callerFrom(c echo.Context) (domain.Caller, error) {
	caller, ok := middleware.CallerFrom(c)
	if !ok || caller.UserID == "" {
		return domain.Caller{}, domain.ErrMissingToken
	}
	return caller, nil
}

// bindAndValidate binds path, query and body into req and validates it.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return invalidPayload(err)
	}
	return c.Validate(req)
}

func invalidPayload(err error) error {
	return fmt.Errorf("%w: invalid payload: %v", domain.ErrInvalidInput, err)
}
