package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/api/middleware"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/ports"
)

// CookieConfig controls how bearer tokens are written to the client.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

type AuthHandler struct {
	authService ports.AuthService
	cookies     CookieConfig
}

func NewAuthHandler(authService ports.AuthService, cookies CookieConfig) *AuthHandler {
	if cookies.SameSite == 0 {
		cookies.SameSite = http.SameSiteLaxMode
	}
	return &AuthHandler{authService: authService, cookies: cookies}
}

type registerRequest struct {
	Name     string `json:"name"      validate:"required,min=2,max=60"`
	LastName string `json:"last_name" validate:"omitempty,max=60"`
	Email    string `json:"email"     validate:"required,email"`
	Password string `json:"password"  validate:"required,min=6,max=72"`
	Role     string `json:"role"      validate:"omitempty,oneof=admin client"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}

type usersResponse struct {
	Users []*domain.User `json:"users"`
	Count int            `json:"count"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         *domain.User `json:"user,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		LastName: req.LastName,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, userResponse{User: user})
}

// Login authenticates a user, sets the token cookies and returns both tokens.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setToken(c, middleware.AccessTokenCookie, session.Access)
	h.setToken(c, middleware.RefreshTokenCookie, session.Refresh)

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  session.Access.Value,
		RefreshToken: session.Refresh.Value,
		ExpiresAt:    session.Access.ExpiresAt.UTC(),
		User:         session.User,
	})
}

// Refresh exchanges a refresh token for a new access token. The refresh token
// is read from its cookie, or from the body when no cookie is present.
// On failure both cookies are cleared.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token when not sent as cookie"
// @Success      200   {object}  tokenResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	token := ""
	if ck, err := c.Cookie(middleware.RefreshTokenCookie); err == nil {
		token = ck.Value
	}
	if token == "" {
		var req refreshRequest
		if c.Request().ContentLength != 0 {
			if err := c.Bind(&req); err != nil {
				return invalidPayload(err)
			}
		}
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		h.clearTokens(c)
		return domain.ErrMissingToken
	}

	access, err := h.authService.Refresh(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) || errors.Is(err, domain.ErrNotFound) {
			h.clearTokens(c)
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
		}
		return err
	}

	h.setToken(c, middleware.AccessTokenCookie, access)
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: access.Value, ExpiresAt: access.ExpiresAt.UTC()})
}

// Logout clears the token cookies. Tokens are stateless, so nothing is revoked server-side.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	h.clearTokens(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

// Profile returns the authenticated user.
//
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /auth/profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	user, err := h.authService.Profile(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// ListUsers returns every registered user (admin only).
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  usersResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /users [get]
func (h *AuthHandler) ListUsers(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	users, err := h.authService.ListUsers(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return c.JSON(http.StatusOK, usersResponse{Users: users, Count: len(users)})
}

func (h *AuthHandler) setToken(c echo.Context, name string, tok domain.IssuedToken) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    tok.Value,
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   int(tok.MaxAge / time.Second),
		Expires:  tok.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	})
}

func (h *AuthHandler) clearTokens(c echo.Context) {
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   h.cookies.Domain,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   h.cookies.Secure,
			SameSite: h.cookies.SameSite,
		})
	}
}
