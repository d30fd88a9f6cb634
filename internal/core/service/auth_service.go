package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/ports"
)

// AuthService implements registration, login, token refresh and profile lookup.
type AuthService struct {
	repo             ports.UserRepository
	tokens           ports.TokenService
	log              zerolog.Logger
	now              func() time.Time
	allowAdminSignup bool
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithAdminSignup lets public registration create admin accounts.
func WithAdminSignup(allow bool) AuthOption {
	return func(s *AuthService) { s.allowAdminSignup = allow }
}

func NewAuthService(repo ports.UserRepository, tokens ports.TokenService, log zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{repo: repo, tokens: tokens, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", domain.ErrInvalidInput)
	}

	role := domain.Role(strings.ToLower(strings.TrimSpace(in.Role)))
	if role == "" {
		role = domain.RoleClient
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, in.Role)
	}
	if role == domain.RoleAdmin && !s.allowAdminSignup {
		return nil, fmt.Errorf("%w: admin accounts cannot self-register", domain.ErrForbidden)
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.Upstream("register: find user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		Name:         strings.TrimSpace(in.Name),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, domain.Upstream("register: create user", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Msg("user registered")
	return created, nil
}

// Login verifies the password and mints an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.Upstream("login: find user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	access, err := s.tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	} else {
		user.LastLogin = &now
	}

	return &ports.Session{User: user, Access: access, Refresh: refresh}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.IssuedToken, error) {
	return s.tokens.RotateFromRefresh(ctx, refreshToken)
}

func (s *AuthService) Profile(ctx context.Context, caller domain.Caller) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, domain.Upstream("profile: find user", err)
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context, caller domain.Caller) ([]*domain.User, error) {
	if err := domain.Authorize(caller, domain.ActionListUsers); err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, domain.Upstream("list users", err)
	}
	return users, nil
}
