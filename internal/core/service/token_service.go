package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/ports"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/pkg/metrics"
)

const (
	defaultAccessTTL  = 6 * time.Hour
	defaultRefreshTTL = 72 * time.Hour
)

// TokenConfig holds the signing material and lifetimes for both token kinds.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// tokenClaims is the signed payload. Type is inside the signature so a refresh
// token can never be replayed as an access token.
type tokenClaims struct {
	UserID string           `json:"userId"`
	Role   domain.Role      `json:"role,omitempty"`
	Type   domain.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 access and refresh tokens.
type TokenService struct {
	users         ports.UserRepository
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

var _ ports.TokenService = (*TokenService)(nil)

// NewTokenService validates cfg and returns a TokenService. The two secrets must
// be present and distinct.
func NewTokenService(users ports.UserRepository, cfg TokenConfig) (*TokenService, error) {
	if strings.TrimSpace(cfg.AccessSecret) == "" || strings.TrimSpace(cfg.RefreshSecret) == "" {
		return nil, errors.New("token service: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token service: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenService{
		users:         users,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           cfg.Now,
	}, nil
}

func (s *TokenService) IssueAccessToken(userID string, role domain.Role) (domain.IssuedToken, error) {
	if !role.Valid() {
		return domain.IssuedToken{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	return s.issue(userID, role, domain.TokenAccess)
}

func (s *TokenService) IssueRefreshToken(userID string) (domain.IssuedToken, error) {
	return s.issue(userID, "", domain.TokenRefresh)
}

func (s *TokenService) issue(userID string, role domain.Role, typ domain.TokenType) (domain.IssuedToken, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.IssuedToken{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	ttl, secret := s.accessTTL, s.accessSecret
	if typ == domain.TokenRefresh {
		ttl, secret = s.refreshTTL, s.refreshSecret
	}

	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := tokenClaims{
		UserID: userID,
		Role:   role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("sign %s token: %w", typ, err)
	}

	metrics.TokensIssuedTotal.WithLabelValues(string(typ)).Inc()
	return domain.IssuedToken{
		Value:     signed,
		Type:      typ,
		ExpiresAt: claims.ExpiresAt.Time,
		MaxAge:    ttl,
	}, nil
}

// Verify checks signature, expiry and type, in that order. The signing key is
// chosen by the token's claimed type, so a genuine token of the other kind
// fails with ErrTokenWrongType rather than ErrTokenMalformed.
func (s *TokenService) Verify(token string, expected domain.TokenType) (domain.Caller, error) {
	caller, err := s.verify(token, expected)
	metrics.TokenVerificationsTotal.WithLabelValues(string(expected), verifyResult(err)).Inc()
	return caller, err
}

func (s *TokenService) verify(token string, expected domain.TokenType) (domain.Caller, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Caller{}, domain.ErrTokenMalformed
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, s.keyFor,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Caller{}, domain.ErrTokenExpired
		}
		return domain.Caller{}, domain.ErrTokenMalformed
	}
	if !parsed.Valid || strings.TrimSpace(claims.UserID) == "" {
		return domain.Caller{}, domain.ErrTokenMalformed
	}

	if claims.Type != expected {
		return domain.Caller{}, domain.ErrTokenWrongType
	}
	if expected == domain.TokenAccess && !claims.Role.Valid() {
		return domain.Caller{}, domain.ErrTokenMalformed
	}

	return domain.Caller{UserID: claims.UserID, Role: claims.Role}, nil
}

func (s *TokenService) keyFor(t *jwt.Token) (any, error) {
	claims, ok := t.Claims.(*tokenClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	switch claims.Type {
	case domain.TokenAccess:
		return s.accessSecret, nil
	case domain.TokenRefresh:
		return s.refreshSecret, nil
	default:
		return nil, jwt.ErrTokenInvalidClaims
	}
}

// RotateFromRefresh issues a new access token for the holder of a valid
// refresh token. The role is read from storage, never from the token.
func (s *TokenService) RotateFromRefresh(ctx context.Context, refreshToken string) (domain.IssuedToken, error) {
	caller, err := s.Verify(refreshToken, domain.TokenRefresh)
	if err != nil {
		return domain.IssuedToken{}, err
	}

	user, err := s.users.FindByID(ctx, caller.UserID)
	if err != nil {
		return domain.IssuedToken{}, domain.Upstream("rotate: find user", err)
	}

	return s.IssueAccessToken(user.ID, user.Role)
}

func verifyResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenWrongType):
		return "wrong_type"
	default:
		return "malformed"
	}
}
