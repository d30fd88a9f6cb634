package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTokenService(t *testing.T, users *stubUserRepo) (*TokenService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewTokenService(users, TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc, clock
}

func TestNewTokenService_RejectsBadSecrets(t *testing.T) {
	cases := []struct {
		name            string
		access, refresh string
	}{
		{"missing access", "", "r"},
		{"missing refresh", "a", ""},
		{"identical", "same", "same"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewTokenService(newStubUserRepo(), TokenConfig{AccessSecret: tc.access, RefreshSecret: tc.refresh}); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestTokenService_IssueAndVerifyAccess(t *testing.T) {
	svc, clock := newTestTokenService(t, newStubUserRepo())

	tok, err := svc.IssueAccessToken("u1", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.Type != domain.TokenAccess || tok.MaxAge != time.Hour {
		t.Errorf("unexpected token metadata: %+v", tok)
	}
	if !tok.ExpiresAt.Equal(clock.Now().Add(time.Hour)) {
		t.Errorf("ExpiresAt: want %v, got %v", clock.Now().Add(time.Hour), tok.ExpiresAt)
	}

	caller, err := svc.Verify(tok.Value, domain.TokenAccess)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if caller.UserID != "u1" || caller.Role != domain.RoleAdmin {
		t.Errorf("unexpected caller: %+v", caller)
	}
}

func TestTokenService_IssueAccess_RejectsUnknownRole(t *testing.T) {
	svc, _ := newTestTokenService(t, newStubUserRepo())
	if _, err := svc.IssueAccessToken("u1", "root"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.IssueRefreshToken(" "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty user id, got %v", err)
	}
}

func TestTokenService_WrongTypeBothDirections(t *testing.T) {
	svc, _ := newTestTokenService(t, newStubUserRepo())

	access, _ := svc.IssueAccessToken("u1", domain.RoleClient)
	refresh, _ := svc.IssueRefreshToken("u1")

	if _, err := svc.Verify(refresh.Value, domain.TokenAccess); !errors.Is(err, domain.ErrTokenWrongType) {
		t.Errorf("refresh as access: expected ErrTokenWrongType, got %v", err)
	}
	if _, err := svc.Verify(access.Value, domain.TokenRefresh); !errors.Is(err, domain.ErrTokenWrongType) {
		t.Errorf("access as refresh: expected ErrTokenWrongType, got %v", err)
	}
}

func TestTokenService_ExpiredAlwaysReportsExpired(t *testing.T) {
	svc, clock := newTestTokenService(t, newStubUserRepo())

	access, _ := svc.IssueAccessToken("u1", domain.RoleClient)
	refresh, _ := svc.IssueRefreshToken("u1")

	clock.Advance(48 * time.Hour)

	// Expiry wins over a type mismatch.
	checks := []struct {
		token    string
		expected domain.TokenType
	}{
		{access.Value, domain.TokenAccess},
		{access.Value, domain.TokenRefresh},
		{refresh.Value, domain.TokenRefresh},
		{refresh.Value, domain.TokenAccess},
	}
	for i, c := range checks {
		_, err := svc.Verify(c.token, c.expected)
		if !errors.Is(err, domain.ErrTokenExpired) {
			t.Errorf("check %d: expected ErrTokenExpired, got %v", i, err)
		}
		if errors.Is(err, domain.ErrTokenWrongType) || errors.Is(err, domain.ErrTokenMalformed) {
			t.Errorf("check %d: expired token reported another kind: %v", i, err)
		}
	}
}

func TestTokenService_ValidUntilExpiry(t *testing.T) {
	svc, clock := newTestTokenService(t, newStubUserRepo())
	access, _ := svc.IssueAccessToken("u1", domain.RoleClient)

	clock.Advance(59 * time.Minute)
	if _, err := svc.Verify(access.Value, domain.TokenAccess); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}
	clock.Advance(2 * time.Minute)
	if _, err := svc.Verify(access.Value, domain.TokenAccess); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenService_ExpiresAtExpiryInstant(t *testing.T) {
	svc, clock := newTestTokenService(t, newStubUserRepo())
	access, _ := svc.IssueAccessToken("u1", domain.RoleClient)

	clock.Advance(time.Hour - time.Second)
	if _, err := svc.Verify(access.Value, domain.TokenAccess); err != nil {
		t.Fatalf("one second before expiry the token is valid: %v", err)
	}
	clock.Advance(time.Second)
	if !clock.Now().Equal(access.ExpiresAt) {
		t.Fatalf("clock %s should sit on expiry %s", clock.Now(), access.ExpiresAt)
	}
	if _, err := svc.Verify(access.Value, domain.TokenAccess); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("at the expiry instant: expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenService_Malformed(t *testing.T) {
	svc, clock := newTestTokenService(t, newStubUserRepo())
	access, _ := svc.IssueAccessToken("u1", domain.RoleClient)

	parts := strings.Split(access.Value, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	foreign, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UserID: "u1",
		Role:   domain.RoleAdmin,
		Type:   domain.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("someone-elses-secret"))

	noType, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "u1",
		"exp":    clock.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("access-secret"))

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "u1",
		"role":   "client",
		"type":   "access",
	}).SignedString([]byte("access-secret"))

	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "u1",
		"role":   "superuser",
		"type":   "access",
		"exp":    clock.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("access-secret"))

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"userId": "u1",
		"role":   "admin",
		"type":   "access",
		"exp":    clock.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not-a-jwt",
		"tampered":       tampered,
		"foreign secret": foreign,
		"missing type":   noType,
		"missing exp":    noExp,
		"unknown role":   badRole,
		"alg none":       none,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Verify(tok, domain.TokenAccess); !errors.Is(err, domain.ErrTokenMalformed) {
				t.Fatalf("expected ErrTokenMalformed, got %v", err)
			}
		})
	}
}

func TestTokenService_RefreshSignedWithAccessSecretIsMalformed(t *testing.T) {
	svc, clock := newTestTokenService(t, newStubUserRepo())

	forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UserID: "u1",
		Type:   domain.TokenRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("access-secret"))

	if _, err := svc.Verify(forged, domain.TokenRefresh); !errors.Is(err, domain.ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestTokenService_VerifyIsIdempotent(t *testing.T) {
	svc, _ := newTestTokenService(t, newStubUserRepo())
	tok, _ := svc.IssueAccessToken("u7", domain.RoleClient)

	first, err1 := svc.Verify(tok.Value, domain.TokenAccess)
	second, err2 := svc.Verify(tok.Value, domain.TokenAccess)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if first != second {
		t.Fatalf("verify not idempotent: %+v vs %+v", first, second)
	}
}

func TestTokenService_RotateFromRefresh_ReadsCurrentRole(t *testing.T) {
	users := newStubUserRepo()
	users.put(&domain.User{ID: "u1", Email: "a@example.com", Role: domain.RoleClient})
	svc, _ := newTestTokenService(t, users)

	refresh, _ := svc.IssueRefreshToken("u1")

	// Promote after the refresh token was minted.
	users.put(&domain.User{ID: "u1", Email: "a@example.com", Role: domain.RoleAdmin})

	access, err := svc.RotateFromRefresh(context.Background(), refresh.Value)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	caller, err := svc.Verify(access.Value, domain.TokenAccess)
	if err != nil {
		t.Fatalf("verify rotated token: %v", err)
	}
	if caller.Role != domain.RoleAdmin {
		t.Errorf("expected role re-read from storage (admin), got %s", caller.Role)
	}
}

func TestTokenService_RotateFromRefresh_Failures(t *testing.T) {
	users := newStubUserRepo()
	users.put(&domain.User{ID: "u1", Role: domain.RoleClient})
	svc, clock := newTestTokenService(t, users)

	access, _ := svc.IssueAccessToken("u1", domain.RoleClient)
	if _, err := svc.RotateFromRefresh(context.Background(), access.Value); !errors.Is(err, domain.ErrTokenWrongType) {
		t.Errorf("access token: expected ErrTokenWrongType, got %v", err)
	}

	ghost, _ := svc.IssueRefreshToken("deleted-user")
	if _, err := svc.RotateFromRefresh(context.Background(), ghost.Value); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("deleted user: expected ErrUserNotFound, got %v", err)
	}

	users.findErr = errStoreDown
	live, _ := svc.IssueRefreshToken("u1")
	if _, err := svc.RotateFromRefresh(context.Background(), live.Value); !errors.Is(err, domain.ErrUpstream) {
		t.Errorf("store down: expected ErrUpstream, got %v", err)
	}
	users.findErr = nil

	clock.Advance(25 * time.Hour)
	if _, err := svc.RotateFromRefresh(context.Background(), live.Value); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expired refresh: expected ErrTokenExpired, got %v", err)
	}
}
