package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

func rbacContext(caller *domain.Caller) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if caller != nil {
		SetCaller(c, *caller)
	}
	return c, rec
}

func TestRBAC_Allows(t *testing.T) {
	c, rec := rbacContext(&domain.Caller{UserID: "a", Role: domain.RoleAdmin})

	called := false
	handler := RBAC(domain.ActionViewAllOrders)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRBAC_Forbids(t *testing.T) {
	c, _ := rbacContext(&domain.Caller{UserID: "c", Role: domain.RoleClient})

	handler := RBAC(domain.ActionUpdateOrderStatus)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	if err := handler(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRBAC_AdminCannotCreateOrders(t *testing.T) {
	c, _ := rbacContext(&domain.Caller{UserID: "a", Role: domain.RoleAdmin})

	handler := RBAC(domain.ActionCreateOrder)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	if err := handler(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRBAC_NoCallerIsUnauthenticated(t *testing.T) {
	c, _ := rbacContext(nil)

	handler := RBAC(domain.ActionCreateOrder)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	if err := handler(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
