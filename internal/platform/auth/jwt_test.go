package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var testSecret = []byte("test-secret")

func doRequest(t *testing.T, mw echo.MiddlewareFunc, authHeader string) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return h(c)
}

func TestMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	token, err := GenerateToken(testSecret, userID, RoleStaff, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotRole, gotID string
	h := Middleware(testSecret)(func(c echo.Context) error {
		gotRole = RoleFromContext(c.Request().Context())
		gotID = UserIDFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotRole != RoleStaff {
		t.Errorf("expected role STAFF, got %q", gotRole)
	}
	if gotID != userID.String() {
		t.Errorf("expected user id %s, got %q", userID, gotID)
	}
}

func TestMiddleware_MissingHeader(t *testing.T) {
	err := doRequest(t, Middleware(testSecret), "")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestMiddleware_BadFormat(t *testing.T) {
	err := doRequest(t, Middleware(testSecret), "Token abc")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestMiddleware_WrongSecret(t *testing.T) {
	token, err := GenerateToken([]byte("other-secret"), uuid.New(), RoleStaff, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = doRequest(t, Middleware(testSecret), "Bearer "+token)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestMiddleware_ExpiredToken(t *testing.T) {
	token, err := GenerateToken(testSecret, uuid.New(), RoleStaff, -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = doRequest(t, Middleware(testSecret), "Bearer "+token)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(role string, required ...string) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := context.WithValue(req.Context(), RoleKey, role)
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		h := RequireRole(required...)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		return h(c)
	}

	if err := run(RoleStaff, RoleStaff); err != nil {
		t.Errorf("staff should access staff routes: %v", err)
	}
	if err := run(RoleAdmin, RoleStaff); err != nil {
		t.Errorf("admin should pass every check: %v", err)
	}
	err := run(RoleStaff, RoleAdmin)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 for staff on admin route, got %v", err)
	}
}
