package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
)

type stubAuthorizer struct {
	authorizeFn func(ctx context.Context, token string) (*ports.Principal, error)
}

func (s *stubAuthorizer) Authorize(ctx context.Context, token string) (*ports.Principal, error) {
	return s.authorizeFn(ctx, token)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	stub := &stubAuthorizer{
		authorizeFn: func(_ context.Context, token string) (*ports.Principal, error) {
			if token != "good-token" {
				t.Fatalf("unexpected token %q", token)
			}
			return &ports.Principal{UserID: 7, Role: domain.RoleAdmin, User: &domain.User{ID: 7}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(stub)(func(c echo.Context) error {
		called = true
		if c.Get(ContextUserID) != int64(7) {
			t.Fatalf("user_id not set")
		}
		if c.Get(ContextRole) != "ADMIN" {
			t.Fatalf("role not set")
		}
		p, ok := PrincipalFrom(c)
		if !ok || p.UserID != 7 {
			t.Fatalf("principal not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Auth(&stubAuthorizer{})(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_InvalidHeaderFormat(t *testing.T) {
	for _, header := range []string{"Token abc", "Bearer", "Bearer   "} {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := Auth(&stubAuthorizer{})(func(c echo.Context) error {
			t.Fatalf("should not reach next")
			return nil
		})

		if err := handler(c); err != nil {
			e.HTTPErrorHandler(err, c)
		}

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestAuthMiddleware_AuthorizerError(t *testing.T) {
	e := echo.New()
	stub := &stubAuthorizer{
		authorizeFn: func(context.Context, string) (*ports.Principal, error) {
			return nil, domain.ErrSessionRevoked
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer revoked")
	c := e.NewContext(req, httptest.NewRecorder())

	handler := Auth(stub)(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != domain.ErrSessionRevoked {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}
