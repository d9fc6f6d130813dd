package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/filevault/vault-api/internal/core/domain"
	"github.com/filevault/vault-api/internal/core/service"
)

type stubDirectory struct {
	users map[string]*domain.User
}

func (d *stubDirectory) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := d.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func newFixture() (*service.TokenService, *stubDirectory) {
	tokens := service.NewTokenService("secret", time.Hour)
	dir := &stubDirectory{users: map[string]*domain.User{
		"alice": {ID: "u1", Username: "alice", Role: domain.RoleUser},
	}}
	return tokens, dir
}

func TestIdentity_ValidToken(t *testing.T) {
	e := echo.New()
	tokens, dir := newFixture()

	signed, err := tokens.Issue("alice", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	mw := Identity(tokens, dir)
	handler := mw(func(c echo.Context) error {
		called = true
		if c.Get(CtxUsername) != "alice" {
			t.Fatalf("username not set")
		}
		if c.Get(CtxRole) != domain.RoleUser {
			t.Fatalf("role not set")
		}
		if c.Get(CtxUserID) != "u1" {
			t.Fatalf("user id not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
}

// anonymousCheck runs the middleware and asserts the request reached the next
// handler with no identity bound.
func anonymousCheck(t *testing.T, c echo.Context, mw echo.MiddlewareFunc) {
	t.Helper()
	called := false
	handler := mw(func(c echo.Context) error {
		called = true
		if c.Get(CtxUsername) != nil || c.Get(CtxRole) != nil {
			t.Fatalf("identity must not be bound")
		}
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("anonymous request must not be rejected here: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
}

func TestIdentity_MissingHeaderIsAnonymous(t *testing.T) {
	e := echo.New()
	tokens, dir := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	anonymousCheck(t, c, Identity(tokens, dir))
}

func TestIdentity_NonBearerHeaderIsAnonymous(t *testing.T) {
	e := echo.New()
	tokens, dir := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	c := e.NewContext(req, httptest.NewRecorder())

	anonymousCheck(t, c, Identity(tokens, dir))
}

func TestIdentity_ForgedTokenIsAnonymous(t *testing.T) {
	e := echo.New()
	tokens, dir := newFixture()

	forged, err := service.NewTokenService("other-secret", time.Hour).Issue("alice", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	c := e.NewContext(req, httptest.NewRecorder())

	anonymousCheck(t, c, Identity(tokens, dir))
}

func TestIdentity_UnknownSubjectIsAnonymous(t *testing.T) {
	e := echo.New()
	tokens, dir := newFixture()

	signed, err := tokens.Issue("ghost", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	c := e.NewContext(req, httptest.NewRecorder())

	anonymousCheck(t, c, Identity(tokens, dir))
}

func TestIdentity_GarbageTokenIsAnonymous(t *testing.T) {
	e := echo.New()
	tokens, dir := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	c := e.NewContext(req, httptest.NewRecorder())

	anonymousCheck(t, c, Identity(tokens, dir))
}
