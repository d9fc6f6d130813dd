package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/filevault/vault-api/internal/core/domain"
	"github.com/filevault/vault-api/internal/core/ports"
)

// Context keys set by Identity for downstream authorization and handlers.
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxRole     = "role"
)

// UserDirectory resolves token subjects to stored users.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Identity resolves the bearer token into a request-scoped identity: decode
// the subject, look it up in the user directory, validate the token against
// that user, and bind username/role/user-id into the context. A missing,
// malformed, stale, or forged token leaves the request anonymous. Rejection
// is deferred to RBAC so public routes stay reachable with a bad token
// attached.
func Identity(tokens ports.TokenService, users UserDirectory) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return next(c)
			}
			token := parts[1]

			subject := tokens.Subject(token)
			if subject == "" {
				return next(c)
			}

			user, err := users.FindByUsername(c.Request().Context(), subject)
			if err != nil {
				return next(c)
			}
			if !tokens.Validate(token, user.Username) {
				return next(c)
			}

			role := grantedRole(tokens.Roles(token))
			if role == "" {
				return next(c)
			}

			c.Set(CtxUserID, user.ID)
			c.Set(CtxUsername, user.Username)
			c.Set(CtxRole, role)

			return next(c)
		}
	}
}

// grantedRole picks the first claim belonging to the closed role set.
func grantedRole(claims []string) string {
	for _, r := range claims {
		if domain.ValidRole(r) {
			return r
		}
	}
	return ""
}
