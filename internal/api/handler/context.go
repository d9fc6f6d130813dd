package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/filevault/vault-api/internal/api/middleware"
	"github.com/filevault/vault-api/internal/core/ports"
)

// ctxIdentity extracts the identity injected by the Identity middleware and
// performs a fast-fail check before any service call: all three claims must
// be present (presence proves both the middleware and RBAC ran). The identity
// is then passed explicitly into every service call rather than re-read from
// ambient state.
func ctxIdentity(c echo.Context) (ports.Identity, error) {
	role, _ := c.Get(middleware.CtxRole).(string)
	username, _ := c.Get(middleware.CtxUsername).(string)
	userID, _ := c.Get(middleware.CtxUserID).(string)
	if role == "" || username == "" || userID == "" {
		return ports.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	return ports.Identity{UserID: userID, Username: username, Role: role}, nil
}
