package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/session"
)

const AccessDenied = "Access denied. Admin only."

// RequireAdmin answers 403 unless the session user has the admin role.
func RequireAdmin(m *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := m.CurrentUser(c)
			if !ok || !u.IsAdmin() {
				logging.FromContext(c.Request().Context()).Warn("admin_gate_denied", "status", 403, "authenticated", ok)
				return c.String(http.StatusForbidden, AccessDenied)
			}
			setUserContext(c, u)
			return next(c)
		}
	}
}
