package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/session"
)

const LoginPath = "/login"

// RequireAuthenticated lets any logged-in user through and sends everyone else
// to the login page.
func RequireAuthenticated(m *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := m.CurrentUser(c)
			if !ok {
				logging.FromContext(c.Request().Context()).Info("auth_redirect", "reason", "no session user")
				return c.Redirect(http.StatusFound, LoginPath)
			}
			setUserContext(c, u)
			return next(c)
		}
	}
}
