package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/views"
)

const (
	PathProduct = "/product"
	PathAdmin   = "/adminpage"
	PathLogin   = "/login"
)

func jsonError(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]any{"error": msg})
}

func jsonSuccess(c echo.Context, code int, msg string, extra map[string]any) error {
	body := map[string]any{"success": true, "message": msg}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(code, body)
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.ErrBadRequest
	}
	return uint(id), nil
}

func homeFor(u session.User) string {
	if u.Role == models.RoleAdmin {
		return PathAdmin
	}
	return PathProduct
}

// page fills the fields every full page needs: the session user, the pending
// alert (consumed here) and the CSRF token.
func page(c echo.Context, m *session.Manager) views.Page {
	p := views.Page{}
	if u, ok := m.CurrentUser(c); ok {
		p.User = &u
	}
	if a, ok := m.TakeAlert(c); ok {
		p.Alert = &a
	}
	p.CSRFToken, _ = c.Get(csrf.ContextKey).(string)
	return p
}

func redirect(c echo.Context, to string) error {
	return c.Redirect(http.StatusFound, to)
}
