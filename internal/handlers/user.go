package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
)

type UserHTTP struct {
	Svc *service.AdminService
}

func (h *UserHTTP) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.delete")

	id, err := parseID(c)
	if err != nil {
		l.Warn("user_delete_error", "status", 400, "reason", "id is not a positive integer", "id", c.Param("id"))
		return jsonError(c, http.StatusBadRequest, "Invalid user id")
	}

	if err := h.Svc.DeleteUser(ctx, id); err != nil {
		switch {
		case errors.Is(err, service.ErrAdminUndeletable):
			l.Warn("user_delete_error", "status", 400, "reason", "target is admin", "userID", id)
			return jsonError(c, http.StatusBadRequest, "Cannot delete admin user")
		case errors.Is(err, service.ErrNotFound):
			l.Warn("user_delete_error", "status", 404, "reason", "not found", "userID", id)
			return jsonError(c, http.StatusNotFound, "User not found")
		default:
			l.Error("user_delete_error", "status", 500, "reason", "cannot delete user", "error", err)
			return jsonError(c, http.StatusInternalServerError, "Failed to delete user")
		}
	}

	l.Info("delete_user_success", "userID", id)
	return jsonSuccess(c, http.StatusOK, "User deleted successfully", nil)
}
