package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/session"
)

const (
	CtxUserID = "userID"
	CtxRole   = "role"
	CtxUser   = "sessionUser"
)

func setUserContext(c echo.Context, u session.User) {
	c.Set(CtxUserID, u.ID)
	c.Set(CtxRole, u.Role)
	c.Set(CtxUser, u)
}

// UserFrom returns the user stored by one of the gates.
func UserFrom(c echo.Context) (session.User, bool) {
	u, ok := c.Get(CtxUser).(session.User)
	return u, ok
}
