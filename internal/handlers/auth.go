package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/views"
)

type AuthHTTP struct {
	Svc      *service.AuthService
	Sessions *session.Manager
	Carts    *service.CartService
}

func (h *AuthHTTP) Home(c echo.Context) error {
	if u, ok := h.Sessions.CurrentUser(c); ok {
		return redirect(c, homeFor(u))
	}
	return redirect(c, PathLogin)
}

func (h *AuthHTTP) LoginPage(c echo.Context) error {
	if u, ok := h.Sessions.CurrentUser(c); ok {
		return redirect(c, homeFor(u))
	}
	p := page(c, h.Sessions)
	p.Title = "Login"
	return c.Render(http.StatusOK, views.PageLogin, p)
}

func (h *AuthHTTP) RegisterPage(c echo.Context) error {
	if u, ok := h.Sessions.CurrentUser(c); ok {
		return redirect(c, homeFor(u))
	}
	p := page(c, h.Sessions)
	p.Title = "Register"
	return c.Render(http.StatusOK, views.PageRegister, p)
}

func (h *AuthHTTP) loginForm(c echo.Context, code int, username, msg string) error {
	p := page(c, h.Sessions)
	p.Title = "Login"
	p.Username = username
	p.Alert = &session.Alert{Message: msg, Type: session.AlertError}
	return c.Render(code, views.PageLogin, p)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return h.loginForm(c, http.StatusBadRequest, "", "Username and password are required!")
	}

	user, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("login_error", "status", 400, "reason", "missing fields")
			return h.loginForm(c, http.StatusBadRequest, req.Username, "Username and password are required!")
		case errors.Is(err, service.ErrInvalidCredentials):
			l.Warn("login_error", "status", 401, "reason", "invalid credentials")
			return h.loginForm(c, http.StatusUnauthorized, req.Username, "Invalid username or password!")
		default:
			l.Error("login_error", "status", 500, "reason", "cannot load user", "error", err)
			return h.loginForm(c, http.StatusInternalServerError, req.Username, "Database error!")
		}
	}

	su := session.FromModel(user)
	var alert *session.Alert
	if !su.IsAdmin() {
		alert = &session.Alert{Message: "Login successful! Welcome " + user.Username, Type: session.AlertSuccess}
	}
	prevCart, err := h.Sessions.SignIn(c, su, alert)
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot save session", "error", err)
		return h.loginForm(c, http.StatusInternalServerError, req.Username, "Session error!")
	}
	h.Carts.Drop(prevCart)

	l.Info("login_success", "userID", user.ID, "role", user.Role)
	if su.IsAdmin() {
		return redirect(c, PathAdmin)
	}
	return redirect(c, PathProduct)
}

func (h *AuthHTTP) registerForm(c echo.Context, code int, req transport.RegisterRequest, msg string) error {
	p := page(c, h.Sessions)
	p.Title = "Register"
	p.Username = req.Username
	p.Address = req.Address
	p.Alert = &session.Alert{Message: msg, Type: session.AlertError}
	return c.Render(code, views.PageRegister, p)
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return h.registerForm(c, http.StatusBadRequest, req, "All fields are required!")
	}

	_, err := h.Svc.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Address:  req.Address,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("register_error", "status", 400, "reason", "missing fields")
			return h.registerForm(c, http.StatusBadRequest, req, "All fields are required!")
		case errors.Is(err, service.ErrUserExists):
			l.Warn("register_error", "status", 409, "reason", "username taken")
			return h.registerForm(c, http.StatusConflict, req, "Username already taken!")
		default:
			l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
			return h.registerForm(c, http.StatusInternalServerError, req, "Registration failed!")
		}
	}

	if err := h.Sessions.SetAlert(c, session.Alert{
		Message: "Registration successful! Please log in",
		Type:    session.AlertSuccess,
	}); err != nil {
		l.Warn("register_alert_error", "error", err)
	}
	l.Info("register_success", "username", req.Username)
	return redirect(c, PathLogin)
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	u, ok := h.Sessions.CurrentUser(c)
	if !ok {
		return redirect(c, PathLogin)
	}

	cartID, err := h.Sessions.Restart(c, &session.Alert{
		Message: "Logout successful! See you " + u.Username,
		Type:    session.AlertInfo,
	})
	if err != nil {
		l.Error("logout_error", "status", 500, "reason", "cannot reset session", "error", err)
	}
	if h.Carts != nil {
		h.Carts.Drop(cartID)
	}

	l.Info("logout_success", "userID", u.ID)
	return redirect(c, PathLogin)
}
