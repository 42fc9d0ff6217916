package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/logging"
	mwauth "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/views"
)

// CartHTTP serves the checkout fragment. Clients asking for JSON get the view
// model instead of HTML.
type CartHTTP struct {
	Svc      *service.CartService
	Sessions *session.Manager
}

func (h *CartHTTP) respond(c echo.Context, code int, v cart.View) error {
	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) {
		return c.JSON(code, v)
	}
	return c.Render(code, views.PartCheckout, v)
}

func (h *CartHTTP) cartID(c echo.Context) (string, uint, error) {
	var userID uint
	if u, ok := mwauth.UserFrom(c); ok {
		userID = u.ID
	}
	id, err := h.Sessions.CartID(c, uuid.NewString)
	return id, userID, err
}

// GetCart opens the checkout view, as clicking the cart icon does.
func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	id, userID, err := h.cartID(c)
	if err != nil {
		l.Error("get_cart_error", "status", 500, "reason", "no cart id", "error", err)
		return jsonError(c, http.StatusInternalServerError, "internal server error")
	}
	return h.respond(c, http.StatusOK, h.Svc.Open(ctx, id, userID))
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	id, userID, err := h.cartID(c)
	if err != nil {
		l.Error("add_to_cart_error", "status", 500, "reason", "no cart id", "error", err)
		return jsonError(c, http.StatusInternalServerError, "internal server error")
	}

	var req transport.CartItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "reason", "invalid body", "error", err)
		return h.respond(c, http.StatusBadRequest, h.Svc.View(id))
	}
	if strings.TrimSpace(req.Title) == "" {
		l.Warn("add_to_cart_error", "status", 400, "reason", "empty title")
		return h.respond(c, http.StatusBadRequest, h.Svc.View(id))
	}

	v, err := h.Svc.AddItem(ctx, id, userID, strings.TrimSpace(req.Title), req.Price)
	if err != nil {
		l.Warn("add_to_cart_error", "status", 400, "reason", "unparseable price", "price", req.Price, "error", err)
		return h.respond(c, http.StatusBadRequest, v)
	}
	return h.respond(c, http.StatusOK, v)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	id, _, err := h.cartID(c)
	if err != nil {
		l.Error("remove_from_cart_error", "status", 500, "reason", "no cart id", "error", err)
		return jsonError(c, http.StatusInternalServerError, "internal server error")
	}

	v, err := h.Svc.RemoveItem(id, c.Param("id"))
	if err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			l.Warn("remove_from_cart_error", "status", 404, "reason", "no such item", "itemID", c.Param("id"))
			return h.respond(c, http.StatusNotFound, v)
		}
		l.Error("remove_from_cart_error", "status", 500, "error", err)
		return jsonError(c, http.StatusInternalServerError, "internal server error")
	}
	return h.respond(c, http.StatusOK, v)
}

func (h *CartHTTP) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	id, _, err := h.cartID(c)
	if err != nil {
		l.Error("clear_cart_error", "status", 500, "reason", "no cart id", "error", err)
		return jsonError(c, http.StatusInternalServerError, "internal server error")
	}
	return h.respond(c, http.StatusOK, h.Svc.Clear(id))
}
