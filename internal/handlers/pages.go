package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/views"
)

type StorefrontHTTP struct {
	Catalog  *service.CatalogService
	Admin    *service.AdminService
	Carts    *service.CartService
	Sessions *session.Manager
}

// ProductPage lists every product, newest first. A failing query renders an
// empty list.
func (h *StorefrontHTTP) ProductPage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "page.product")

	p := page(c, h.Sessions)
	p.Title = "Products"

	products, err := h.Catalog.ListProducts(ctx)
	if err != nil {
		l.Error("list_products_error", "status", 200, "reason", "rendering empty list", "error", err)
		products = []models.Product{}
	}
	p.Products = products

	if h.Carts != nil {
		cartID, err := h.Sessions.CartID(c, uuid.NewString)
		if err != nil {
			l.Warn("cart_id_error", "error", err)
		} else {
			p.Cart = h.Carts.View(cartID)
		}
	}

	return c.Render(http.StatusOK, views.PageProduct, p)
}

func (h *StorefrontHTTP) AdminPage(c echo.Context) error {
	ctx := c.Request().Context()

	p := page(c, h.Sessions)
	p.Title = "Admin Dashboard"

	d := h.Admin.Dashboard(ctx)
	p.Products = d.Products
	p.Users = d.Users
	p.Stats = d.Stats

	return c.Render(http.StatusOK, views.PageAdmin, p)
}

// Stats serves the dashboard counters as JSON.
func (h *StorefrontHTTP) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Admin.Dashboard(c.Request().Context()).Stats)
}
