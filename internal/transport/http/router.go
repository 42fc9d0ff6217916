package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/handlers"
	"github.com/Skotchmaster/storefront/internal/logging"
	mwauth "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/session"
)

const PageNotFound = "Page not found"

type Deps struct {
	DB       *gorm.DB
	Sessions *session.Manager
	CSRF     csrf.Config

	UploadDir string
	PublicDir string

	AuthHandler    *handlers.AuthHTTP
	PageHandler    *handlers.StorefrontHTTP
	ProductHandler *handlers.ProductHTTP
	UserHandler    *handlers.UserHTTP
	CartHandler    *handlers.CartHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = ErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context(), d.DB); err != nil {
			logging.FromContext(c.Request().Context()).Error("ready_check_error", "status", 503, "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	if d.UploadDir != "" {
		e.Static("/uploads", d.UploadDir)
	}
	if d.PublicDir != "" {
		e.Static("/static", d.PublicDir)
	}

	// root routes take their middleware per route; a group with an empty prefix
	// would put its gates in front of the not-found catch-all as well
	base := []echo.MiddlewareFunc{d.Sessions.Middleware(), csrf.Middleware(d.CSRF)}
	userOnly := append(base[:len(base):len(base)], mwauth.RequireAuthenticated(d.Sessions))
	adminOnly := append(base[:len(base):len(base)], mwauth.RequireAdmin(d.Sessions))

	e.GET("/", d.AuthHandler.Home, base...)
	e.GET("/login", d.AuthHandler.LoginPage, base...)
	e.POST("/login", d.AuthHandler.Login, base...)
	e.GET("/register", d.AuthHandler.RegisterPage, base...)
	e.POST("/register", d.AuthHandler.Register, base...)
	e.GET("/logout", d.AuthHandler.LogOut, base...)

	e.GET("/product", d.PageHandler.ProductPage, userOnly...)
	e.GET("/adminpage", d.PageHandler.AdminPage, adminOnly...)

	cart := e.Group("/cart", userOnly...)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("/items", d.CartHandler.AddItem)
	cart.DELETE("/items/:id", d.CartHandler.RemoveItem)
	cart.POST("/clear", d.CartHandler.Clear)

	api := e.Group("/api", adminOnly...)
	api.GET("/stats", d.PageHandler.Stats)
	api.GET("/products/search", d.ProductHandler.Search)
	api.POST("/products", d.ProductHandler.Create)
	api.GET("/products/:id", d.ProductHandler.Get)
	api.PUT("/products/:id", d.ProductHandler.Update)
	api.PUT("/products/:id/image", d.ProductHandler.UpdateImage)
	api.DELETE("/products/:id", d.ProductHandler.Delete)
	api.DELETE("/users/:id", d.UserHandler.DeleteUser)
}

// BodyLimit caps request bodies except on the image upload routes, where the
// uploader enforces its own limit and answers with the file size error.
func BodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit:   limit,
		Skipper: isUploadRoute,
	})
}

func isUploadRoute(c echo.Context) bool {
	switch c.Request().Method {
	case http.MethodPost:
		return c.Path() == "/api/products"
	case http.MethodPut:
		return c.Path() == "/api/products/:id/image"
	}
	return false
}

func wantsJSON(c echo.Context) bool {
	p := c.Request().URL.Path
	return strings.HasPrefix(p, "/api/") ||
		strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// ErrorHandler answers API callers with {"error": msg} and browsers with plain text.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "error", err)
	}
	if code == http.StatusNotFound {
		msg = PageNotFound
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else if wantsJSON(c) {
		err = c.JSON(code, map[string]any{"error": msg})
	} else {
		err = c.String(code, msg)
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("error_handler_error", "error", err)
	}
}
