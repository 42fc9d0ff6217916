package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
)

//go:embed templates/*.html
var files embed.FS

const (
	PageLogin     = "login"
	PageRegister  = "register"
	PageProduct   = "product"
	PageAdmin     = "adminpage"
	PartCheckout  = "checkout"
	revenueNotSet = "not implemented"
)

// Page is the data every full page receives.
type Page struct {
	Title     string
	User      *session.User
	Alert     *session.Alert
	CSRFToken string

	Products []models.Product
	Users    []models.User
	Stats    service.Stats
	Cart     cart.View

	// login and register forms echo back what was typed
	Username string
	Address  string
}

var Funcs = template.FuncMap{
	"rupiah": func(v float64) string {
		return cart.FormatRupiah(int64(math.Round(v)))
	},
	"revenue": func(v *float64) string {
		if v == nil {
			return revenueNotSet
		}
		return cart.FormatRupiah(int64(math.Round(*v)))
	},
	"image": func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	},
	"date": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
}

// pages maps each page to its template files; every page is parsed together
// with the layout into its own set.
var pages = map[string][]string{
	PageLogin:    {"templates/layout.html", "templates/login.html"},
	PageRegister: {"templates/layout.html", "templates/register.html"},
	PageProduct:  {"templates/layout.html", "templates/checkout.html", "templates/product.html"},
	PageAdmin:    {"templates/layout.html", "templates/adminpage.html"},
	PartCheckout: {"templates/checkout.html"},
}

type Renderer struct {
	Templates map[string]*template.Template
}

func New() (*Renderer, error) {
	t := make(map[string]*template.Template, len(pages))
	for name, paths := range pages {
		tmpl, err := template.New(name).Funcs(Funcs).ParseFS(files, paths...)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		t[name] = tmpl
	}
	return &Renderer{Templates: t}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.Templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	entry := "layout"
	if name == PartCheckout {
		entry = PartCheckout
	}
	return tmpl.ExecuteTemplate(w, entry, data)
}
