package views

import (
	"bytes"
	"html/template"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
)

func render(t *testing.T, name string, data any) string {
	t.Helper()
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, name, data, nil))
	return buf.String()
}

func TestProductPage(t *testing.T) {
	img := "/uploads/1-2.png"
	e := cart.New()
	_, err := e.AddItem("Shirt", "Rp 150.000")
	require.NoError(t, err)

	out := render(t, PageProduct, Page{
		User:      &session.User{Username: "alice", Role: models.RoleUser},
		Alert:     &session.Alert{Message: "Login successful! Welcome alice", Type: session.AlertSuccess},
		CSRFToken: "tok",
		Products: []models.Product{
			{ID: 1, Name: "Shirt", Price: 150000, Image: &img, CreatedAt: time.Now()},
			{ID: 2, Name: "Hat <b>", Price: 50000},
		},
		Cart: e.Render(),
	})

	assert.Contains(t, out, `class="card h-100 product-card"`)
	assert.Contains(t, out, `<p class="fw-bold product-price">Rp 150.000</p>`)
	assert.Contains(t, out, "Hat &lt;b&gt;", "names are escaped")
	assert.Contains(t, out, "Login successful! Welcome alice")
	assert.Contains(t, out, `alert-success`)
	assert.Contains(t, out, `content="tok"`)
	assert.Contains(t, out, `id="checkoutTotal">Rp 150.000<`)
	assert.Contains(t, out, `src="/uploads/1-2.png"`)
}

func TestCheckoutFragment_Empty(t *testing.T) {
	out := render(t, PartCheckout, cart.New().Render())

	assert.Contains(t, out, template.HTMLEscapeString(cart.EmptyPlaceholder))
	assert.Contains(t, out, "display: none")
	assert.Contains(t, out, `id="checkoutTotal">Rp 0<`)
	assert.NotContains(t, out, "<html")
}

func TestAdminPage_RevenueNotImplemented(t *testing.T) {
	out := render(t, PageAdmin, Page{
		User:     &session.User{Username: "admin", Role: models.RoleAdmin},
		Products: []models.Product{{ID: 3, Name: "Shirt", Price: 150000}},
		Users: []models.User{
			{ID: 1, Username: "admin", Role: models.RoleAdmin},
			{ID: 2, Username: "bob", Role: models.RoleUser},
		},
		Stats: service.Stats{TotalProducts: 1, TotalUsers: 2},
	})

	assert.Contains(t, out, `id="statRevenue">not implemented<`)
	assert.Contains(t, out, `data-user-id="2"`)
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("delete-user-btn\" data-id")), "admins get no delete button")
}

func TestLoginAndRegisterPages(t *testing.T) {
	out := render(t, PageLogin, Page{
		Alert:    &session.Alert{Message: "Invalid username or password!", Type: session.AlertError},
		Username: "alice",
	})
	assert.Contains(t, out, `action="/login"`)
	assert.Contains(t, out, "alert-danger")
	assert.Contains(t, out, `value="alice"`)

	out = render(t, PageRegister, Page{Address: "Jl. Merdeka"})
	assert.Contains(t, out, `action="/register"`)
	assert.Contains(t, out, "Jl. Merdeka")
}

func TestUnknownTemplate(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	assert.Error(t, r.Render(&bytes.Buffer{}, "nope", nil, nil))
}
