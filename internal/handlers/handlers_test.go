package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/db/dbtest"
	mwauth "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/upload"
	"github.com/Skotchmaster/storefront/internal/views"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type app struct {
	t         *testing.T
	srv       *httptest.Server
	client    *http.Client
	repo      *repo.GormRepo
	auth      *service.AuthService
	uploadDir string
}

// newApp wires the handlers behind the session gates, without CSRF, on a real
// listener so cookies travel through a jar.
func newApp(t *testing.T) *app {
	t.Helper()

	r := repo.New(dbtest.InitTestDB(t))
	authSvc := &service.AuthService{Repo: r}
	catalog := &service.CatalogService{Repo: r}
	adminSvc := &service.AdminService{Repo: r}
	carts := service.NewCartService(nil)
	sessions := session.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), 3600, false)

	dir := t.TempDir()
	storage, err := upload.NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)
	renderer, err := views.New()
	require.NoError(t, err)

	ah := &AuthHTTP{Svc: authSvc, Sessions: sessions, Carts: carts}
	ph := &StorefrontHTTP{Catalog: catalog, Admin: adminSvc, Carts: carts, Sessions: sessions}
	prod := &ProductHTTP{Svc: catalog, Uploads: upload.New(storage)}
	uh := &UserHTTP{Svc: adminSvc}
	ch := &CartHTTP{Svc: carts, Sessions: sessions}

	e := echo.New()
	e.Renderer = renderer
	e.Use(sessions.Middleware())
	userOnly := mwauth.RequireAuthenticated(sessions)
	adminOnly := mwauth.RequireAdmin(sessions)

	e.GET("/", ah.Home)
	e.GET("/login", ah.LoginPage)
	e.POST("/login", ah.Login)
	e.GET("/register", ah.RegisterPage)
	e.POST("/register", ah.Register)
	e.GET("/logout", ah.LogOut)
	e.GET("/product", ph.ProductPage, userOnly)
	e.GET("/adminpage", ph.AdminPage, adminOnly)
	e.GET("/cart", ch.GetCart, userOnly)
	e.POST("/cart/items", ch.AddItem, userOnly)
	e.DELETE("/cart/items/:id", ch.RemoveItem, userOnly)
	e.POST("/cart/clear", ch.Clear, userOnly)
	e.GET("/api/stats", ph.Stats, adminOnly)
	e.GET("/api/products/search", prod.Search, adminOnly)
	e.POST("/api/products", prod.Create, adminOnly)
	e.GET("/api/products/:id", prod.Get, adminOnly)
	e.PUT("/api/products/:id", prod.Update, adminOnly)
	e.PUT("/api/products/:id/image", prod.UpdateImage, adminOnly)
	e.DELETE("/api/products/:id", prod.Delete, adminOnly)
	e.DELETE("/api/users/:id", uh.DeleteUser, adminOnly)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	a := &app{t: t, srv: srv, repo: r, auth: authSvc, uploadDir: dir}
	a.resetClient()
	return a
}

func (a *app) resetClient() {
	jar, err := cookiejar.New(nil)
	require.NoError(a.t, err)
	a.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type resp struct {
	Code     int
	Location string
	Body     string
}

func (r resp) json(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.Body), &m), r.Body)
	return m
}

func (a *app) do(method, path string, body io.Reader, contentType string, header ...string) resp {
	a.t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, body)
	require.NoError(a.t, err)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	res, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(a.t, err)
	return resp{Code: res.StatusCode, Location: res.Header.Get(echo.HeaderLocation), Body: string(b)}
}

func (a *app) get(path string, header ...string) resp {
	return a.do(http.MethodGet, path, nil, "", header...)
}

func (a *app) postForm(path string, v url.Values) resp {
	return a.do(http.MethodPost, path, strings.NewReader(v.Encode()), echo.MIMEApplicationForm)
}

func (a *app) register(username, password string) {
	a.t.Helper()
	_, err := a.auth.Register(context.Background(), service.RegisterInput{Username: username, Password: password, Address: "Jl. Merdeka 1"})
	require.NoError(a.t, err)
}

func (a *app) seedAdmin() {
	a.t.Helper()
	_, err := a.auth.EnsureDefaultAdmin(context.Background(), service.AdminSeed{Username: "admin", Password: "admin123", Address: "Admin Address"})
	require.NoError(a.t, err)
}

func (a *app) login(username, password string) resp {
	return a.postForm("/login", url.Values{"username": {username}, "password": {password}})
}

type filePart struct {
	filename    string
	contentType string
	body        []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, file.filename))
		h.Set("Content-Type", file.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(file.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func png() *filePart {
	return &filePart{filename: "shirt.PNG", contentType: "image/png", body: pngMagic}
}

func TestHome_RedirectsByRole(t *testing.T) {
	a := newApp(t)
	a.register("alice", "pw")
	a.seedAdmin()

	assert.Equal(t, "/login", a.get("/").Location)

	require.Equal(t, http.StatusFound, a.login("alice", "pw").Code)
	assert.Equal(t, PathProduct, a.get("/").Location)
	assert.Equal(t, PathProduct, a.get("/login").Location, "logged-in users skip the form")
	assert.Equal(t, PathProduct, a.get("/register").Location)

	a.resetClient()
	require.Equal(t, http.StatusFound, a.login("admin", "admin123").Code)
	assert.Equal(t, PathAdmin, a.get("/").Location)
}

func TestLogin(t *testing.T) {
	a := newApp(t)
	a.register("alice", "pw")

	res := a.login("", "pw")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body, "Username and password are required!")

	res = a.login("alice", "wrong")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Contains(t, res.Body, "Invalid username or password!")
	assert.Contains(t, res.Body, `value="alice"`)
	assert.Equal(t, http.StatusFound, a.get("/product").Code, "failed login leaves no session user")

	res = a.login("alice", "pw")
	assert.Equal(t, http.StatusFound, res.Code)
	assert.Equal(t, PathProduct, res.Location)

	res = a.get("/product")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body, "Login successful! Welcome alice")

	res = a.get("/product")
	assert.NotContains(t, res.Body, "Login successful!", "alerts are shown once")
}

func TestLogin_AdminGetsNoAlert(t *testing.T) {
	a := newApp(t)
	a.seedAdmin()

	res := a.login("admin", "admin123")
	assert.Equal(t, http.StatusFound, res.Code)
	assert.Equal(t, PathAdmin, res.Location)

	res = a.get("/adminpage")
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotContains(t, res.Body, "Login successful!")
	assert.Contains(t, res.Body, `id="statRevenue">not implemented<`)
}

func TestRegister(t *testing.T) {
	a := newApp(t)

	res := a.postForm("/register", url.Values{"username": {"bob"}, "password": {"pw"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body, "All fields are required!")

	res = a.postForm("/register", url.Values{"username": {"bob"}, "password": {"pw"}, "address": {"Jl. Sudirman"}})
	assert.Equal(t, http.StatusFound, res.Code)
	assert.Equal(t, PathLogin, res.Location)

	res = a.get("/login")
	assert.Contains(t, res.Body, "Registration successful! Please log in")

	res = a.postForm("/register", url.Values{"username": {"bob"}, "password": {"x"}, "address": {"y"}})
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Contains(t, res.Body, "Username already taken!")

	n, err := a.repo.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	u, err := a.repo.GetUserByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "user", u.Role)
}

func TestRegister_LongPassword(t *testing.T) {
	a := newApp(t)
	long := strings.Repeat("p", 80)

	res := a.postForm("/register", url.Values{"username": {"bob"}, "password": {long}, "address": {"Jl. Sudirman"}})
	require.Equal(t, http.StatusFound, res.Code, res.Body)
	assert.Equal(t, PathLogin, res.Location)

	res = a.login("bob", long)
	assert.Equal(t, http.StatusFound, res.Code)
	assert.Equal(t, PathProduct, res.Location)
}

func TestLogout(t *testing.T) {
	a := newApp(t)
	a.register("alice", "pw")

	res := a.get("/logout")
	assert.Equal(t, PathLogin, res.Location, "logout without a session just redirects")

	a.login("alice", "pw")
	res = a.get("/logout")
	assert.Equal(t, http.StatusFound, res.Code)
	assert.Equal(t, PathLogin, res.Location)

	res = a.get("/login")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body, "Logout successful! See you alice")
	assert.Equal(t, http.StatusFound, a.get("/product").Code)
}

func TestAdminGate(t *testing.T) {
	a := newApp(t)
	a.register("alice", "pw")

	a.login("alice", "pw")
	res := a.get("/adminpage")
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, mwauth.AccessDenied, res.Body)

	res = a.do(http.MethodDelete, "/api/products/1", nil, "")
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestProductAPI(t *testing.T) {
	a := newApp(t)
	a.seedAdmin()
	a.login("admin", "admin123")

	body, ct := multipartBody(t, map[string]string{
		"name": "Shirt", "description": "cotton", "price": "150000", "stock": "3", "category": "apparel",
	}, png())
	res := a.do(http.MethodPost, "/api/products", body, ct)
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	m := res.json(t)
	assert.Equal(t, true, m["success"])
	assert.Equal(t, "Product added successfully", m["message"])
	id := int(m["productId"].(float64))

	res = a.get(fmt.Sprintf("/api/products/%d", id))
	require.Equal(t, http.StatusOK, res.Code)
	p := res.json(t)
	assert.Equal(t, "Shirt", p["name"])
	assert.Equal(t, float64(3), p["stock"])
	image := p["image"].(string)
	assert.True(t, strings.HasPrefix(image, "/uploads/"))
	assert.True(t, strings.HasSuffix(image, ".png"))
	_, err := os.Stat(filepath.Join(a.uploadDir, filepath.Base(image)))
	require.NoError(t, err, "upload is stored")

	form := url.Values{"name": {"Shirt XL"}, "description": {"cotton"}, "price": {"175000"}, "stock": {"1"}, "category": {"apparel"}}
	res = a.do(http.MethodPut, fmt.Sprintf("/api/products/%d", id), strings.NewReader(form.Encode()), echo.MIMEApplicationForm)
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	assert.Equal(t, "Product updated successfully", res.json(t)["message"])

	p = a.get(fmt.Sprintf("/api/products/%d", id)).json(t)
	assert.Equal(t, "Shirt XL", p["name"])
	assert.Equal(t, image, p["image"], "field update leaves the image alone")

	body, ct = multipartBody(t, nil, nil)
	res = a.do(http.MethodPut, fmt.Sprintf("/api/products/%d/image", id), body, ct)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, msgNoImage, res.json(t)["error"])

	body, ct = multipartBody(t, nil, png())
	res = a.do(http.MethodPut, fmt.Sprintf("/api/products/%d/image", id), body, ct)
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	assert.Equal(t, "Product image updated successfully", res.json(t)["message"])
	_, err = os.Stat(filepath.Join(a.uploadDir, filepath.Base(image)))
	assert.True(t, os.IsNotExist(err), "replaced image is removed")

	res = a.do(http.MethodDelete, fmt.Sprintf("/api/products/%d", id), nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Product deleted successfully", res.json(t)["message"])

	res = a.get(fmt.Sprintf("/api/products/%d", id))
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, msgNotFound, res.json(t)["error"])

	res = a.get("/api/products/abc")
	assert.Equal(t, http.StatusBadRequest, res.Code)

	entries, err := os.ReadDir(a.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "deleting the product removes its image")
}

func TestProductAPI_NotFoundAndValidation(t *testing.T) {
	a := newApp(t)
	a.seedAdmin()
	a.login("admin", "admin123")

	form := url.Values{"name": {"x"}, "price": {"1"}}
	res := a.do(http.MethodPut, "/api/products/99", strings.NewReader(form.Encode()), echo.MIMEApplicationForm)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = a.do(http.MethodDelete, "/api/products/99", nil, "")
	assert.Equal(t, http.StatusNotFound, res.Code)

	body, ct := multipartBody(t, nil, png())
	res = a.do(http.MethodPut, "/api/products/99/image", body, ct)
	assert.Equal(t, http.StatusNotFound, res.Code)
	entries, err := os.ReadDir(a.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "upload for a missing product is discarded")

	body, ct = multipartBody(t, map[string]string{"price": "10"}, png())
	res = a.do(http.MethodPost, "/api/products", body, ct)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "name is required", res.json(t)["error"])
	entries, err = os.ReadDir(a.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected product leaves no file behind")

	res = a.do(http.MethodPost, "/api/products", strings.NewReader(`{"name":"Hat","price":50000}`), echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, res.Code, res.Body)
}

func TestCreateProduct_UploadErrors(t *testing.T) {
	a := newApp(t)
	a.seedAdmin()
	a.login("admin", "admin123")
	fields := map[string]string{"name": "Shirt", "price": "1"}

	big := append(append([]byte{}, pngMagic...), make([]byte, upload.MaxFileSize)...)
	body, ct := multipartBody(t, fields, &filePart{filename: "big.png", contentType: "image/png", body: big})
	res := a.do(http.MethodPost, "/api/products", body, ct)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, msgFileTooLarge, res.json(t)["error"])

	body, ct = multipartBody(t, fields, &filePart{filename: "notes.txt", contentType: "text/plain", body: []byte("hello")})
	res = a.do(http.MethodPost, "/api/products", body, ct)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, msgFileRejected, res.json(t)["error"])

	body, ct = multipartBody(t, fields, &filePart{filename: "fake.png", contentType: "image/png", body: []byte("not really a png")})
	res = a.do(http.MethodPost, "/api/products", body, ct)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, msgFileRejected, res.json(t)["error"])

	n, err := a.repo.CountProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCreateProduct_WithoutImage(t *testing.T) {
	a := newApp(t)
	a.seedAdmin()
	a.login("admin", "admin123")

	body, ct := multipartBody(t, map[string]string{"name": "Hat", "price": "50000"}, nil)
	res := a.do(http.MethodPost, "/api/products", body, ct)
	require.Equal(t, http.StatusOK, res.Code, res.Body)

	p := a.get(fmt.Sprintf("/api/products/%d", int(res.json(t)["productId"].(float64)))).json(t)
	assert.Nil(t, p["image"])
	assert.Equal(t, float64(0), p["stock"])
}

func TestDeleteUser(t *testing.T) {
	a := newApp(t)
	a.seedAdmin()
	a.register("bob", "pw")
	ctx := context.Background()
	admin, err := a.repo.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	bob, err := a.repo.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)

	a.login("admin", "admin123")

	res := a.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", admin.ID), nil, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Cannot delete admin user", res.json(t)["error"])

	res = a.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", bob.ID), nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "User deleted successfully", res.json(t)["message"])

	res = a.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", bob.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, res.Code)

	_, err = a.repo.GetUserByUsername(ctx, "admin")
	assert.NoError(t, err)
}

func TestCart(t *testing.T) {
	a := newApp(t)
	a.register("alice", "pw")
	a.login("alice", "pw")
	jsonAccept := []string{echo.HeaderAccept, echo.MIMEApplicationJSON}

	res := a.postForm("/cart/items", url.Values{"title": {"Shirt"}, "price": {"Rp 150.000"}})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	assert.Contains(t, res.Body, `data-open="true"`)
	assert.Contains(t, res.Body, "Shirt - Rp 150.000")

	a.postForm("/cart/items", url.Values{"title": {"Hat"}, "price": {"Rp 50.000"}})
	res = a.get("/cart", jsonAccept...)
	require.Equal(t, http.StatusOK, res.Code)
	var v struct {
		Items []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"items"`
		TotalText string `json:"totalText"`
		Open      bool   `json:"open"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Body), &v))
	assert.Equal(t, "Rp 200.000", v.TotalText)
	assert.True(t, v.Open)
	require.Len(t, v.Items, 2)

	res = a.do(http.MethodDelete, "/cart/items/"+v.Items[0].ID, nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body, `id="checkoutTotal">Rp 50.000<`)

	res = a.do(http.MethodDelete, "/cart/items/"+v.Items[0].ID, nil, "")
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = a.postForm("/cart/items", url.Values{"title": {"Mystery"}, "price": {"free"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body, `id="checkoutTotal">Rp 50.000<`, "bad price leaves the cart untouched")

	res = a.postForm("/cart/clear", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body, "You haven&#39;t added anything to your cart.")
	assert.Contains(t, res.Body, "display: none")

	res = a.get("/product")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body, `id="checkoutTotal">Rp 0<`)
}

func TestCart_RequiresLogin(t *testing.T) {
	a := newApp(t)
	res := a.get("/cart")
	assert.Equal(t, http.StatusFound, res.Code)
	assert.Equal(t, PathLogin, res.Location)
}

func TestSearchAndStats(t *testing.T) {
	a := newApp(t)
	a.seedAdmin()
	a.login("admin", "admin123")

	for _, name := range []string{"Red Shirt", "Blue Shirt", "Hat"} {
		body, ct := multipartBody(t, map[string]string{"name": name, "price": "1"}, nil)
		require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/products", body, ct).Code)
	}

	res := a.get("/api/products/search?q=shirt&size=1")
	require.Equal(t, http.StatusOK, res.Code)
	m := res.json(t)
	assert.Len(t, m["data"], 1)
	meta := m["meta"].(map[string]any)
	assert.Equal(t, float64(2), meta["total"])
	assert.Equal(t, true, meta["has_next"])

	stats := a.get("/api/stats").json(t)
	assert.Equal(t, float64(3), stats["totalProducts"])
	assert.Equal(t, float64(1), stats["totalUsers"])
	assert.Nil(t, stats["totalRevenue"])
}
