package session

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	Name = "storefront_session"

	keyUser   = "user"
	keyAlert  = "alert"
	keyCartID = "cart_id"
)

const (
	AlertSuccess = "success"
	AlertError   = "error"
	AlertInfo    = "info"
)

// User is the projection of models.User kept in the session.
type User struct {
	ID       uint
	Username string
	Role     string
	Address  string
}

func (u User) IsAdmin() bool { return u.Role == models.RoleAdmin }

func FromModel(u *models.User) User {
	return User{ID: u.ID, Username: u.Username, Role: u.Role, Address: u.Address}
}

// Alert is a one-shot message shown on the next rendered page.
type Alert struct {
	Message string
	Type    string
}

func init() {
	gob.Register(User{})
	gob.Register(Alert{})
}

type Manager struct {
	Store   sessions.Store
	Options sessions.Options
}

func defaultOptions(maxAge int, secure bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func NewCookieStore(secret []byte, maxAge int, secure bool) *Manager {
	opts := defaultOptions(maxAge, secure)
	store := sessions.NewCookieStore(secret)
	store.Options = &opts
	return &Manager{Store: store, Options: opts}
}

// NewFilesystemStore keeps session values on disk; only the id travels in the cookie.
func NewFilesystemStore(dir string, secret []byte, maxAge int, secure bool) *Manager {
	opts := defaultOptions(maxAge, secure)
	store := sessions.NewFilesystemStore(dir, secret)
	store.MaxLength(64 * 1024)
	store.Options = &opts
	return &Manager{Store: store, Options: opts}
}

func (m *Manager) Middleware() echo.MiddlewareFunc {
	return echosession.Middleware(m.Store)
}

// get returns the request session. A cookie that fails to decode (rotated
// secret, tampering) yields a fresh session rather than an error.
func (m *Manager) get(c echo.Context) (*sessions.Session, error) {
	sess, err := echosession.Get(Name, c)
	if err != nil {
		if sess == nil {
			return nil, err
		}
		logging.FromContext(c.Request().Context()).Warn("session_decode_error", "error", err)
	}
	return sess, nil
}

func (m *Manager) CurrentUser(c echo.Context) (User, bool) {
	sess, err := m.get(c)
	if err != nil {
		return User{}, false
	}
	u, ok := sess.Values[keyUser].(User)
	return u, ok
}

func (m *Manager) SetAlert(c echo.Context, a Alert) error {
	sess, err := m.get(c)
	if err != nil {
		return err
	}
	sess.Values[keyAlert] = a
	return sess.Save(c.Request(), c.Response())
}

// TakeAlert returns the pending alert and clears it, so each alert is read once.
func (m *Manager) TakeAlert(c echo.Context) (Alert, bool) {
	sess, err := m.get(c)
	if err != nil {
		return Alert{}, false
	}
	a, ok := sess.Values[keyAlert].(Alert)
	if !ok {
		return Alert{}, false
	}
	delete(sess.Values, keyAlert)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		logging.FromContext(c.Request().Context()).Error("session_save_error", "error", err)
	}
	return a, true
}

// CartID returns the id of this browsing session's cart, minting one on first use.
func (m *Manager) CartID(c echo.Context, newID func() string) (string, error) {
	sess, err := m.get(c)
	if err != nil {
		return "", err
	}
	if id, ok := sess.Values[keyCartID].(string); ok && id != "" {
		return id, nil
	}
	id := newID()
	sess.Values[keyCartID] = id
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return "", err
	}
	return id, nil
}

// Restart destroys the current session and starts a new one that carries only
// the given alert. It returns the cart id of the destroyed session, if any.
func (m *Manager) Restart(c echo.Context, a *Alert) (string, error) {
	return m.renew(c, nil, a)
}

// SignIn replaces the pre-login session with a new one holding u, so an id
// handed out before login never becomes authenticated. It returns the cart id
// of the replaced session, if any.
func (m *Manager) SignIn(c echo.Context, u User, a *Alert) (string, error) {
	return m.renew(c, &u, a)
}

func (m *Manager) renew(c echo.Context, u *User, a *Alert) (string, error) {
	old, err := m.get(c)
	if err != nil {
		return "", err
	}
	cartID, _ := old.Values[keyCartID].(string)

	// a session that was never stored has nothing to destroy
	if !old.IsNew {
		old.Values = map[interface{}]interface{}{}
		old.Options.MaxAge = -1
		if err := old.Save(c.Request(), c.Response()); err != nil {
			return cartID, err
		}
	}

	fresh := sessions.NewSession(m.Store, Name)
	opts := m.Options
	fresh.Options = &opts
	if u != nil {
		fresh.Values[keyUser] = *u
	}
	if a != nil {
		fresh.Values[keyAlert] = *a
	}
	return cartID, fresh.Save(c.Request(), c.Response())
}
