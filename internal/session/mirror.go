package session

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Codec signs and verifies the cookie value. auth.TokenService implements it.
type Codec interface {
	Generate(userID, email string) (string, error)
	Validate(token string) (userID, email string, err error)
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// DefaultCookieName is used when CookieConfig.Name is empty.
const DefaultCookieName = "session"

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// CookieMirror mirrors a session into a signed HttpOnly cookie. It is bound
// to one request/response pair.
type CookieMirror struct {
	w     http.ResponseWriter
	r     *http.Request
	codec Codec
	cfg   CookieConfig

	written       bool
	userID, email string
}

// NewCookieMirror binds a mirror to the current request.
func NewCookieMirror(w http.ResponseWriter, r *http.Request, codec Codec, cfg CookieConfig) *CookieMirror {
	return &CookieMirror{w: w, r: r, codec: codec, cfg: cfg}
}

// Get returns the identity in the request cookie, or the last Put within
// this request. Unsigned, tampered and expired cookies read as empty.
func (m *CookieMirror) Get() (string, string) {
	if m.written {
		return m.userID, m.email
	}

	c, err := m.r.Cookie(m.cfg.name())
	if err != nil || c.Value == "" {
		return "", ""
	}

	userID, email, err := m.codec.Validate(c.Value)
	if err != nil {
		return "", ""
	}
	return userID, email
}

// Put writes the identity into a Set-Cookie header. An empty userID expires
// the cookie.
func (m *CookieMirror) Put(userID, email string) error {
	cookie := &http.Cookie{
		Name:     m.cfg.name(),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	if userID == "" {
		cookie.MaxAge = -1
	} else {
		token, err := m.codec.Generate(userID, email)
		if err != nil {
			return err
		}
		cookie.Value = token
		cookie.MaxAge = int(m.cfg.MaxAge.Seconds())
	}

	http.SetCookie(m.w, cookie)
	m.written = true
	m.userID, m.email = userID, email
	return nil
}

// MemoryMirror keeps the mirrored fields in memory. Sharing one instance
// between two Load calls simulates a page reload.
type MemoryMirror struct {
	mu     sync.Mutex
	userID string
	email  string
}

func (m *MemoryMirror) Get() (string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID, m.email
}

func (m *MemoryMirror) Put(userID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID, m.email = userID, email
	return nil
}

// selectionCookie carries the id of the résumé the client last uploaded or
// picked. It is not signed: every use re-checks ownership.
const selectionCookie = "resume"

// SelectedResume returns the résumé id stored by SelectResume.
func SelectedResume(r *http.Request) (int64, bool) {
	c, err := r.Cookie(selectionCookie)
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(c.Value, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// SelectResume remembers id as the client's current résumé.
func SelectResume(w http.ResponseWriter, id int64, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     selectionCookie,
		Value:    strconv.FormatInt(id, 10),
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cfg.MaxAge.Seconds()),
	})
}

// ClearSelection forgets the current résumé.
func ClearSelection(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     selectionCookie,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
