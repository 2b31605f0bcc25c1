// Package session keeps per-operator state in a signed cookie: the signed-in
// staff member, the CSRF token and which tier row each editor has open.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName  = "delivery_admin_session"
	defaultLifetime    = 12 * time.Hour
	defaultIdleTimeout = 30 * time.Minute

	// maxDraftValue caps each stored form value, in runes, to keep the cookie small.
	maxDraftValue = 200
)

var (
	// ErrExpired is returned by Load for a session past its idle or absolute limit.
	ErrExpired = errors.New("session expired")
	// ErrInvalidConfig is returned by NewManager for unusable keys.
	ErrInvalidConfig = errors.New("session: invalid config")
)

// User is the staff member bound to the session.
type User struct {
	UID   string   `json:"uid"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Data is the cookie payload.
type Data struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CSRFToken  string    `json:"csrfToken,omitempty"`
	User       *User     `json:"user,omitempty"`
	// Editing maps a tier category to the row id open in its editor.
	Editing map[string]string `json:"editing,omitempty"`
	// Drafts holds the rejected form values of an open editor, by category.
	Drafts map[string]map[string]string `json:"drafts,omitempty"`
}

// Session is the decoded state of one request.
type Session struct {
	data      Data
	dirty     bool
	destroyed bool
}

// Config controls the cookie and session limits. Cookies are always HttpOnly.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	IdleTimeout time.Duration
	Lifetime    time.Duration
	Now         func() time.Time
}

// Manager encodes sessions into signed, optionally encrypted, cookies.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
}

// NewManager fills in defaults and validates the keys.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	if n := len(cfg.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Lifetime.Seconds()))
	return &Manager{cfg: cfg, codec: codec}, nil
}

// Load decodes the request cookie. A missing or tampered cookie yields a
// fresh session; a valid but stale one yields ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.New(), nil
	}
	var data Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &data); err != nil || data.ID == "" {
		return m.New(), nil
	}

	now := m.cfg.Now().UTC()
	if now.After(data.ExpiresAt) || now.Sub(data.LastActive) > m.cfg.IdleTimeout {
		return nil, ErrExpired
	}
	return &Session{data: data}, nil
}

// Save writes the cookie, sliding the idle window. Destroyed sessions clear it.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	if sess.destroyed {
		m.Destroy(w)
		return nil
	}

	now := m.cfg.Now().UTC()
	sess.Touch(now)
	encoded, err := m.codec.Encode(m.cfg.CookieName, sess.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	maxAge := int(sess.data.ExpiresAt.Sub(now).Round(time.Second).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(w, m.cookie(encoded, maxAge, sess.data.ExpiresAt))
	sess.dirty = false
	return nil
}

// Destroy clears the cookie on w.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1, time.Unix(0, 0)))
}

// New starts a session valid for the configured lifetime.
func (m *Manager) New() *Session {
	now := m.cfg.Now().UTC()
	return &Session{
		data: Data{
			ID:         newToken(),
			CreatedAt:  now,
			LastActive: now,
			ExpiresAt:  now.Add(m.cfg.Lifetime),
		},
		dirty: true,
	}
}

func (m *Manager) cookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     m.cfg.CookiePath,
		Domain:   m.cfg.CookieDomain,
		MaxAge:   maxAge,
		Expires:  expires.UTC(),
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	}
}

func (s *Session) ID() string           { return s.data.ID }
func (s *Session) CreatedAt() time.Time { return s.data.CreatedAt }
func (s *Session) User() *User          { return s.data.User }
func (s *Session) CSRFToken() string    { return s.data.CSRFToken }
func (s *Session) Dirty() bool          { return s.dirty }
func (s *Session) Destroyed() bool      { return s.destroyed }

// EnsureCSRFToken returns the session's CSRF token, creating it on first use.
func (s *Session) EnsureCSRFToken() (string, error) {
	if s.data.CSRFToken == "" {
		s.data.CSRFToken = newToken()
		s.dirty = true
	}
	return s.data.CSRFToken, nil
}

// SetUser binds user to the session. A different user starts with every
// editor closed.
func (s *Session) SetUser(user *User) {
	current := s.data.User
	if sameUser(current, user) {
		return
	}
	if user == nil || current == nil || current.UID != user.UID {
		s.data.Editing = nil
		s.data.Drafts = nil
	}
	if user != nil {
		copied := *user
		copied.Roles = slices.Clone(user.Roles)
		user = &copied
	}
	s.data.User = user
	s.dirty = true
}

// EditingRow returns the row open in the editor of category, or "".
func (s *Session) EditingRow(category string) string {
	return s.data.Editing[category]
}

// SetEditingRow records rowID as open in the editor of category. A blank
// rowID closes the editor; switching rows drops the stored draft.
func (s *Session) SetEditingRow(category, rowID string) {
	rowID = strings.TrimSpace(rowID)
	if rowID == "" {
		s.ClearEditingRow(category)
		return
	}
	if s.data.Editing[category] == rowID {
		return
	}
	s.SetEditingDraft(category, nil)
	if s.data.Editing == nil {
		s.data.Editing = make(map[string]string)
	}
	s.data.Editing[category] = rowID
	s.dirty = true
}

// ClearEditingRow closes the editor of category and drops its draft.
func (s *Session) ClearEditingRow(category string) {
	s.SetEditingDraft(category, nil)
	if _, ok := s.data.Editing[category]; ok {
		delete(s.data.Editing, category)
		s.dirty = true
	}
}

// EditingDraft returns a copy of the rejected form values stored for category.
func (s *Session) EditingDraft(category string) map[string]string {
	return maps.Clone(s.data.Drafts[category])
}

// SetEditingDraft stores the rejected form values of category. Empty values
// remove the draft. Each value is clipped to maxDraftValue runes.
func (s *Session) SetEditingDraft(category string, values map[string]string) {
	if len(values) == 0 {
		if _, ok := s.data.Drafts[category]; ok {
			delete(s.data.Drafts, category)
			s.dirty = true
		}
		return
	}
	clipped := make(map[string]string, len(values))
	for key, value := range values {
		if runes := []rune(value); len(runes) > maxDraftValue {
			value = string(runes[:maxDraftValue])
		}
		clipped[key] = value
	}
	if maps.Equal(s.data.Drafts[category], clipped) {
		return
	}
	if s.data.Drafts == nil {
		s.data.Drafts = make(map[string]map[string]string)
	}
	s.data.Drafts[category] = clipped
	s.dirty = true
}

// Destroy marks the session for removal on Save.
func (s *Session) Destroy() {
	s.destroyed = true
	s.dirty = true
}

// Touch moves the idle window forward to now.
func (s *Session) Touch(now time.Time) {
	if now = now.UTC(); now.After(s.data.LastActive) {
		s.data.LastActive = now
		s.dirty = true
	}
}

func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UID == b.UID && a.Email == b.Email && slices.Equal(a.Roles, b.Roles)
}

func newToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("session: read random: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
