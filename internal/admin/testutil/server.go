package testutil

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"finitefield.org/delivery-admin/internal/admin/dashboard"
	"finitefield.org/delivery-admin/internal/admin/httpserver"
	"finitefield.org/delivery-admin/internal/admin/httpserver/middleware"
	appsession "finitefield.org/delivery-admin/internal/admin/session"
	"finitefield.org/delivery-admin/internal/tiers"
)

// FixedNow is the clock used by servers built with NewServer.
var FixedNow = time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithAuthenticator overrides the authenticator used by the admin server.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Authenticator = auth
	}
}

// WithBasePath sets a custom base path for the admin routes.
func WithBasePath(path string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.BasePath = path
	}
}

// WithSignInURL sets where unauthenticated browsers are redirected.
func WithSignInURL(url string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.SignInURL = url
	}
}

// WithStore wires the tier store the handlers operate on.
func WithStore(store *tiers.Store) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Store = store
	}
}

// WithDashboardService wires a custom dashboard service implementation.
func WithDashboardService(service dashboard.Service) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.DashboardService = service
	}
}

// NewSessionManager returns a cookie session manager with fixed keys.
func NewSessionManager(t testing.TB) *appsession.Manager {
	t.Helper()

	manager, err := appsession.NewManager(appsession.Config{
		CookieName: "delivery_admin_session",
		HashKey:    []byte("0123456789abcdef0123456789abcdef"),
		BlockKey:   []byte("fedcba9876543210fedcba9876543210"),
		CookiePath: "/",
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	return manager
}

// NewServer constructs an httptest server running the admin HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	cfg := httpserver.Config{
		Address:       ":0",
		BasePath:      "/admin",
		Environment:   "local",
		Authenticator: middleware.DefaultAuthenticator(),
		Sessions:      NewSessionManager(t),
		Store:         tiers.NewStore(tiers.NewStaticRemote(tiers.DefaultSeed())),
		Now:           func() time.Time { return FixedNow },
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	srv := httpserver.New(cfg)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// NewClient returns a client that keeps session cookies and does not follow redirects.
func NewClient(t testing.TB) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
