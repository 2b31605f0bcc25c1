package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/delivery-admin/internal/admin/dashboard"
	custommw "finitefield.org/delivery-admin/internal/admin/httpserver/middleware"
	"finitefield.org/delivery-admin/internal/admin/httpserver/ui"
	"finitefield.org/delivery-admin/internal/admin/rbac"
	"finitefield.org/delivery-admin/internal/platform/observability"
	"finitefield.org/delivery-admin/internal/tiers"
	"finitefield.org/delivery-admin/public"
)

const (
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 60 * time.Second
	defaultHandlerTimeout = 60 * time.Second
)

// Config holds runtime options for the admin HTTP server.
type Config struct {
	Address     string
	BasePath    string
	SignInURL   string
	Environment string

	Authenticator    custommw.Authenticator
	Sessions         custommw.SessionStore
	Store            *tiers.Store
	DashboardService dashboard.Service
	Logger           *zap.Logger
	Now              func() time.Time

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Sessions == nil {
		panic("httpserver: session store is required")
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.TraceMiddleware())
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(observability.RequestLoggerMiddleware(custommw.UserID))
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(defaultHandlerTimeout))

	assets, err := public.Handler("/public/static/")
	if err != nil {
		logger.Fatal("embed static", zap.Error(err))
	}
	router.Handle("/public/static/*", assets)

	basePath := normalizeBasePath(cfg.BasePath)
	authenticator := cfg.Authenticator
	if authenticator == nil {
		logger.Warn("no authenticator configured; accepting any bearer token")
		authenticator = custommw.DefaultAuthenticator()
	}

	handlers := ui.NewHandlers(ui.Dependencies{
		Store:            cfg.Store,
		DashboardService: cfg.DashboardService,
		Now:              cfg.Now,
	})

	mountAdminRoutes(router, basePath, routeOptions{
		Authenticator: authenticator,
		SignInURL:     strings.TrimSpace(cfg.SignInURL),
		Environment:   cfg.Environment,
		Sessions:      cfg.Sessions,
		Handlers:      handlers,
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  durationOr(cfg.ReadTimeout, defaultReadTimeout),
		WriteTimeout: durationOr(cfg.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:  durationOr(cfg.IdleTimeout, defaultIdleTimeout),
	}
}

type routeOptions struct {
	Authenticator custommw.Authenticator
	SignInURL     string
	Environment   string
	Sessions      custommw.SessionStore
	Handlers      *ui.Handlers
}

func mountAdminRoutes(router chi.Router, base string, opts routeOptions) {
	h := opts.Handlers

	// Mounting at base also serves the bare base path without a trailing slash.
	router.Route(base, func(r chi.Router) {
		r.Use(custommw.RequestInfoMiddleware(base))
		r.Use(custommw.Environment(opts.Environment))
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(opts.Sessions))
		r.Use(custommw.Auth(opts.Authenticator, opts.SignInURL))
		r.Use(custommw.CSRF())

		r.With(custommw.RequireCapability(rbac.CapDashboardOverview)).Get("/", h.Dashboard)

		r.Route("/tiers", func(r chi.Router) {
			r.With(custommw.RequireCapability(rbac.CapTiersView)).Get("/", h.TiersIndex)

			r.Route("/{category}", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(custommw.RequireCapability(rbac.CapTiersView))
					r.Get("/", h.TiersPage)
					r.Get("/table", h.TiersTable)
				})

				r.With(custommw.RequireCapability(rbac.CapTiersQuote)).Get("/quote", h.TiersQuote)

				r.Group(func(r chi.Router) {
					r.Use(custommw.RequireCapability(rbac.CapTiersManage))
					r.Get("/new", h.TiersNew)
					r.Get("/cancel", h.TiersCancel)
					r.Post("/", h.TiersCreate)
					r.Get("/{id}/edit", h.TiersEdit)
					r.Put("/{id}", h.TiersUpdate)
					r.Delete("/{id}", h.TiersDelete)
					r.Patch("/{id}/status", h.TiersToggle)
				})
			})
		})
	})
}

func normalizeBasePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/admin"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
