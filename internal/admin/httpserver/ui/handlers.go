package ui

import (
	"net/http"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/delivery-admin/internal/admin/dashboard"
	custommw "finitefield.org/delivery-admin/internal/admin/httpserver/middleware"
	dashboardtpl "finitefield.org/delivery-admin/internal/admin/templates/dashboard"
	"finitefield.org/delivery-admin/internal/platform/observability"
	"finitefield.org/delivery-admin/internal/tiers"
)

// Dependencies collects external services required by the UI handlers.
type Dependencies struct {
	Store            *tiers.Store
	DashboardService dashboard.Service
	Now              func() time.Time
}

// Handlers exposes HTTP handlers for admin UI pages and fragments.
type Handlers struct {
	store     *tiers.Store
	dashboard dashboard.Service
	now       func() time.Time
}

// NewHandlers wires the UI handler set. A missing store falls back to the
// in-memory sample schedule.
func NewHandlers(deps Dependencies) *Handlers {
	store := deps.Store
	if store == nil {
		store = tiers.NewStore(tiers.NewStaticRemote(tiers.DefaultSeed()))
	}
	service := deps.DashboardService
	if service == nil {
		service = dashboard.NewStoreService(store)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Handlers{
		store:     store,
		dashboard: service,
		now:       now,
	}
}

// Dashboard renders the category overview.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := custommw.UserFromContext(ctx)
	if !ok || user == nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	overview, err := h.dashboard.Overview(ctx, user.Token)
	errMsg := ""
	if err != nil {
		observability.FromContext(ctx).Error("dashboard: overview failed", zap.Error(err))
		errMsg = "ダッシュボードの取得に失敗しました。時間を置いて再度お試しください。"
		overview = dashboard.Overview{}
	}

	page := dashboardtpl.BuildPageData(custommw.BasePathFromContext(ctx), overview, h.now())
	page.Error = errMsg
	templ.Handler(dashboardtpl.Index(page)).ServeHTTP(w, r)
}
