package partials

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"finitefield.org/delivery-admin/internal/admin/httpserver/middleware"
	"finitefield.org/delivery-admin/internal/admin/navigation"
	"finitefield.org/delivery-admin/internal/admin/rbac"
)

func TestHasVisibleItemsRespectRoles(t *testing.T) {
	t.Parallel()

	menu := navigation.BuildMenu("/admin")
	var pricing navigation.MenuGroup
	for _, group := range menu {
		if group.Key == "pricing" {
			pricing = group
		}
	}
	require.NotEmpty(t, pricing.Items, "pricing group must contain navigation items")

	support := middleware.ContextWithUser(context.Background(), &middleware.User{
		Roles: []string{string(rbac.RoleSupport)},
	})
	require.True(t, hasVisibleItems(pricing, support), "support role should see pricing tiers")

	stranger := middleware.ContextWithUser(context.Background(), &middleware.User{
		Roles: []string{"contractor"},
	})
	require.False(t, hasVisibleItems(pricing, stranger), "unknown roles must not see pricing")
}

func TestVisibleItemsFiltersByCapability(t *testing.T) {
	t.Parallel()

	group := navigation.MenuGroup{
		Key:        "pricing",
		Label:      "料金設定",
		Capability: rbac.CapTiersView,
		Items: []navigation.MenuItem{
			{
				Key:        "fee",
				Label:      "配送料",
				Capability: rbac.CapTiersView,
				Href:       "/admin/tiers/delivery-fee",
				Pattern:    "/admin/tiers/delivery-fee",
			},
			{
				Key:        "fee-edit",
				Label:      "配送料の編集",
				Capability: rbac.CapTiersManage,
				Href:       "/admin/tiers/delivery-fee/new",
				Pattern:    "/admin/tiers/delivery-fee/new",
			},
		},
	}

	support := middleware.ContextWithUser(context.Background(), &middleware.User{
		Roles: []string{string(rbac.RoleSupport)},
	})
	ops := middleware.ContextWithUser(context.Background(), &middleware.User{
		Roles: []string{string(rbac.RoleOps)},
	})

	items := visibleItems(group, support)
	require.Len(t, items, 1, "support role should only see allowed items")
	require.Equal(t, "fee", items[0].Key)
	require.Len(t, visibleItems(group, ops), 2)
	require.Empty(t, visibleItems(group, context.Background()), "anonymous context sees nothing")
}

func TestSidebarRenderingFiltersAndHighlights(t *testing.T) {
	t.Parallel()

	menu := navigation.BuildMenu("/admin")

	req := httptest.NewRequest(http.MethodGet, "/admin/tiers/delivery-fee", nil)
	var ctx context.Context
	handler := middleware.RequestInfoMiddleware("/admin")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	ctx = middleware.ContextWithUser(ctx, &middleware.User{
		Roles: []string{string(rbac.RoleSupport)},
	})

	var buf bytes.Buffer
	err := Sidebar(menu).Render(ctx, &buf)
	require.NoError(t, err)

	doc := parseHTML(t, buf.Bytes())

	feeLink := doc.Find(`a[href="/admin/tiers/delivery-fee"]`)
	require.Equal(t, 1, feeLink.Length(), "fee link should render")
	require.Equal(t, "page", feeLink.AttrOr("aria-current", ""), "active route highlights current page")
	require.Contains(t, feeLink.AttrOr("class", ""), "bg-slate-900", "active link should use highlighted class")

	commission := doc.Find(`a[href="/admin/tiers/delivery-commission"]`)
	require.Equal(t, 1, commission.Length())
	require.Empty(t, commission.AttrOr("aria-current", ""))
}

func parseHTML(t *testing.T, body []byte) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	require.NoError(t, err)
	return doc
}
