package partials

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/delivery-admin/internal/admin/httpserver/middleware"
)

func TestTopbarActions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		env       string
		user      *middleware.User
		wantBadge string
		wantTitle string
		wantName  string
		wantRoles string
	}{
		{
			name:      "staging operator",
			env:       "stg",
			user:      &middleware.User{UID: "ops-1", Email: "ops@example.com", Roles: []string{"ops", "finance"}},
			wantBadge: "STG",
			wantTitle: "Staging",
			wantName:  "ops@example.com",
			wantRoles: "ops, finance",
		},
		{
			name:      "uid when email is missing",
			user:      &middleware.User{UID: "support-7", Roles: []string{"support"}},
			wantBadge: "LOCAL",
			wantTitle: "Local",
			wantName:  "support-7",
			wantRoles: "support",
		},
		{
			name:      "unknown environment kept verbatim",
			env:       "qa-east",
			wantBadge: "QA-EAST",
			wantTitle: "qa-east",
		},
		{
			name:      "production without user",
			env:       "production",
			wantBadge: "PROD",
			wantTitle: "Production",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := environmentContext(t, tc.env)
			if tc.user != nil {
				ctx = middleware.ContextWithUser(ctx, tc.user)
			}
			var buf bytes.Buffer
			require.NoError(t, TopbarActions().Render(ctx, &buf))
			doc := parseHTML(t, buf.Bytes())

			badge := doc.Find("[data-environment-badge]")
			require.Equal(t, 1, badge.Length())
			require.Equal(t, tc.wantTitle, badge.AttrOr("title", ""))
			require.Equal(t, tc.wantBadge, strings.TrimSpace(badge.Find("span[aria-hidden='true']").Text()))

			menu := doc.Find("[data-user-menu]")
			if tc.user == nil {
				require.Zero(t, menu.Length())
				return
			}
			spans := menu.Find("span")
			require.Equal(t, 2, spans.Length())
			require.Equal(t, tc.wantName, strings.TrimSpace(spans.Eq(0).Text()))
			require.Equal(t, tc.wantRoles, strings.TrimSpace(spans.Eq(1).Text()))
		})
	}
}

func environmentContext(t *testing.T, env string) context.Context {
	t.Helper()

	var ctx context.Context
	handler := middleware.Environment(env)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/tiers/delivery-fee", nil))
	require.NotNil(t, ctx)
	return ctx
}
