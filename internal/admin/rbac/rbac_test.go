package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasCapability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		roles      []string
		capability Capability
		want       bool
	}{
		{name: "admin manages tiers", roles: []string{"admin"}, capability: CapTiersManage, want: true},
		{name: "admin denied undefined capability", roles: []string{"admin"}, capability: "made.up", want: false},
		{name: "ops manages tiers", roles: []string{"ops"}, capability: CapTiersManage, want: true},
		{name: "support views tiers", roles: []string{"support"}, capability: CapTiersView, want: true},
		{name: "support quotes", roles: []string{"support"}, capability: CapTiersQuote, want: true},
		{name: "support cannot manage", roles: []string{"support"}, capability: CapTiersManage, want: false},
		{name: "roles are case insensitive", roles: []string{" Finance "}, capability: CapTiersManage, want: true},
		{name: "roles combine", roles: []string{"support", "ops"}, capability: CapTiersManage, want: true},
		{name: "unknown role grants nothing", roles: []string{"courier"}, capability: CapTiersView, want: false},
		{name: "no roles", roles: nil, capability: CapDashboardOverview, want: false},
		{name: "empty capability is open", roles: []string{"support"}, capability: "", want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, HasCapability(tc.roles, tc.capability))
		})
	}
}

func TestCapabilities(t *testing.T) {
	t.Parallel()

	support := Capabilities([]string{"support"})
	require.True(t, support[CapTiersQuote])
	require.False(t, support[CapTiersManage])

	admin := Capabilities([]string{"admin"})
	require.Len(t, admin, 4)
}

func TestParseRoles(t *testing.T) {
	t.Parallel()

	require.Equal(t, []Role{RoleOps, RoleSupport}, ParseRoles([]string{" OPS", "", "support", "ops"}))
	require.Empty(t, ParseRoles(nil))
}
