// Package rbac maps staff roles onto the capabilities of the tier admin.
package rbac

import "strings"

// Role is a staff role carried in the identity token's role claims.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleOps     Role = "ops"
	RoleSupport Role = "support"
	RoleFinance Role = "finance"
)

// Capability names one guarded action of the admin.
type Capability string

const (
	CapDashboardOverview Capability = "dashboard.view"
	CapTiersView         Capability = "tiers.view"
	CapTiersManage       Capability = "tiers.manage"
	CapTiersQuote        Capability = "tiers.quote"
)

// grants lists what each role may do. Admin is handled separately and holds
// every capability defined here.
var grants = map[Role][]Capability{
	RoleOps:     {CapDashboardOverview, CapTiersView, CapTiersQuote, CapTiersManage},
	RoleFinance: {CapDashboardOverview, CapTiersView, CapTiersQuote, CapTiersManage},
	RoleSupport: {CapDashboardOverview, CapTiersView, CapTiersQuote},
}

// ParseRoles lower-cases and de-duplicates raw role claims, dropping blanks.
func ParseRoles(raw []string) []Role {
	out := make([]Role, 0, len(raw))
	seen := make(map[Role]bool, len(raw))
	for _, value := range raw {
		role := Role(strings.ToLower(strings.TrimSpace(value)))
		if role == "" || seen[role] {
			continue
		}
		seen[role] = true
		out = append(out, role)
	}
	return out
}

// HasCapability reports whether any of roles grants capability. An empty
// capability guards nothing.
func HasCapability(roles []string, capability Capability) bool {
	if capability == "" {
		return true
	}
	return Capabilities(roles)[capability]
}

// Capabilities returns the set of capabilities held by roles.
func Capabilities(roles []string) map[Capability]bool {
	caps := make(map[Capability]bool)
	for _, role := range ParseRoles(roles) {
		if role == RoleAdmin {
			for _, granted := range grants {
				for _, c := range granted {
					caps[c] = true
				}
			}
			continue
		}
		for _, c := range grants[role] {
			caps[c] = true
		}
	}
	return caps
}
