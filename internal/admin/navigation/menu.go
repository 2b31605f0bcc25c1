// Package navigation describes the sidebar menu of the admin console.
package navigation

import (
	"strings"

	"finitefield.org/delivery-admin/internal/admin/rbac"
	"finitefield.org/delivery-admin/internal/tiers"
)

// MenuGroup is a titled block of sidebar links.
type MenuGroup struct {
	Key        string
	Label      string
	Capability rbac.Capability
	Items      []MenuItem
}

// MenuItem is one sidebar link. Pattern is matched against the request path,
// by prefix when MatchPrefix is set.
type MenuItem struct {
	Key         string
	Label       string
	Capability  rbac.Capability
	Href        string
	Pattern     string
	MatchPrefix bool
}

// BuildMenu returns the sidebar for an admin mounted at basePath. Pricing
// entries follow the category registry.
func BuildMenu(basePath string) []MenuGroup {
	base := strings.TrimRight(strings.TrimSpace(basePath), "/")

	overview := MenuGroup{
		Key:        "overview",
		Label:      "概要",
		Capability: rbac.CapDashboardOverview,
		Items: []MenuItem{
			{
				Key:        "dashboard",
				Label:      "ダッシュボード",
				Capability: rbac.CapDashboardOverview,
				Href:       base + "/",
				Pattern:    base + "/",
			},
		},
	}

	pricing := MenuGroup{
		Key:        "pricing",
		Label:      "料金設定",
		Capability: rbac.CapTiersView,
	}
	for _, policy := range tiers.Policies() {
		path := base + "/tiers/" + string(policy.Category)
		pricing.Items = append(pricing.Items, MenuItem{
			Key:         string(policy.Category),
			Label:       policy.Title,
			Capability:  rbac.CapTiersView,
			Href:        path,
			Pattern:     path,
			MatchPrefix: true,
		})
	}

	return []MenuGroup{overview, pricing}
}
