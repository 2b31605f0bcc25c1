package partials

import (
	"context"

	"github.com/a-h/templ"

	"finitefield.org/delivery-admin/internal/admin/navigation"
	"finitefield.org/delivery-admin/internal/admin/templates/helpers"
)

// Sidebar renders the menu groups the current user may access.
func Sidebar(menu []navigation.MenuGroup) templ.Component {
	return helpers.Component(func(ctx context.Context, b *helpers.Builder) {
		b.Raw(`<nav class="flex flex-col gap-6" aria-label="メインメニュー">`)
		for _, group := range menu {
			if !hasVisibleItems(group, ctx) {
				continue
			}
			b.Raw(`<div`)
			b.Attr("data-menu-group", group.Key)
			b.Raw(`><p class="px-3 text-xs font-semibold uppercase tracking-wide text-slate-400">`)
			b.Text(group.Label)
			b.Raw(`</p><ul class="mt-2 space-y-1">`)
			for _, item := range visibleItems(group, ctx) {
				active := helpers.NavActive(ctx, item.Pattern, item.MatchPrefix)
				b.Raw(`<li><a`)
				b.Attr("href", item.Href)
				b.Attr("class", helpers.NavClass(active))
				if active {
					b.Attr("aria-current", "page")
				}
				b.Raw(`>`)
				b.Text(item.Label)
				b.Raw(`</a></li>`)
			}
			b.Raw(`</ul></div>`)
		}
		b.Raw(`</nav>`)
	})
}

func hasVisibleItems(group navigation.MenuGroup, ctx context.Context) bool {
	return len(visibleItems(group, ctx)) > 0
}

func visibleItems(group navigation.MenuGroup, ctx context.Context) []navigation.MenuItem {
	if !helpers.HasCapability(ctx, group.Capability) {
		return nil
	}
	items := make([]navigation.MenuItem, 0, len(group.Items))
	for _, item := range group.Items {
		if helpers.HasCapability(ctx, item.Capability) {
			items = append(items, item)
		}
	}
	return items
}
