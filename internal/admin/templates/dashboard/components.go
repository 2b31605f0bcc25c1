package dashboard

import (
	"context"

	"github.com/a-h/templ"

	"finitefield.org/delivery-admin/internal/admin/templates/helpers"
	"finitefield.org/delivery-admin/internal/admin/templates/layouts"
)

// Index renders the dashboard page.
func Index(page PageData) templ.Component {
	return layouts.Base(page.Title, Body(page))
}

// Body renders the dashboard content without the layout.
func Body(page PageData) templ.Component {
	return helpers.Component(func(ctx context.Context, b *helpers.Builder) {
		b.Raw(`<div class="flex items-center justify-between"><h1 class="text-2xl font-semibold">`)
		b.Text(page.Title)
		b.Raw(`</h1><a class="text-sm text-slate-600 hover:text-slate-900"`)
		b.Attr("href", page.RefreshURL)
		b.Raw(`>最新の状態に更新</a></div>`)

		if page.Error != "" {
			b.Raw(`<p class="mt-4 rounded-md bg-rose-50 px-4 py-3 text-sm text-rose-700" role="alert">`)
			b.Text(page.Error)
			b.Raw(`</p>`)
		}

		if len(page.Alerts) > 0 {
			b.Raw(`<ul class="mt-6 space-y-3" data-dashboard-alerts>`)
			for _, alert := range page.Alerts {
				b.Raw(`<li class="rounded-md border border-slate-200 bg-white px-4 py-3"`)
				b.Attr("data-alert", alert.ID)
				b.Raw(`><span`)
				b.Attr("class", helpers.BadgeClass(alert.Tone))
				b.Raw(`>`)
				b.Text(alert.Title)
				b.Raw(`</span><p class="mt-2 text-sm text-slate-700">`)
				b.Text(alert.Message)
				b.Raw(`</p><a class="mt-2 inline-block text-sm font-medium text-slate-900 underline"`)
				b.Attr("href", alert.ActionURL)
				b.Raw(`>`)
				b.Text(alert.Action)
				b.Raw(`</a></li>`)
			}
			b.Raw(`</ul>`)
		}

		b.Raw(`<table class="mt-6 min-w-full divide-y divide-slate-200 bg-white text-sm" data-dashboard-categories>`)
		b.Raw(`<thead><tr><th scope="col" class="px-4 py-2 text-left">区分</th><th scope="col" class="px-4 py-2 text-right">ルール数</th><th scope="col" class="px-4 py-2 text-right">有効</th><th scope="col" class="px-4 py-2 text-left">上限なし</th><th scope="col" class="px-4 py-2 text-left">カバー状況</th><th scope="col" class="px-4 py-2 text-left">取得</th></tr></thead><tbody>`)
		for _, card := range page.Cards {
			b.Raw(`<tr`)
			b.Attr("data-category", card.Key)
			b.Raw(`><td class="px-4 py-2"><a class="font-medium underline"`)
			b.Attr("href", card.Href)
			b.Raw(`>`)
			b.Text(card.Title)
			b.Raw(`</a></td><td class="px-4 py-2 text-right">`)
			b.Text(card.RuleCount)
			b.Raw(`</td><td class="px-4 py-2 text-right">`)
			b.Text(card.ActiveCount)
			b.Raw(`</td><td class="px-4 py-2">`)
			if card.Unbounded {
				b.Text("あり")
			} else {
				b.Text("なし")
			}
			b.Raw(`</td><td class="px-4 py-2"><span data-coverage`)
			b.Attr("class", helpers.BadgeClass(card.CoverageTone))
			b.Raw(`>`)
			b.Text(card.Coverage)
			b.Raw(`</span></td><td class="px-4 py-2 text-slate-500">`)
			b.Text(card.UpdatedText)
			b.Raw(`</td></tr>`)
		}
		b.Raw(`</tbody></table>`)
	})
}
