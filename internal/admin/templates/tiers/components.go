package tiers

import (
	"context"

	"github.com/a-h/templ"

	"finitefield.org/delivery-admin/internal/admin/templates/helpers"
	"finitefield.org/delivery-admin/internal/admin/templates/layouts"
	admintiers "finitefield.org/delivery-admin/internal/tiers"
)

const (
	tableTarget = "#" + TableID
	quoteTarget = "#tier-quote-result"
	columnCount = "7"
)

// Index renders a category screen inside the admin layout.
func Index(page PageData) templ.Component {
	return layouts.Base(page.Title, Body(page))
}

// Body renders the category screen content.
func Body(page PageData) templ.Component {
	return helpers.Component(func(ctx context.Context, b *helpers.Builder) {
		b.Raw(`<div class="space-y-6"><nav class="flex gap-2" aria-label="料金区分">`)
		for _, tab := range page.Tabs {
			b.Raw(`<a`)
			b.Attr("href", tab.Href)
			b.Attr("class", helpers.NavClass(tab.Active))
			if tab.Active {
				b.Attr("aria-current", "page")
			}
			b.Raw(`>`)
			b.Text(tab.Label)
			b.Raw(`</a>`)
		}
		b.Raw(`</nav><header><h1 class="text-2xl font-semibold">`)
		b.Text(page.Heading)
		b.Raw(`</h1><p class="mt-1 text-sm text-slate-600">`)
		b.Text(page.InputLabel + "（" + page.InputUnit + "）が [下限, 上限) に入るルールで「基本料金 + 単価 × " + page.InputLabel + "」を計算します。")
		if page.RequireOne {
			b.Text(" 有効なルールは常に1件以上必要です。")
		}
		b.Raw(`</p></header>`)
		b.Render(ctx, Table(page.Table))
		b.Render(ctx, QuotePanel(page.Quote))
		b.Raw(`</div>`)
	})
}

// Table renders the rule table fragment swapped by every row action.
func Table(table TableData) templ.Component {
	return helpers.Component(func(ctx context.Context, b *helpers.Builder) {
		b.Raw(`<section class="rounded-lg border border-slate-200 bg-white"`)
		b.Attr("id", TableID)
		b.Attr("data-category", table.Category)
		b.Raw(`><div class="flex items-center justify-between border-b border-slate-200 px-4 py-3"><p class="text-xs text-slate-500">最終取得: <span data-updated>`)
		b.Text(table.UpdatedText)
		b.Raw(`</span></p><div class="flex gap-2">`)
		actionButton(b, buttonSpec{
			method: "get", url: table.ReloadURL, label: "再読み込み", data: "data-reload",
			class: "rounded-md border border-slate-300 px-3 py-1 text-sm",
		})
		if table.CanManage && table.Create == nil {
			actionButton(b, buttonSpec{
				method: "get", url: table.NewURL, label: "ルールを追加", data: "data-new-row",
				confirm: table.NewConfirm,
				class:   "rounded-md bg-slate-900 px-3 py-1 text-sm font-medium text-white",
			})
		}
		b.Raw(`</div></div>`)

		if table.Error != "" {
			b.Raw(`<p class="mx-4 mt-3 rounded-md bg-rose-50 px-3 py-2 text-sm text-rose-700" role="alert" data-table-error>`)
			b.Text(table.Error)
			b.Raw(`</p>`)
		}

		b.Raw(`<table class="min-w-full divide-y divide-slate-200 text-sm"><thead class="bg-slate-50"><tr>`)
		for _, heading := range []string{"ラベル", "下限", "上限", "基本料金", "単価", "状態", "操作"} {
			b.Raw(`<th scope="col" class="px-3 py-2 text-left font-medium text-slate-600">`)
			b.Text(heading)
			b.Raw(`</th>`)
		}
		b.Raw(`</tr></thead><tbody class="divide-y divide-slate-100">`)
		for _, row := range table.Rows {
			if row.Form != nil {
				editRow(b, row.Form)
				continue
			}
			viewRow(b, row)
		}
		if table.Create != nil {
			editRow(b, table.Create)
		}
		if len(table.Rows) == 0 && table.Create == nil {
			b.Raw(`<tr data-empty><td class="px-3 py-6 text-center text-slate-500"`)
			b.Attr("colspan", columnCount)
			b.Raw(`>ルールがありません。</td></tr>`)
		}
		b.Raw(`</tbody></table>`)

		if len(table.Gaps) > 0 {
			b.Raw(`<div class="border-t border-slate-200 px-4 py-3 text-sm text-amber-700" data-gaps><p>料金が計算されない区間があります:</p><ul class="mt-1 list-disc pl-5">`)
			for _, gap := range table.Gaps {
				b.Raw(`<li>`)
				b.Text(gap)
				b.Raw(`</li>`)
			}
			b.Raw(`</ul></div>`)
		}
		b.Raw(`</section>`)
	})
}

func viewRow(b *helpers.Builder, row RowView) {
	b.Raw(`<tr`)
	b.Attr("id", "tier-row-"+row.ID)
	b.Attr("data-row-id", row.ID)
	if row.Active {
		b.Attr("data-active", "true")
		b.Raw(`>`)
	} else {
		b.Attr("data-active", "false")
		b.Raw(` class="text-slate-400">`)
	}
	for _, cell := range []string{row.Label, row.MinText, row.MaxText, row.BaseText, row.PerUnitText} {
		b.Raw(`<td class="px-3 py-2">`)
		b.Text(cell)
		b.Raw(`</td>`)
	}
	b.Raw(`<td class="px-3 py-2">`)
	if row.Active {
		b.Raw(`<span class="`, helpers.BadgeClass("success"), `">有効</span>`)
	} else {
		b.Raw(`<span class="`, helpers.BadgeClass("default"), `">無効</span>`)
	}
	b.Raw(`</td><td class="px-3 py-2"><div class="flex gap-2">`)
	if row.EditURL != "" {
		actionButton(b, buttonSpec{method: "get", url: row.EditURL, label: "編集", data: "data-edit", confirm: row.EditConfirm})
	}
	if row.ToggleURL != "" {
		label := "無効にする"
		if !row.Active {
			label = "有効にする"
		}
		actionButton(b, buttonSpec{method: "patch", url: row.ToggleURL, label: label, data: "data-toggle", confirm: row.ToggleConfirm})
	}
	if row.DeleteURL != "" {
		actionButton(b, buttonSpec{
			method: "delete", url: row.DeleteURL, label: "削除", data: "data-delete", confirm: row.DeleteConfirm,
			class: "text-sm text-rose-600 hover:underline",
		})
	}
	b.Raw(`</div></td></tr>`)
}

func editRow(b *helpers.Builder, form *FormView) {
	b.Raw(`<tr class="bg-amber-50" data-editing`)
	b.Attr("id", "tier-row-"+form.RowID)
	b.Attr("data-row-id", form.RowID)
	b.Raw(`>`)
	inputCell(b, form, admintiers.FieldLabel, "text", form.Label, "ラベル")
	inputCell(b, form, admintiers.FieldMin, "text", form.Min, "下限")

	b.Raw(`<td class="px-3 py-2 align-top"><input type="text" inputmode="decimal" name="max" class="w-24 rounded border border-slate-300 px-2 py-1" aria-label="上限"`)
	b.Attr("value", form.Max)
	b.Raw(`><label class="mt-1 flex items-center gap-1 text-xs"><input type="checkbox" name="unbounded" value="on"`)
	b.Flag("checked", form.Unbounded)
	b.Raw(`>上限なし</label>`)
	fieldErrors(b, form.FieldErrors(admintiers.FieldMax))
	b.Raw(`</td>`)

	inputCell(b, form, admintiers.FieldBase, "text", form.Base, "基本料金")
	inputCell(b, form, admintiers.FieldPerUnit, "text", form.PerUnit, "単価")
	b.Raw(`<td class="px-3 py-2 align-top text-xs text-slate-500">編集中</td><td class="px-3 py-2 align-top"><div class="flex gap-2">`)

	b.Raw(`<button type="button" data-save class="rounded-md bg-slate-900 px-3 py-1 text-sm font-medium text-white"`)
	b.Attr("hx-"+form.Method, form.ActionURL)
	b.Attr("hx-include", "closest tr")
	b.Attr("hx-target", tableTarget)
	b.Attr("hx-swap", "outerHTML")
	b.Attr("hx-disabled-elt", "this")
	b.Raw(`>保存</button>`)
	actionButton(b, buttonSpec{method: "get", url: form.CancelURL, label: "キャンセル", data: "data-cancel"})
	b.Raw(`</div></td></tr>`)

	if rangeErrs := form.FieldErrors(admintiers.FieldRange); len(rangeErrs) > 0 {
		b.Raw(`<tr data-row-errors><td class="px-3 pb-2"`)
		b.Attr("colspan", columnCount)
		b.Raw(`>`)
		fieldErrors(b, rangeErrs)
		b.Raw(`</td></tr>`)
	}
}

func inputCell(b *helpers.Builder, form *FormView, field, kind, value, label string) {
	errs := form.FieldErrors(field)
	b.Raw(`<td class="px-3 py-2 align-top"><input class="w-24 rounded border px-2 py-1"`)
	b.Attr("type", kind)
	b.Attr("name", field)
	b.Attr("value", value)
	b.Attr("aria-label", label)
	if field != admintiers.FieldLabel {
		b.Attr("inputmode", "decimal")
	}
	if len(errs) > 0 {
		b.Attr("aria-invalid", "true")
	}
	b.Raw(`>`)
	fieldErrors(b, errs)
	b.Raw(`</td>`)
}

func fieldErrors(b *helpers.Builder, messages []string) {
	for _, msg := range messages {
		b.Raw(`<p class="mt-1 text-xs text-rose-600" data-field-error>`)
		b.Text(msg)
		b.Raw(`</p>`)
	}
}

type buttonSpec struct {
	method  string
	url     string
	label   string
	data    string
	confirm string
	class   string
}

// actionButton renders an htmx button that replaces the table and disables
// itself while the request is in flight.
func actionButton(b *helpers.Builder, spec buttonSpec) {
	class := spec.class
	if class == "" {
		class = "text-sm text-slate-700 hover:underline"
	}
	b.Raw(`<button type="button"`)
	if spec.data != "" {
		b.Raw(" ", spec.data)
	}
	b.Attr("class", class)
	b.Attr("hx-"+spec.method, spec.url)
	b.Attr("hx-target", tableTarget)
	b.Attr("hx-swap", "outerHTML")
	b.Attr("hx-disabled-elt", "this")
	b.AttrIf("hx-confirm", spec.confirm)
	b.Raw(`>`)
	b.Text(spec.label)
	b.Raw(`</button>`)
}

// QuotePanel renders the fee preview form.
func QuotePanel(form QuoteForm) templ.Component {
	return helpers.Component(func(ctx context.Context, b *helpers.Builder) {
		b.Raw(`<section class="rounded-lg border border-slate-200 bg-white px-4 py-4" data-quote-panel><h2 class="text-base font-semibold">料金プレビュー</h2>`)
		b.Raw(`<form class="mt-3 flex items-end gap-2"`)
		b.Attr("hx-get", form.URL)
		b.Attr("hx-target", quoteTarget)
		b.Attr("hx-swap", "innerHTML")
		b.Attr("hx-disabled-elt", "find button")
		b.Raw(`><label class="text-sm">`)
		b.Text(form.InputLabel + "（" + form.InputUnit + "）")
		b.Raw(`<input type="text" inputmode="decimal" name="input" class="mt-1 block w-32 rounded border border-slate-300 px-2 py-1" required></label>`)
		b.Raw(`<button type="submit" class="rounded-md border border-slate-300 px-3 py-1 text-sm">計算</button></form>`)
		b.Raw(`<div id="tier-quote-result" class="mt-3" aria-live="polite"></div></section>`)
	})
}

// QuoteResult renders the preview outcome swapped into the panel.
func QuoteResult(view QuoteView) templ.Component {
	return helpers.Component(func(ctx context.Context, b *helpers.Builder) {
		if view.Error != "" {
			b.Raw(`<p class="text-sm text-rose-600" data-quote-error>`)
			b.Text(view.Error)
			b.Raw(`</p>`)
			return
		}
		b.Raw(`<dl class="grid grid-cols-2 gap-1 text-sm" data-quote><dt class="text-slate-500">適用ルール</dt><dd data-quote-label>`)
		b.Text(view.Label)
		b.Raw(`</dd><dt class="text-slate-500">計算式</dt><dd data-quote-formula>`)
		b.Text(view.Formula)
		b.Raw(`</dd><dt class="text-slate-500">料金</dt><dd class="font-semibold" data-quote-amount>`)
		b.Text(view.Amount)
		b.Raw(`</dd></dl>`)
	})
}
