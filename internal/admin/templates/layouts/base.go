// Package layouts holds the page chrome shared by every admin screen.
package layouts

import (
	"context"
	"encoding/json"

	"github.com/a-h/templ"

	"finitefield.org/delivery-admin/internal/admin/httpserver/middleware"
	"finitefield.org/delivery-admin/internal/admin/navigation"
	"finitefield.org/delivery-admin/internal/admin/templates/helpers"
	"finitefield.org/delivery-admin/internal/admin/templates/partials"
)

const (
	appName   = "Delivery Admin"
	htmxSrc   = "https://unpkg.com/htmx.org@1.9.12"
	staticURL = "/public/static/"
)

// Base wraps body in the admin chrome: sidebar, topbar and toast region.
// Every htmx request sends the session CSRF token as a header.
func Base(title string, body templ.Component) templ.Component {
	return helpers.Component(func(ctx context.Context, b *helpers.Builder) {
		basePath := helpers.BasePath(ctx)
		csrf := middleware.CSRFTokenFromContext(ctx)

		b.Raw(`<!DOCTYPE html><html lang="ja"><head><meta charset="utf-8">`)
		b.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.Raw(`<meta name="csrf-token"`)
		b.Attr("content", csrf)
		b.Raw(`><title>`)
		b.Text(pageTitle(title))
		b.Raw(`</title><link rel="stylesheet"`)
		b.Attr("href", staticURL+"admin.css")
		b.Raw(`><script defer`)
		b.Attr("src", htmxSrc)
		b.Raw(`></script><script defer`)
		b.Attr("src", staticURL+"admin.js")
		b.Raw(`></script></head>`)

		b.Raw(`<body class="min-h-screen bg-slate-50 text-slate-900"`)
		b.Attr("hx-headers", csrfHeaders(csrf))
		b.Raw(`><div class="flex min-h-screen">`)
		b.Raw(`<aside class="w-60 shrink-0 border-r border-slate-200 bg-white px-3 py-6"><a class="mb-6 block px-3 text-lg font-bold"`)
		b.Attr("href", helpers.JoinPath(basePath, "/"))
		b.Raw(`>`)
		b.Text(appName)
		b.Raw(`</a>`)
		b.Render(ctx, partials.Sidebar(navigation.BuildMenu(basePath)))
		b.Raw(`</aside><div class="flex min-w-0 flex-1 flex-col">`)
		b.Raw(`<header class="flex items-center justify-end border-b border-slate-200 bg-white px-6 py-3">`)
		b.Render(ctx, partials.TopbarActions())
		b.Raw(`</header><main id="main" class="flex-1 px-6 py-6">`)
		b.Render(ctx, body)
		b.Raw(`</main></div></div>`)
		b.Raw(`<div id="toast-region" class="fixed bottom-4 right-4 flex flex-col gap-2" role="status" aria-live="polite"></div>`)
		b.Raw(`</body></html>`)
	})
}

func pageTitle(title string) string {
	if title == "" {
		return appName
	}
	return title + " | " + appName
}

func csrfHeaders(token string) string {
	raw, err := json.Marshal(map[string]string{middleware.CSRFHeader: token})
	if err != nil {
		return "{}"
	}
	return string(raw)
}
