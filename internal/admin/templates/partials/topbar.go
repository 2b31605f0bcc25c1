package partials

import (
	"context"
	"strings"

	"github.com/a-h/templ"

	"finitefield.org/delivery-admin/internal/admin/httpserver/middleware"
	"finitefield.org/delivery-admin/internal/admin/templates/helpers"
)

// TopbarActions renders the environment badge and the signed-in user.
func TopbarActions() templ.Component {
	return helpers.Component(func(ctx context.Context, b *helpers.Builder) {
		env := middleware.EnvironmentFromContext(ctx)
		b.Raw(`<div class="flex items-center gap-4">`)
		b.Raw(`<div data-environment-badge`)
		b.Attr("class", helpers.BadgeClass(environmentTone(env)))
		b.Attr("title", env)
		b.Raw(`><span aria-hidden="true">`)
		b.Text(environmentShort(env))
		b.Raw(`</span><span class="sr-only">`)
		b.Text(env)
		b.Raw(`</span></div>`)

		if user, ok := middleware.UserFromContext(ctx); ok {
			name := user.Email
			if name == "" {
				name = user.UID
			}
			b.Raw(`<div data-user-menu class="flex min-w-0 flex-col text-right">`)
			b.Raw(`<span class="truncate text-sm font-medium text-slate-900">`)
			b.Text(name)
			b.Raw(`</span><span class="truncate text-xs text-slate-500">`)
			b.Text(strings.Join(user.Roles, ", "))
			b.Raw(`</span></div>`)
		}
		b.Raw(`</div>`)
	})
}

func environmentShort(label string) string {
	switch label {
	case "Production":
		return "PROD"
	case "Staging":
		return "STG"
	case "Development":
		return "DEV"
	case "Local":
		return "LOCAL"
	default:
		return strings.ToUpper(label)
	}
}

func environmentTone(label string) string {
	switch label {
	case "Production":
		return "danger"
	case "Staging":
		return "warning"
	default:
		return "default"
	}
}
