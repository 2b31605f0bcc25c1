package middleware

import (
	"context"
	"net/http"
	"strings"
)

type environmentContextKey struct{}

const defaultEnvironmentLabel = "Local"

var environmentLabels = map[string]string{
	"local":      "Local",
	"dev":        "Development",
	"staging":    "Staging",
	"stg":        "Staging",
	"prod":       "Production",
	"production": "Production",
}

// Environment stores the display label of the deployment environment so the
// layout can colour its badge.
func Environment(value string) func(http.Handler) http.Handler {
	label := environmentLabel(value)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), environmentContextKey{}, label)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EnvironmentFromContext returns the label stored by Environment.
func EnvironmentFromContext(ctx context.Context) string {
	if value, ok := ctx.Value(environmentContextKey{}).(string); ok && value != "" {
		return value
	}
	return defaultEnvironmentLabel
}

func environmentLabel(value string) string {
	key := strings.ToLower(strings.TrimSpace(value))
	if key == "" {
		return defaultEnvironmentLabel
	}
	if label, ok := environmentLabels[key]; ok {
		return label
	}
	return strings.TrimSpace(value)
}
