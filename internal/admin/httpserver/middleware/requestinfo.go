package middleware

import (
	"context"
	"net/http"
	"strings"
)

type requestInfoKey struct{}

// RequestInfo is what templates need to know about the request: the path
// for navigation highlighting and where the admin is mounted for links.
type RequestInfo struct {
	Path     string
	BasePath string
}

// RequestInfoMiddleware records RequestInfo for every request under basePath.
func RequestInfoMiddleware(basePath string) func(http.Handler) http.Handler {
	base := NormaliseBase(basePath)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := RequestInfo{Path: r.URL.Path, BasePath: base}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))
		})
	}
}

// RequestInfoFromContext returns the RequestInfo recorded for the request.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

// BasePathFromContext is the admin mount point, "/" outside the admin routes.
func BasePathFromContext(ctx context.Context) string {
	if info, ok := RequestInfoFromContext(ctx); ok {
		return info.BasePath
	}
	return "/"
}

// NormaliseBase returns base with one leading slash and no trailing slash.
func NormaliseBase(base string) string {
	return "/" + strings.Trim(strings.TrimSpace(base), "/")
}
