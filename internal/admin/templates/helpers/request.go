package helpers

import (
	"context"
	"path"
	"strings"

	"finitefield.org/delivery-admin/internal/admin/httpserver/middleware"
	"finitefield.org/delivery-admin/internal/admin/rbac"
)

// RequestPath is the cleaned path of the request being rendered.
func RequestPath(ctx context.Context) string {
	if info, ok := middleware.RequestInfoFromContext(ctx); ok {
		return cleanPath(info.Path)
	}
	return "/"
}

// BasePath is the mount point of the admin UI.
func BasePath(ctx context.Context) string {
	return cleanPath(middleware.BasePathFromContext(ctx))
}

// NavActive reports whether target is the page being rendered or, with
// prefix set, one of its ancestors.
func NavActive(ctx context.Context, target string, prefix bool) bool {
	current, target := RequestPath(ctx), cleanPath(target)
	if current == target {
		return true
	}
	if !prefix || target == "/" {
		return false
	}
	return strings.HasPrefix(current, target+"/")
}

// HasCapability reports whether the signed-in staff member may perform
// capability.
func HasCapability(ctx context.Context, capability rbac.Capability) bool {
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		return capability == ""
	}
	return rbac.HasCapability(user.Roles, capability)
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}
