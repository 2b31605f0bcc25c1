package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/delivery-admin/internal/admin/rbac"
	"finitefield.org/delivery-admin/internal/platform/observability"
)

// RequireCapability aborts the request with 403 when the authenticated user
// lacks capability.
func RequireCapability(capability rbac.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || !rbac.HasCapability(user.Roles, capability) {
				observability.FromContext(r.Context()).Info("capability denied",
					zap.String("capability", string(capability)),
				)
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	if IsHTMXRequest(r.Context()) {
		TriggerToast(w, "この操作を行う権限がありません。", ToastDanger)
		w.Header().Set("HX-Reswap", "none")
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}
