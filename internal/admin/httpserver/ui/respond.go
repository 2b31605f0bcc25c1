package ui

import (
	"net/http"

	custommw "finitefield.org/delivery-admin/internal/admin/httpserver/middleware"
)

// notifyFailure answers with status and a toast. htmx callers keep their DOM.
func notifyFailure(w http.ResponseWriter, r *http.Request, status int, message string) {
	if custommw.IsHTMXRequest(r.Context()) {
		custommw.TriggerToast(w, message, custommw.ToastDanger)
		w.Header().Set("HX-Reswap", "none")
	}
	http.Error(w, message, status)
}

// unauthorized is the fallback when a handler runs without an authenticated user.
func unauthorized(w http.ResponseWriter, r *http.Request) {
	notifyFailure(w, r, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
}
