package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/delivery-admin/internal/platform/observability"
)

type csrfContextKey string

const csrfTokenContextKey csrfContextKey = "csrf.token"

const (
	// CSRFHeader is sent by htmx via hx-headers on every mutating request.
	CSRFHeader = "X-CSRF-Token"
	// CSRFFormField is accepted for plain form posts.
	CSRFFormField = "csrf_token"
)

// CSRF binds a synchroniser token to the session. Safe methods only make sure
// a token exists; unsafe methods must echo it in the header or form field.
// It must run after Session.
func CSRF() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}
			token, err := sess.EnsureCSRFToken()
			if err != nil {
				observability.FromContext(r.Context()).Error("csrf token generation failed", zap.Error(err))
				http.Error(w, "csrf token error", http.StatusInternalServerError)
				return
			}

			if isUnsafeMethod(r.Method) && !tokenMatches(token, submittedToken(r)) {
				observability.FromContext(r.Context()).Warn("csrf token mismatch")
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), csrfTokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CSRFTokenFromContext returns the token to embed in pages and htmx headers.
func CSRFTokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(csrfTokenContextKey).(string); ok {
		return token
	}
	return ""
}

func submittedToken(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(CSRFHeader)); v != "" {
		return v
	}
	return strings.TrimSpace(r.PostFormValue(CSRFFormField))
}

func tokenMatches(expected, submitted string) bool {
	if expected == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}
