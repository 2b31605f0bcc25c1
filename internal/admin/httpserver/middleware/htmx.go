package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type htmxKey struct{}

// HTMXInfo is what the handlers need from the HX-* request headers.
type HTMXInfo struct {
	IsHTMX bool
	// Target is the id of the element htmx will swap into.
	Target string
}

// HTMX records HX-Request and HX-Target. Responses vary on HX-Request since
// the same URL answers with a fragment or a full page.
func HTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := HTMXInfo{
				IsHTMX: headerTrue(r.Header, "HX-Request"),
				Target: strings.TrimPrefix(r.Header.Get("HX-Target"), "#"),
			}
			w.Header().Add("Vary", "HX-Request")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), htmxKey{}, info)))
		})
	}
}

// HTMXInfoFromContext returns the zero value outside the HTMX middleware.
func HTMXInfoFromContext(ctx context.Context) HTMXInfo {
	info, _ := ctx.Value(htmxKey{}).(HTMXInfo)
	return info
}

// IsHTMXRequest reports whether htmx issued the request.
func IsHTMXRequest(ctx context.Context) bool {
	return HTMXInfoFromContext(ctx).IsHTMX
}

func headerTrue(h http.Header, name string) bool {
	return strings.EqualFold(strings.TrimSpace(h.Get(name)), "true")
}

// Toast tones understood by public/static/admin.js.
const (
	ToastSuccess = "success"
	ToastWarning = "warning"
	ToastDanger  = "danger"
)

// TriggerToast sets an HX-Trigger "toast" event. Call it before the header
// is written; blank messages are ignored.
func TriggerToast(w http.ResponseWriter, message, tone string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	if tone == "" {
		tone = ToastSuccess
	}
	event := map[string]map[string]string{
		"toast": {"message": message, "tone": tone},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	w.Header().Set("HX-Trigger", string(payload))
}
