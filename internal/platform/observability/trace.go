package observability

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "finitefield.org/delivery-admin"

var propagator = propagation.TraceContext{}

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationName
	}
	return otel.Tracer(name)
}

// TraceMiddleware honours incoming W3C traceparent headers and starts a
// server span for the request.
func TraceMiddleware() func(http.Handler) http.Handler {
	tracer := Tracer(instrumentationName + "/http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", r.Method, r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
				),
			)
			defer span.End()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectTraceHeaders propagates the current span to an outbound request.
func InjectTraceHeaders(ctx context.Context, req *http.Request) {
	if req == nil {
		return
	}
	propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))
}
