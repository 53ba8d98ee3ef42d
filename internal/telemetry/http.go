package telemetry

import (
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// HTTPInstrumentationName names the HTTP tracer and meter
	HTTPInstrumentationName = "github.com/gdgc-dbit/leaderboard-sync/http"

	// MaxUserAgentLength caps the user agent recorded on spans, in bytes
	MaxUserAgentLength = 256

	unknownRoute = "unknown_route"
)

// healthPaths are hit by orchestrators every few seconds and are not traced
var healthPaths = map[string]struct{}{
	"/health":    {},
	"/readiness": {},
}

// routeLabel returns the chi route pattern that served r, such as
// "/v1/leaderboard/{name}". Must be called after the router ran.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unknownRoute
}

type httpInstruments struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

// MetricsMiddleware records request count, latency and in-flight requests
// labelled by method, route pattern and status code. A nil provider yields a
// pass-through middleware.
func MetricsMiddleware(provider metric.MeterProvider) (func(http.Handler) http.Handler, error) {
	if provider == nil {
		return func(next http.Handler) http.Handler { return next }, nil
	}

	meter := provider.Meter(HTTPInstrumentationName)
	var (
		inst httpInstruments
		err  error
	)

	inst.duration, err = meter.Float64Histogram(
		"leaderboard_http_request_duration_seconds",
		metric.WithDescription("Duration of leaderboard API requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}
	inst.requests, err = meter.Int64Counter(
		"leaderboard_http_requests_total",
		metric.WithDescription("Leaderboard API requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	inst.inFlight, err = meter.Int64UpDownCounter(
		"leaderboard_http_active_requests",
		metric.WithDescription("Leaderboard API requests in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return inst.middleware, nil
}

func (inst httpInstruments) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The request context may be cancelled once ServeHTTP returns
		ctx := r.Context()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		inst.inFlight.Add(ctx, 1)
		next.ServeHTTP(ww, r)
		inst.inFlight.Add(ctx, -1)

		attrs := metric.WithAttributes(
			semconv.HTTPRequestMethodKey.String(r.Method),
			semconv.HTTPRoute(routeLabel(r)),
			semconv.HTTPResponseStatusCode(ww.Status()),
		)
		inst.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		inst.requests.Add(ctx, 1, attrs)
	})
}

// TracingMiddleware starts a server span per request, continuing any W3C
// trace context sent by the caller. Spans are named after the route pattern.
// Server errors mark the span as failed; client errors leave it unset.
// A nil provider yields a pass-through middleware.
func TracingMiddleware(provider trace.TracerProvider) func(http.Handler) http.Handler {
	if provider == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	tracer := provider.Tracer(HTTPInstrumentationName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, health := healthPaths[r.URL.Path]; health {
				next.ServeHTTP(w, r)
				return
			}

			ctx := Propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.UserAgentOriginal(truncateUserAgent(r.UserAgent())),
				),
			)
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			route := routeLabel(r)
			status := ww.Status()
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				semconv.HTTPRoute(route),
				semconv.HTTPResponseStatusCode(status),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}

// truncateUserAgent cuts ua to at most MaxUserAgentLength bytes without
// splitting a multi-byte rune
func truncateUserAgent(ua string) string {
	if len(ua) <= MaxUserAgentLength {
		return ua
	}
	cut := MaxUserAgentLength
	for cut > 0 && !utf8.RuneStart(ua[cut]) {
		cut--
	}
	return ua[:cut]
}
