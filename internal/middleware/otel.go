package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"neurphys/internal/infrastructure"
)

// OTelMiddleware traces HTTP requests and records request metrics.
type OTelMiddleware struct {
	tracer         trace.Tracer
	propagator     propagation.TextMapPropagator
	requests       metric.Int64Counter
	duration       metric.Float64Histogram
	activeRequests metric.Int64UpDownCounter
	requestSize    metric.Int64Counter
	responseSize   metric.Int64Counter
}

// NewOTelMiddleware builds the HTTP instruments from the shared providers.
func NewOTelMiddleware(providers *infrastructure.OTelProviders) (*OTelMiddleware, error) {
	meter := providers.Meter

	requests, err := meter.Int64Counter("neurphys_http_requests_total",
		metric.WithDescription("HTTP requests by route, method and status"))
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	duration, err := meter.Float64Histogram("neurphys_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	activeRequests, err := meter.Int64UpDownCounter("neurphys_http_active_requests",
		metric.WithDescription("Requests currently in flight"))
	if err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}
	requestSize, err := meter.Int64Counter("neurphys_http_request_bytes_total",
		metric.WithDescription("Bytes received in request bodies"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("failed to create request size counter: %w", err)
	}
	responseSize, err := meter.Int64Counter("neurphys_http_response_bytes_total",
		metric.WithDescription("Bytes written in response bodies"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("failed to create response size counter: %w", err)
	}

	return &OTelMiddleware{
		tracer:         providers.Tracer,
		propagator:     otel.GetTextMapPropagator(),
		requests:       requests,
		duration:       duration,
		activeRequests: activeRequests,
		requestSize:    requestSize,
		responseSize:   responseSize,
	}, nil
}

// Handler wraps each request in a server span and records the instruments.
func (m *OTelMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := m.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := m.tracer.Start(ctx,
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.URLPath(r.URL.Path),
				semconv.URLScheme(scheme(r)),
				semconv.UserAgentOriginal(r.UserAgent()),
				semconv.ClientAddress(GetRealIP(r)),
			),
		)
		defer span.End()

		routeAttrs := metric.WithAttributes(
			attribute.String("method", r.Method),
		)
		m.activeRequests.Add(ctx, 1, routeAttrs)
		defer m.activeRequests.Add(ctx, -1, routeAttrs)

		if r.ContentLength > 0 {
			m.requestSize.Add(ctx, r.ContentLength)
		}

		ww := &otelResponseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		elapsed := time.Since(start)
		route := getRoutePattern(r)

		span.SetName(fmt.Sprintf("%s %s", r.Method, route))
		span.SetAttributes(
			semconv.HTTPRoute(route),
			semconv.HTTPResponseStatusCode(ww.status),
		)
		if ww.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(ww.status))
		}

		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.Int("status", ww.status),
		)
		m.requests.Add(ctx, 1, attrs)
		m.duration.Record(ctx, elapsed.Seconds(), attrs)
		if ww.written > 0 {
			m.responseSize.Add(ctx, ww.written)
		}
	})
}

// WebSocketTraceMiddleware attaches a trace ID to upgrade requests without
// wrapping the response writer, which would hide http.Hijacker from the
// upgrader.
func (m *OTelMiddleware) WebSocketTraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := m.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		if traceID := GetReqID(ctx); traceID != "" {
			ctx = infrastructure.WithTraceID(ctx, traceID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type otelResponseWriter struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
}

func (w *otelResponseWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *otelResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func (w *otelResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// getRoutePattern returns the chi route pattern so metric cardinality stays
// bounded even for parameterised paths.
func getRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

// GetRealIP extracts the client IP, honouring proxy headers.
func GetRealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
