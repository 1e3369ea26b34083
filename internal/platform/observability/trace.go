package observability

import (
	"encoding/binary"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/timi-123/shop-admin-sub000/internal/platform/requestctx"
)

// cloudTraceHeader carries "TRACE_ID/SPAN_ID;o=OPTIONS" with a hex trace id and a decimal span id.
const cloudTraceHeader = "X-Cloud-Trace-Context"

const (
	orderIDAttribute  = attribute.Key("marketplace.order.id")
	vendorIDAttribute = attribute.Key("marketplace.vendor.id")
)

var tracer = otel.Tracer("github.com/timi-123/shop-admin-sub000/orders")

// TraceMiddleware opens one server span per request, parented on X-Cloud-Trace-Context when the
// load balancer supplies it. Once routing has run, the span takes the chi route pattern as its
// name and is tagged with the order and vendor the path addresses.
func TraceMiddleware(projectID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if parent, ok := parseCloudTraceContext(r.Header.Get(cloudTraceHeader)); ok {
				ctx = trace.ContextWithRemoteSpanContext(ctx, parent.spanContext())
			}

			method := SanitizeMethod(r.Method)
			ctx, span := tracer.Start(ctx, method+" "+SanitizeRoute(r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(requestAttributes(r)...),
			)
			defer span.End()

			sc := span.SpanContext()
			ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{
				TraceID:   sc.TraceID().String(),
				SpanID:    sc.SpanID().String(),
				Sampled:   sc.IsSampled(),
				ProjectID: projectID,
			})
			if header := formatCloudTraceHeader(sc); header != "" {
				w.Header().Set(cloudTraceHeader, header)
			}

			r = r.WithContext(ctx)
			next.ServeHTTP(w, r)

			if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
				span.SetName(method + " " + SanitizeRoute(rctx.RoutePattern()))
			}
			span.SetAttributes(orderAttributes(r)...)
		})
	}
}

// orderAttributes reads the order and vendor path parameters resolved by chi.
func orderAttributes(r *http.Request) []attribute.KeyValue {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil
	}
	var attrs []attribute.KeyValue
	if id := SanitizeIdentifier(rctx.URLParam("orderID")); id != "" {
		attrs = append(attrs, orderIDAttribute.String(id))
	}
	if id := SanitizeIdentifier(rctx.URLParam("vendorID")); id != "" {
		attrs = append(attrs, vendorIDAttribute.String(id))
	}
	return attrs
}

func requestAttributes(r *http.Request) []attribute.KeyValue {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(SanitizeMethod(r.Method)),
		semconv.URLScheme(scheme),
		semconv.URLPath(SanitizeRoute(r.URL.Path)),
	}
	if r.Host != "" {
		attrs = append(attrs, semconv.ServerAddress(sanitizeString(r.Host, 128)))
	}
	if ua := r.UserAgent(); ua != "" {
		attrs = append(attrs, semconv.UserAgentOriginal(sanitizeString(ua, defaultStringLimit)))
	}
	return attrs
}

type cloudTraceContext struct {
	traceID trace.TraceID
	spanID  trace.SpanID
	sampled bool
}

func (c cloudTraceContext) spanContext() trace.SpanContext {
	cfg := trace.SpanContextConfig{TraceID: c.traceID, SpanID: c.spanID, Remote: true}
	if c.sampled {
		cfg.TraceFlags = trace.FlagsSampled
	}
	return trace.NewSpanContext(cfg)
}

func parseCloudTraceContext(header string) (cloudTraceContext, bool) {
	traceHex, rest, found := strings.Cut(strings.TrimSpace(header), "/")
	if !found || len(traceHex) != 32 {
		return cloudTraceContext{}, false
	}
	traceID, err := trace.TraceIDFromHex(traceHex)
	if err != nil {
		return cloudTraceContext{}, false
	}
	spanPart, options, _ := strings.Cut(rest, ";")
	spanID, ok := parseSpanID(strings.TrimSpace(spanPart))
	if !ok {
		return cloudTraceContext{}, false
	}
	return cloudTraceContext{traceID: traceID, spanID: spanID, sampled: sampledOption(options)}, true
}

// parseSpanID accepts the decimal form Cloud Trace sends, and 16 digit hex from other propagators.
func parseSpanID(value string) (trace.SpanID, bool) {
	var id trace.SpanID
	if num, err := strconv.ParseUint(value, 10, 64); err == nil {
		binary.BigEndian.PutUint64(id[:], num)
		return id, id.IsValid()
	}
	if len(value) == 16 {
		if parsed, err := trace.SpanIDFromHex(value); err == nil {
			return parsed, true
		}
	}
	return trace.SpanID{}, false
}

func sampledOption(options string) bool {
	for _, segment := range strings.Split(options, ";") {
		if value, ok := strings.CutPrefix(strings.TrimSpace(segment), "o="); ok {
			return value == "1"
		}
	}
	return false
}

func formatCloudTraceHeader(sc trace.SpanContext) string {
	if !sc.IsValid() {
		return ""
	}
	option := "0"
	if sc.IsSampled() {
		option = "1"
	}
	spanID := sc.SpanID()
	return fmt.Sprintf("%s/%d;o=%s", sc.TraceID(), binary.BigEndian.Uint64(spanID[:]), option)
}
