package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
	"github.com/timi-123/shop-admin-sub000/internal/platform/requestctx"
)

func TestRequestLoggerIncludesActorRecordedDownstream(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	r := chi.NewRouter()
	r.Use(InjectLoggerMiddleware(logger))
	r.Use(RequestLoggerMiddleware("proj"))
	r.Get("/vendor/{vendorID}/orders", func(w http.ResponseWriter, r *http.Request) {
		requestctx.RecordActor(r.Context(), requestctx.Actor{UserID: "u1", Role: "vendor", VendorID: "v1"})
		w.WriteHeader(http.StatusForbidden)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/vendor/v1/orders", nil))

	completed := logs.FilterMessage("request completed").All()
	if len(completed) != 1 {
		t.Fatalf("expected one completion entry, got %d", len(completed))
	}
	entry := completed[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for 403, got %s", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["user_id"] != "u1" || fields["role"] != "vendor" || fields["vendor_id"] != "v1" {
		t.Fatalf("expected actor fields, got %v", fields)
	}
	if fields["route"] != "/vendor/{vendorID}/orders" {
		t.Fatalf("expected route pattern, got %v", fields["route"])
	}
	if fields["status"] != int64(http.StatusForbidden) {
		t.Fatalf("expected status 403, got %v", fields["status"])
	}
}

func TestRequestLoggerNamesTargetOrderAndVendor(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := chi.NewRouter()
	r.Use(InjectLoggerMiddleware(zap.New(core)))
	r.Use(RequestLoggerMiddleware("proj"))
	r.Put("/orders/{orderID}/vendor-orders/{vendorID}/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/orders/ord_1/vendor-orders/vendor-a/status", nil))

	completed := logs.FilterMessage("request completed").All()
	if len(completed) != 1 {
		t.Fatalf("expected one completion entry, got %d", len(completed))
	}
	if completed[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level for 503, got %s", completed[0].Level)
	}
	fields := completed[0].ContextMap()
	if fields["order_id"] != "ord_1" || fields["target_vendor_id"] != "vendor-a" {
		t.Fatalf("expected order and vendor fields, got %v", fields)
	}
}

func TestRecoveryMiddlewareWritesJSONError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "internal_server_error") {
		t.Fatalf("expected error code in body, got %s", rr.Body.String())
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
}

func TestTraceMiddlewareHonoursCloudTraceHeader(t *testing.T) {
	const traceID = "105445aa7843bc8bf206b12000100000"

	var captured requestctx.TraceInfo
	handler := TraceMiddleware("proj")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = requestctx.Trace(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/o1", nil)
	req.Header.Set(cloudTraceHeader, traceID+"/1;o=1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if captured.ProjectID != "proj" {
		t.Fatalf("expected project id on trace info, got %+v", captured)
	}
	if captured.TraceID != traceID {
		t.Fatalf("expected trace id propagated from header, got %s", captured.TraceID)
	}
	if got := rr.Header().Get(cloudTraceHeader); got != traceID+"/1;o=1" {
		t.Fatalf("expected trace header echoed with decimal span id, got %q", got)
	}
}

func TestParseCloudTraceContext(t *testing.T) {
	const traceID = "105445aa7843bc8bf206b12000100000"

	parsed, ok := parseCloudTraceContext(traceID + "/1311768467294899695;o=1")
	if !ok || !parsed.sampled {
		t.Fatalf("expected sampled decimal span context, got %+v %v", parsed, ok)
	}
	if got := parsed.spanID.String(); got != "1234567890abcdef" {
		t.Fatalf("expected decimal span id to convert to 1234567890abcdef, got %s", got)
	}

	parsed, ok = parseCloudTraceContext(traceID + "/00f067aa0ba902b7")
	if !ok || parsed.sampled || parsed.spanID.String() != "00f067aa0ba902b7" {
		t.Fatalf("expected unsampled hex span context, got %+v %v", parsed, ok)
	}

	for _, header := range []string{"", "abc", "zz/1;o=1", traceID + "/", traceID + "/0;o=1", traceID + "/xyz"} {
		if _, ok := parseCloudTraceContext(header); ok {
			t.Fatalf("expected %q to be rejected", header)
		}
	}
}

func TestOrderAttributesFromRoute(t *testing.T) {
	var attrs []attribute.KeyValue
	r := chi.NewRouter()
	r.Put("/orders/{orderID}/vendor-orders/{vendorID}/status", func(w http.ResponseWriter, r *http.Request) {
		attrs = orderAttributes(r)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/orders/ord_1/vendor-orders/vendor-a/status", nil))

	got := map[attribute.Key]string{}
	for _, kv := range attrs {
		got[kv.Key] = kv.Value.AsString()
	}
	if got[orderIDAttribute] != "ord_1" || got[vendorIDAttribute] != "vendor-a" {
		t.Fatalf("unexpected order attributes %v", got)
	}
}

func TestEventLoggerUsesRequestLoggerAndWarnLevels(t *testing.T) {
	fallbackCore, fallbackLogs := observer.New(zapcore.InfoLevel)
	requestCore, requestLogs := observer.New(zapcore.InfoLevel)

	logEvent := EventLogger(zap.New(fallbackCore))

	logEvent(context.Background(), "vendor_order.status.applied", map[string]any{"orderId": "o1"})
	ctx := requestctx.WithLogger(context.Background(), zap.New(requestCore))
	logEvent(ctx, "order.create.total_mismatch", map[string]any{"orderId": "o2", "supplied": "10.00"})

	if fallbackLogs.Len() != 1 || fallbackLogs.All()[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected info entry on fallback logger, got %v", fallbackLogs.All())
	}
	entries := requestLogs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn for mismatch event, got %s", entries[0].Level)
	}
	if entries[0].ContextMap()["supplied"] != "10.00" {
		t.Fatalf("expected fields to be forwarded, got %v", entries[0].ContextMap())
	}
}

type recordingCounter struct {
	noop.Int64Counter
	total int64
	attrs []attribute.Set
}

func (c *recordingCounter) Add(_ context.Context, incr int64, opts ...metric.AddOption) {
	c.total += incr
	c.attrs = append(c.attrs, metric.NewAddConfig(opts).Attributes())
}

type recordingMeter struct {
	noop.Meter
	counters map[string]*recordingCounter
}

func (m *recordingMeter) Int64Counter(name string, _ ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	c := &recordingCounter{}
	m.counters[name] = c
	return c, nil
}

func TestOrderMetricsRecordsCounters(t *testing.T) {
	meter := &recordingMeter{counters: map[string]*recordingCounter{}}
	core, logs := observer.New(zapcore.WarnLevel)
	m := NewOrderMetrics(meter, zap.New(core))
	ctx := context.Background()

	m.OrderCreated(ctx, 3)
	m.CartLinesDropped(ctx, 2)
	m.CartLinesDropped(ctx, 0)
	m.VendorOrderTransitioned(ctx, domain.VendorOrderStatusOrderReceived, domain.VendorOrderStatusShipped)
	m.WriteConflict(ctx, "o1", "v1", 2)

	if got := meter.counters["orders.created"].total; got != 1 {
		t.Fatalf("expected one created order, got %d", got)
	}
	if v, ok := meter.counters["orders.created"].attrs[0].Value("vendor_count"); !ok || v.AsInt64() != 3 {
		t.Fatalf("expected vendor_count attribute 3, got %v", v)
	}
	if got := meter.counters["orders.cart_lines.dropped"].total; got != 2 {
		t.Fatalf("expected two dropped lines, got %d", got)
	}
	transitions := meter.counters["vendor_orders.transitions"]
	if v, _ := transitions.attrs[0].Value("to"); v.AsString() != "shipped" {
		t.Fatalf("expected to=shipped, got %v", v)
	}
	if got := meter.counters["orders.write.conflicts"].total; got != 1 {
		t.Fatalf("expected one conflict, got %d", got)
	}
	if logs.FilterMessage("order.write.conflict").Len() != 1 {
		t.Fatalf("expected conflict to be logged")
	}
}
