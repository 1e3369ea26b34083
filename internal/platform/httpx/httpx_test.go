package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/timi-123/shop-admin-sub000/internal/platform/requestctx"
)

func TestWriteErrorIncludesTraceAndTarget(t *testing.T) {
	ctx := requestctx.WithTrace(context.Background(), requestctx.TraceInfo{TraceID: "trace-1"})
	ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-1")
	rr := httptest.NewRecorder()

	WriteError(ctx, rr, NewError(CodeVendorOrderNotFound, "vendor order\nmissing", http.StatusNotFound).
		WithTarget("ord_1", "vendor-a"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "" {
		t.Fatalf("did not expect Retry-After")
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != CodeVendorOrderNotFound || body["message"] != "vendor order missing" || body["status"] != float64(http.StatusNotFound) {
		t.Fatalf("unexpected envelope: %v", body)
	}
	if body["request_id"] != "req-1" || body["trace_id"] != "trace-1" {
		t.Fatalf("expected identifiers, got %v", body)
	}
	if body["order_id"] != "ord_1" || body["vendor_id"] != "vendor-a" {
		t.Fatalf("expected target, got %v", body)
	}
}

func TestWriteErrorRetryAfterRoundsUp(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteError(context.Background(), rr, NewError(CodeRateLimited, "slow down", http.StatusTooManyRequests).
		WithRetryAfter(1500*time.Millisecond))

	if got := rr.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["order_id"]; ok {
		t.Fatalf("expected order_id to be omitted, got %v", body)
	}
	if _, ok := body["request_id"]; ok {
		t.Fatalf("expected request_id to be omitted, got %v", body)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	cases := []struct {
		name    string
		body    string
		ctype   string
		wantErr bool
		empty   bool
	}{
		{name: "valid", body: `{"name":"a"}`, ctype: "application/json"},
		{name: "unknown field", body: `{"name":"a","extra":1}`, wantErr: true},
		{name: "trailing object", body: `{"name":"a"}{"name":"b"}`, wantErr: true},
		{name: "empty", body: ``, wantErr: true, empty: true},
		{name: "wrong content type", body: `{"name":"a"}`, ctype: "text/plain", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			if tc.ctype != "" {
				req.Header.Set("Content-Type", tc.ctype)
			}
			var dst payload
			err := DecodeJSON(httptest.NewRecorder(), req, &dst, 0)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				if tc.empty && !errors.Is(err, ErrEmptyBody) {
					t.Fatalf("expected ErrEmptyBody, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dst.Name != "a" {
				t.Fatalf("unexpected payload: %+v", dst)
			}
		})
	}
}

func TestDecodeJSONRejectsOversizedBody(t *testing.T) {
	body := `{"name":"` + strings.Repeat("x", 64) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dst map[string]any
	if err := DecodeJSON(httptest.NewRecorder(), req, &dst, 16); err == nil {
		t.Fatalf("expected size limit error")
	}
}
