package httpx

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/timi-123/shop-admin-sub000/internal/platform/requestctx"
)

// Codes surfaced by the order endpoints.
const (
	CodeInvalidOrderRequest   = "invalid_order_request"
	CodeInvalidStatus         = "invalid_status"
	CodeVendorOrderForbidden  = "vendor_order_forbidden"
	CodeOrderNotFound         = "order_not_found"
	CodeVendorOrderNotFound   = "vendor_order_not_found"
	CodeOrderWriteConflict    = "order_write_conflict"
	CodeOrderStoreUnavailable = "order_store_unavailable"
	CodeRateLimited           = "rate_limited"
	CodeInternal              = "internal_server_error"
)

// Error is the JSON error envelope returned by every order endpoint.
type Error struct {
	Code       string
	Message    string
	Status     int
	OrderID    string
	VendorID   string
	RetryAfter time.Duration
}

type envelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	OrderID   string `json:"order_id,omitempty"`
	VendorID  string `json:"vendor_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// NewError builds an envelope; a zero status means 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    sanitize(code, 80),
		Message: sanitize(message, 512),
		Status:  status,
	}
}

// WithTarget names the order, and optionally the vendor order, the failure refers to.
func (e Error) WithTarget(orderID, vendorID string) Error {
	e.OrderID = sanitize(orderID, 64)
	e.VendorID = sanitize(vendorID, 64)
	return e
}

// WithRetryAfter asks the client to wait before retrying. It is sent as whole seconds.
func (e Error) WithRetryAfter(d time.Duration) Error {
	e.RetryAfter = d
	return e
}

// WriteError writes the envelope with the request and trace identifiers found on ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	body := envelope{
		Error:     err.Code,
		Message:   err.Message,
		Status:    status,
		OrderID:   err.OrderID,
		VendorID:  err.VendorID,
		RequestID: sanitize(middleware.GetReqID(ctx), 80),
		TraceID:   sanitize(requestctx.TraceID(ctx), 64),
	}

	if err.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(err.RetryAfter.Seconds()))))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func sanitize(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ").Replace(value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
