// Package requestctx carries request-scoped logging, trace and caller metadata between
// middleware, handlers and services.
package requestctx

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerContextKey contextKey = "github.com/timi-123/shop-admin-sub000/internal/platform/requestctx/logger"
	traceContextKey  contextKey = "github.com/timi-123/shop-admin-sub000/internal/platform/requestctx/trace"
	actorContextKey  contextKey = "github.com/timi-123/shop-admin-sub000/internal/platform/requestctx/actor"
)

var noopLogger = zap.NewNop()

// TraceInfo captures trace metadata propagated through request context.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// LoggingResource returns the Cloud Logging trace resource name, or "" when incomplete.
func (t TraceInfo) LoggingResource() string {
	if t.ProjectID == "" || t.TraceID == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/traces/%s", t.ProjectID, t.TraceID)
}

// Actor describes the authenticated caller once authentication has run.
type Actor struct {
	UserID   string
	Role     string
	VendorID string
}

// actorSlot is installed by the outermost middleware so that authentication running deeper
// in the chain can report the caller back to the request logger.
type actorSlot struct {
	mu    sync.Mutex
	actor Actor
	set   bool
}

// WithLogger stores the logger in context for downstream consumers.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Logger retrieves the zap logger from context or returns a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	return LoggerOr(ctx, noopLogger)
}

// LoggerOr retrieves the zap logger from context, falling back to the supplied logger.
func LoggerOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback == nil {
		return noopLogger
	}
	return fallback
}

// NoopLogger exposes the shared noop logger instance used across the package.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace stores the trace metadata on the context for downstream usage.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceContextKey, info)
}

// Trace retrieves the trace metadata from context when available.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceContextKey).(TraceInfo)
	return info, ok
}

// TraceID extracts the trace identifier from context when present.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// WithActorSlot prepares the context to receive the caller identity later in the chain.
func WithActorSlot(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, &actorSlot{})
}

// RecordActor stores the caller on the slot installed by WithActorSlot. It is a no-op when no
// slot is present.
func RecordActor(ctx context.Context, actor Actor) {
	if ctx == nil {
		return
	}
	slot, ok := ctx.Value(actorContextKey).(*actorSlot)
	if !ok || slot == nil {
		return
	}
	slot.mu.Lock()
	slot.actor = actor
	slot.set = true
	slot.mu.Unlock()
}

// ActorFromContext returns the caller recorded for this request, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	slot, ok := ctx.Value(actorContextKey).(*actorSlot)
	if !ok || slot == nil {
		return Actor{}, false
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.actor, slot.set
}
