package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
	"github.com/timi-123/shop-admin-sub000/internal/platform/requestctx"
)

const orderMetricNamespace = "github.com/timi-123/shop-admin-sub000/internal/services/orders"

// OrderMetrics records order engine counters through OpenTelemetry.
type OrderMetrics struct {
	created     metric.Int64Counter
	dropped     metric.Int64Counter
	transitions metric.Int64Counter
	conflicts   metric.Int64Counter
	logger      *zap.Logger
}

// NewOrderMetrics registers the order counters on meter, or on the global meter provider when
// meter is nil. Instruments that fail to register are skipped and logged.
func NewOrderMetrics(meter metric.Meter, logger *zap.Logger) *OrderMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(orderMetricNamespace)
	}

	counter := func(name, description string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description))
		if err != nil {
			logger.Warn("observability: unable to register counter", zap.String("counter", name), zap.Error(err))
			return nil
		}
		return c
	}

	return &OrderMetrics{
		created:     counter("orders.created", "Orders accepted at checkout"),
		dropped:     counter("orders.cart_lines.dropped", "Cart lines dropped because the product could not be resolved"),
		transitions: counter("vendor_orders.transitions", "Vendor order status changes"),
		conflicts:   counter("orders.write.conflicts", "Vendor order writes retried after losing a race"),
		logger:      logger,
	}
}

// OrderCreated counts one order split across vendorCount vendors.
func (m *OrderMetrics) OrderCreated(ctx context.Context, vendorCount int) {
	if m == nil || m.created == nil {
		return
	}
	m.created.Add(ctx, 1, metric.WithAttributes(attribute.Int("vendor_count", vendorCount)))
}

// CartLinesDropped counts unresolved cart lines.
func (m *OrderMetrics) CartLinesDropped(ctx context.Context, count int) {
	if m == nil || m.dropped == nil || count <= 0 {
		return
	}
	m.dropped.Add(ctx, int64(count))
}

// VendorOrderTransitioned counts a status change for one vendor order.
func (m *OrderMetrics) VendorOrderTransitioned(ctx context.Context, from, to domain.VendorOrderStatus) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
}

// WriteConflict counts and logs a retried vendor order write. Its signature matches the
// repositories conflict observer.
func (m *OrderMetrics) WriteConflict(ctx context.Context, orderID, vendorID string, attempt int) {
	if m == nil {
		return
	}
	if m.conflicts != nil {
		m.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.Int("attempt", attempt)))
	}
	requestctx.LoggerOr(ctx, m.logger).Warn("order.write.conflict",
		zap.String("event", "order.write.conflict"),
		zap.String("orderId", orderID),
		zap.String("vendorId", vendorID),
		zap.Int("attempt", attempt),
	)
}
