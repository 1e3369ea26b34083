package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
	"github.com/timi-123/shop-admin-sub000/internal/platform/pagination"
	"github.com/timi-123/shop-admin-sub000/internal/repositories"
)

const (
	orderEventCreated             = "order.created"
	vendorOrderEventStatusChanged = "vendor_order.status_changed"

	orderIDPrefix = "ord_"

	maxCustomMessageLength = 500
	maxSanitizePasses      = 4
	defaultVendorPageSize  = 20
	maxVendorPageSize      = 100
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrInvalidStatus indicates a status outside the fulfillment vocabulary.
	ErrInvalidStatus = errors.New("order: invalid status")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrVendorOrderNotFound indicates the vendor has no sub-order on the order.
	ErrVendorOrderNotFound = errors.New("order: vendor order not found")
	// ErrOrderForbidden indicates the caller may not act on the vendor order.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderConflict indicates concurrent writes kept winning until retries ran out, or a duplicate id.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderUnavailable indicates the backing store could not be reached.
	ErrOrderUnavailable = errors.New("order: store unavailable")
)

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	VendorID       string
	PreviousStatus string
	CurrentStatus  string
	OrderStatus    string
	ActorID        string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// OrderMetrics records order counters.
type OrderMetrics interface {
	OrderCreated(ctx context.Context, vendorCount int)
	CartLinesDropped(ctx context.Context, count int)
	VendorOrderTransitioned(ctx context.Context, from, to domain.VendorOrderStatus)
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders         repositories.OrderRepository
	Catalog        repositories.CatalogReader
	Vendors        repositories.VendorDirectory
	CommissionRate decimal.Decimal
	Clock          func() time.Time
	IDGenerator    func() string
	Events         OrderEventPublisher
	Metrics        OrderMetrics
	Logger         func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders     repositories.OrderRepository
	catalog    repositories.CatalogReader
	vendors    repositories.VendorDirectory
	commission CommissionCalculator
	clock      func() time.Time
	newID      func() string
	events     OrderEventPublisher
	metrics    OrderMetrics
	logger     func(context.Context, string, map[string]any)
	sanitizer  *bluemonday.Policy
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("order service: catalog reader is required")
	}

	commission, err := NewCommissionCalculator(deps.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopOrderMetrics{}
	}

	return &orderService{
		orders:     deps.Orders,
		catalog:    deps.Catalog,
		vendors:    deps.Vendors,
		commission: commission,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:     idGen,
		events:    deps.Events,
		metrics:   metrics,
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	if err := validateCreateOrder(cmd); err != nil {
		return domain.Order{}, err
	}

	productIDs := uniqueProductIDs(cmd.CartItems)
	snapshots, err := s.catalog.ResolveProducts(ctx, productIDs)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	split := SplitCart(cmd.CartItems, snapshots)
	if split.Dropped > 0 {
		s.logger(ctx, "order.create.dropped_lines", map[string]any{
			"customerId": strings.TrimSpace(cmd.CustomerID),
			"dropped":    split.Dropped,
			"lines":      len(cmd.CartItems),
		})
		s.metrics.CartLinesDropped(ctx, split.Dropped)
	}
	if len(split.Groups) == 0 {
		return domain.Order{}, fmt.Errorf("%w: none of the cart items could be resolved", ErrOrderInvalidInput)
	}

	now := s.now()
	order := BuildOrder(OrderDraft{
		OrderID:       s.nextOrderID(),
		CustomerID:    strings.TrimSpace(cmd.CustomerID),
		CustomerEmail: strings.TrimSpace(cmd.CustomerEmail),
		CustomerName:  strings.TrimSpace(cmd.CustomerName),
		Shipping:      trimAddress(cmd.Shipping),
		TotalAmount:   cmd.TotalAmount,
		PaymentStatus: strings.TrimSpace(cmd.PaymentStatus),
		Split:         split,
		Commission:    s.commission,
		CreatedAt:     now,
	})

	if computed := split.ResolvedSubtotal(); !computed.Equal(order.TotalAmount) {
		s.logger(ctx, "order.create.total_mismatch", map[string]any{
			"orderId":  order.ID,
			"supplied": domain.FormatMoney(order.TotalAmount),
			"computed": domain.FormatMoney(computed),
		})
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	s.metrics.OrderCreated(ctx, len(order.VendorOrders))
	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       order.ID,
		CurrentStatus: string(order.Status),
		OrderStatus:   string(order.Status),
		ActorID:       strings.TrimSpace(cmd.ActorID),
		OccurredAt:    now,
		Metadata: map[string]any{
			"vendorIds":    order.VendorIDs(),
			"totalAmount":  domain.FormatMoney(order.TotalAmount),
			"platformFee":  domain.FormatMoney(order.PlatformFee),
			"droppedLines": split.Dropped,
		},
	})

	return order, nil
}

func (s *orderService) UpdateVendorOrderStatus(ctx context.Context, cmd UpdateVendorOrderStatusCommand) (VendorOrderTransitionResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return VendorOrderTransitionResult{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	vendorID := strings.TrimSpace(cmd.VendorID)
	if vendorID == "" {
		return VendorOrderTransitionResult{}, fmt.Errorf("%w: vendor id is required", ErrOrderInvalidInput)
	}
	status, err := ParseVendorOrderStatus(cmd.Status)
	if err != nil {
		return VendorOrderTransitionResult{}, err
	}
	if !cmd.Authorized {
		return VendorOrderTransitionResult{}, fmt.Errorf("%w: caller cannot update vendor %s", ErrOrderForbidden, vendorID)
	}

	customMessage, err := s.sanitizeMessage(cmd.CustomMessage)
	if err != nil {
		return VendorOrderTransitionResult{}, err
	}

	actorID := strings.TrimSpace(cmd.ActorID)
	var (
		previous domain.VendorOrderStatus
		applied  domain.VendorOrder
	)
	updated, err := s.orders.MutateVendorOrder(ctx, orderID, vendorID, func(order *domain.Order) error {
		if current, ok := order.VendorOrders[vendorID]; ok {
			previous = current.Status
		}
		next, err := ApplyVendorOrderTransition(order, vendorID, VendorOrderTransition{
			Status:            status,
			TrackingNumber:    cmd.TrackingNumber,
			Carrier:           cmd.Carrier,
			EstimatedDelivery: cmd.EstimatedDelivery,
			CustomMessage:     customMessage,
			UpdatedBy:         actorID,
			At:                s.now(),
		})
		if err != nil {
			return err
		}
		applied = next
		return nil
	})
	if err != nil {
		return VendorOrderTransitionResult{}, s.mapRepositoryError(err)
	}
	if stored, ok := updated.VendorOrders[vendorID]; ok {
		applied = stored
	}

	statuses := updated.VendorStatuses()
	result := VendorOrderTransitionResult{
		OrderID:         updated.ID,
		VendorOrder:     applied,
		OrderStatus:     DeriveOrderStatus(statuses),
		CustomerSummary: DeriveCustomerSummary(statuses),
	}

	s.logger(ctx, "vendor_order.status.applied", map[string]any{
		"orderId":     result.OrderID,
		"vendorId":    vendorID,
		"from":        string(previous),
		"to":          string(status),
		"orderStatus": string(result.OrderStatus),
		"actorId":     actorID,
	})
	s.metrics.VendorOrderTransitioned(ctx, previous, status)
	s.publishEvent(ctx, OrderEvent{
		Type:           vendorOrderEventStatusChanged,
		OrderID:        result.OrderID,
		VendorID:       vendorID,
		PreviousStatus: string(previous),
		CurrentStatus:  string(status),
		OrderStatus:    string(result.OrderStatus),
		ActorID:        actorID,
		OccurredAt:     applied.LastStatusUpdate,
		Metadata:       trackingMetadata(applied.TrackingInfo),
	})

	return result, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	order.Status = DeriveOrderStatus(order.VendorStatuses())
	return order, nil
}

func (s *orderService) GetCustomerOrder(ctx context.Context, query CustomerOrderQuery) (CustomerOrderView, error) {
	customerID := strings.TrimSpace(query.CustomerID)
	if customerID == "" && !query.AnyCustomer {
		return CustomerOrderView{}, fmt.Errorf("%w: customer id is required", ErrOrderInvalidInput)
	}

	order, err := s.GetOrder(ctx, query.OrderID)
	if err != nil {
		return CustomerOrderView{}, err
	}
	if !query.AnyCustomer && order.CustomerID != customerID {
		return CustomerOrderView{}, fmt.Errorf("%w: order %s", ErrOrderNotFound, order.ID)
	}

	return ProjectCustomerOrder(order, s.vendorNames(ctx, order.VendorIDs())), nil
}

func (s *orderService) ListVendorOrders(ctx context.Context, filter VendorOrderListFilter) (domain.Page[VendorOrderSummary], error) {
	vendorID := strings.TrimSpace(filter.VendorID)
	if vendorID == "" {
		return domain.Page[VendorOrderSummary]{}, fmt.Errorf("%w: vendor id is required", ErrOrderInvalidInput)
	}
	if filter.Pagination.PageSize < 0 {
		return domain.Page[VendorOrderSummary]{}, fmt.Errorf("%w: page size must not be negative", ErrOrderInvalidInput)
	}
	pageSize := filter.Pagination.PageSize
	switch {
	case pageSize == 0:
		pageSize = defaultVendorPageSize
	case pageSize > maxVendorPageSize:
		pageSize = maxVendorPageSize
	}

	page, err := s.orders.ListByVendor(ctx, repositories.VendorOrderListFilter{
		VendorID: vendorID,
		Pagination: domain.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(filter.Pagination.PageToken),
		},
	})
	if err != nil {
		return domain.Page[VendorOrderSummary]{}, s.mapRepositoryError(err)
	}

	summaries := make([]VendorOrderSummary, 0, len(page.Items))
	for _, order := range page.Items {
		vendorOrder, ok := order.VendorOrders[vendorID]
		if !ok {
			continue
		}
		summaries = append(summaries, VendorOrderSummary{
			OrderID:         order.ID,
			CreatedAt:       order.CreatedAt,
			OrderStatus:     DeriveOrderStatus(order.VendorStatuses()),
			ShippingAddress: order.ShippingAddress,
			VendorOrder:     vendorOrder,
		})
	}

	return domain.Page[VendorOrderSummary]{Items: summaries, NextPageToken: page.NextPageToken}, nil
}

func (s *orderService) vendorNames(ctx context.Context, vendorIDs []string) map[string]string {
	if s.vendors == nil || len(vendorIDs) == 0 {
		return map[string]string{}
	}
	names, err := s.vendors.DisplayNames(ctx, vendorIDs)
	if err != nil {
		s.logger(ctx, "order.vendor_names.lookup_failed", map[string]any{
			"vendors": len(vendorIDs),
			"error":   err.Error(),
		})
		return map[string]string{}
	}
	return names
}

func (s *orderService) sanitizeMessage(message *string) (*string, error) {
	if message == nil {
		return nil, nil
	}
	cleaned, ok := s.stripMarkup(*message)
	if !ok {
		return nil, fmt.Errorf("%w: custom message contains nested encoded markup", ErrOrderInvalidInput)
	}
	cleaned = strings.TrimSpace(cleaned)
	if utf8.RuneCountInString(cleaned) > maxCustomMessageLength {
		return nil, fmt.Errorf("%w: custom message exceeds %d characters", ErrOrderInvalidInput, maxCustomMessageLength)
	}
	return &cleaned, nil
}

// stripMarkup sanitises and unescapes until the text is stable, so entity-encoded tags are
// stripped as well once decoded. It reports false when the text does not settle.
func (s *orderService) stripMarkup(text string) (string, bool) {
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.sanitizer.Sanitize(text))
		if next == text {
			return text, true
		}
		text = next
	}
	return "", false
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	// Errors raised by the mutation itself already carry a service sentinel.
	for _, sentinel := range []error{ErrOrderInvalidInput, ErrInvalidStatus, ErrVendorOrderNotFound, ErrOrderForbidden} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	if errors.Is(err, pagination.ErrInvalidPageToken) {
		return fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}

	return err
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"vendor": event.VendorID,
			"error":  err.Error(),
			"status": event.CurrentStatus,
		})
	}
}

func validateCreateOrder(cmd CreateOrderCommand) error {
	if strings.TrimSpace(cmd.CustomerID) == "" {
		return fmt.Errorf("%w: customer id is required", ErrOrderInvalidInput)
	}
	if len(cmd.CartItems) == 0 {
		return fmt.Errorf("%w: cart must contain at least one item", ErrOrderInvalidInput)
	}
	for idx, item := range cmd.CartItems {
		if strings.TrimSpace(item.ProductID) == "" {
			return fmt.Errorf("%w: cart item %d is missing a product id", ErrOrderInvalidInput, idx)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: cart item %d must have a positive quantity", ErrOrderInvalidInput, idx)
		}
	}
	if email := strings.TrimSpace(cmd.CustomerEmail); email != "" && !strings.Contains(email, "@") {
		return fmt.Errorf("%w: customer email is malformed", ErrOrderInvalidInput)
	}

	shipping := trimAddress(cmd.Shipping)
	missing := make([]string, 0, 4)
	if shipping.FullName == "" {
		missing = append(missing, "full name")
	}
	if shipping.Address == "" {
		missing = append(missing, "address")
	}
	if shipping.City == "" {
		missing = append(missing, "city")
	}
	if shipping.Country == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: shipping %s required", ErrOrderInvalidInput, strings.Join(missing, ", "))
	}

	if cmd.TotalAmount.IsNegative() {
		return fmt.Errorf("%w: total amount must not be negative", ErrOrderInvalidInput)
	}
	return nil
}

func uniqueProductIDs(lines []domain.CartLine) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		id := strings.TrimSpace(line.ProductID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func trimAddress(addr domain.ShippingAddress) domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName:   strings.TrimSpace(addr.FullName),
		Address:    strings.TrimSpace(addr.Address),
		City:       strings.TrimSpace(addr.City),
		PostalCode: strings.TrimSpace(addr.PostalCode),
		Country:    strings.TrimSpace(addr.Country),
		Phone:      strings.TrimSpace(addr.Phone),
	}
}

func trackingMetadata(info *domain.TrackingInfo) map[string]any {
	if info == nil {
		return nil
	}
	metadata := map[string]any{}
	if info.TrackingNumber != "" {
		metadata["trackingNumber"] = info.TrackingNumber
	}
	if info.Carrier != "" {
		metadata["carrier"] = info.Carrier
	}
	if info.EstimatedDelivery != nil {
		metadata["estimatedDelivery"] = info.EstimatedDelivery.UTC().Format(time.RFC3339)
	}
	return metadata
}

type noopOrderMetrics struct{}

func (noopOrderMetrics) OrderCreated(context.Context, int) {}
func (noopOrderMetrics) CartLinesDropped(context.Context, int) {}
func (noopOrderMetrics) VendorOrderTransitioned(context.Context, domain.VendorOrderStatus, domain.VendorOrderStatus) {}
