package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
	"github.com/timi-123/shop-admin-sub000/internal/platform/auth"
	"github.com/timi-123/shop-admin-sub000/internal/platform/httpx"
	"github.com/timi-123/shop-admin-sub000/internal/platform/pagination"
	"github.com/timi-123/shop-admin-sub000/internal/platform/requestctx"
	"github.com/timi-123/shop-admin-sub000/internal/services"
)

const (
	maxOrderCreateBodySize = 64 * 1024
	maxStatusBodySize      = 8 * 1024
	estimatedDeliveryDate  = "2006-01-02"

	conflictRetryAfter = time.Second
)

// OrderHandlers exposes checkout, fulfillment and order read endpoints.
type OrderHandlers struct {
	authn       *auth.Authenticator
	orders      services.OrderService
	idempotency func(http.Handler) http.Handler
	limiter     rateLimiter
}

// OrderHandlerOption customises OrderHandlers.
type OrderHandlerOption func(*OrderHandlers)

// WithCheckoutIdempotency wraps POST /orders with the given middleware.
func WithCheckoutIdempotency(mw func(http.Handler) http.Handler) OrderHandlerOption {
	return func(h *OrderHandlers) {
		h.idempotency = mw
	}
}

// WithCheckoutRateLimit allows each caller at most limit order creations per window.
func WithCheckoutRateLimit(limit int, window time.Duration, clock func() time.Time) OrderHandlerOption {
	return func(h *OrderHandlers) {
		h.limiter = newFixedWindowLimiter(limit, window, clock)
	}
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, opts ...OrderHandlerOption) *OrderHandlers {
	h := &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	checkout := []func(http.Handler) http.Handler{h.throttleCheckout}
	if h.idempotency != nil {
		checkout = append(checkout, h.idempotency)
	}
	r.With(checkout...).Post("/", h.createOrder)
	r.Get("/{orderID}", h.getCustomerOrder)
	r.Put("/{orderID}/vendor-orders/{vendorID}/status", h.updateVendorOrderStatus)
}

// AdminRoutes registers the /admin endpoints.
func (h *OrderHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
	}
	r.Get("/orders/{orderID}", h.getAdminOrder)
}

// VendorRoutes registers the /vendor endpoints.
func (h *OrderHandlers) VendorRoutes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleVendor))
	}
	r.Get("/orders", h.listVendorOrders)
}

// throttleCheckout runs ahead of the idempotency middleware so a 429 is never stored as the
// replayed response for a key.
func (h *OrderHandlers) throttleCheckout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		identity, ok := requireIdentity(ctx, w)
		if !ok {
			return
		}
		if allowed, retryAfter := h.limiter.Allow(identity.UID); !allowed {
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeRateLimited, "too many checkout attempts, retry later", http.StatusTooManyRequests).
				WithRetryAfter(retryAfter))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createOrderRequest struct {
	CustomerID      string            `json:"customer_id"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerName    string            `json:"customer_name"`
	CartItems       []cartItemRequest `json:"cart_items"`
	ShippingDetails addressPayload    `json:"shipping_details"`
	TotalAmount     json.Number       `json:"total_amount"`
	PaymentStatus   string            `json:"payment_status"`
}

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type updateStatusRequest struct {
	Status            string  `json:"status"`
	TrackingNumber    *string `json:"tracking_number"`
	Carrier           *string `json:"carrier"`
	EstimatedDelivery *string `json:"estimated_delivery"`
	CustomMessage     *string `json:"custom_message"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := httpx.DecodeJSON(w, r, &req, maxOrderCreateBodySize); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidOrderRequest, "request body must be a valid order JSON object", http.StatusBadRequest))
		return
	}

	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		customerID = strings.TrimSpace(identity.UID)
	}
	if customerID != strings.TrimSpace(identity.UID) && !identity.IsAdmin() {
		httpx.WriteError(ctx, w, httpx.NewError("customer_forbidden", "cannot create orders for another customer", http.StatusForbidden))
		return
	}

	total, err := decimal.NewFromString(strings.TrimSpace(req.TotalAmount.String()))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidOrderRequest, "total_amount must be a decimal number", http.StatusBadRequest))
		return
	}

	lines := make([]domain.CartLine, 0, len(req.CartItems))
	for _, item := range req.CartItems {
		lines = append(lines, domain.CartLine{
			ProductID: item.ProductID,
			Color:     item.Color,
			Size:      item.Size,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.orders.CreateOrder(ctx, services.CreateOrderCommand{
		CustomerID:    customerID,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		CartItems:     lines,
		Shipping:      req.ShippingDetails.toDomain(),
		TotalAmount:   total,
		PaymentStatus: req.PaymentStatus,
		ActorID:       identity.UID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) getCustomerOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidOrderRequest, "order id is required", http.StatusBadRequest))
		return
	}

	view, err := h.orders.GetCustomerOrder(ctx, services.CustomerOrderQuery{
		OrderID:     orderID,
		CustomerID:  identity.UID,
		AnyCustomer: identity.IsAdmin(),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, customerOrderResponse{Order: buildCustomerOrderPayload(view)})
}

func (h *OrderHandlers) updateVendorOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	vendorID := strings.TrimSpace(chi.URLParam(r, "vendorID"))
	if orderID == "" || vendorID == "" {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidOrderRequest, "order id and vendor id are required", http.StatusBadRequest))
		return
	}

	var req updateStatusRequest
	if err := httpx.DecodeJSON(w, r, &req, maxStatusBodySize); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidOrderRequest, "request body must be a valid status JSON object", http.StatusBadRequest))
		return
	}

	var estimated *time.Time
	if req.EstimatedDelivery != nil && strings.TrimSpace(*req.EstimatedDelivery) != "" {
		ts, err := parseEstimatedDelivery(*req.EstimatedDelivery)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidOrderRequest, "estimated_delivery must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest))
			return
		}
		estimated = &ts
	}

	result, err := h.orders.UpdateVendorOrderStatus(ctx, services.UpdateVendorOrderStatusCommand{
		OrderID:           orderID,
		VendorID:          vendorID,
		Status:            req.Status,
		TrackingNumber:    req.TrackingNumber,
		Carrier:           req.Carrier,
		EstimatedDelivery: estimated,
		CustomMessage:     req.CustomMessage,
		ActorID:           identity.UID,
		Authorized:        identity.CanActForVendor(vendorID),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, vendorOrderTransitionResponse{
		OrderID:         result.OrderID,
		VendorOrder:     buildVendorOrderPayload(result.VendorOrder),
		OrderStatus:     string(result.OrderStatus),
		CustomerSummary: result.CustomerSummary,
	})
}

func (h *OrderHandlers) getAdminOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if !identity.IsAdmin() {
		httpx.WriteError(ctx, w, httpx.NewError(auth.CodeInsufficientRole, "admin role required", http.StatusForbidden))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidOrderRequest, "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listVendorOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	vendorID := strings.TrimSpace(identity.VendorID)
	if vendorID == "" {
		httpx.WriteError(ctx, w, httpx.NewError(auth.CodeMissingVendor, "vendor id claim is required", http.StatusForbidden))
		return
	}

	params, err := pagination.FromRequest(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_pagination", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.orders.ListVendorOrders(ctx, services.VendorOrderListFilter{
		VendorID: vendorID,
		Pagination: domain.Pagination{
			PageSize:  params.PageSize,
			PageToken: params.PageToken,
		},
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	resp := vendorOrderListResponse{
		Items:         make([]vendorOrderSummaryPayload, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, item := range page.Items {
		resp.Items = append(resp.Items, vendorOrderSummaryPayload{
			OrderID:         item.OrderID,
			CreatedAt:       formatTime(item.CreatedAt),
			OrderStatus:     string(item.OrderStatus),
			ShippingAddress: buildAddressPayload(item.ShippingAddress),
			VendorOrder:     buildVendorOrderPayload(item.VendorOrder),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError(auth.CodeUnauthenticated, "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func parseEstimatedDelivery(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.ParseInLocation(estimatedDeliveryDate, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse estimated delivery %q: %w", value, err)
	}
	return ts, nil
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID              string               `json:"id"`
	CustomerID      string               `json:"customer_id"`
	CustomerEmail   string               `json:"customer_email,omitempty"`
	CustomerName    string               `json:"customer_name,omitempty"`
	LineItems       []lineItemPayload    `json:"line_items"`
	VendorOrders    []vendorOrderPayload `json:"vendor_orders"`
	ShippingAddress addressPayload       `json:"shipping_address"`
	TotalAmount     json.Number          `json:"total_amount"`
	PlatformFee     json.Number          `json:"platform_fee"`
	Status          string               `json:"status"`
	PaymentStatus   string               `json:"payment_status"`
	CreatedAt       string               `json:"created_at"`
	UpdatedAt       string               `json:"updated_at,omitempty"`
}

type lineItemPayload struct {
	ProductID        string      `json:"product_id"`
	ProductName      string      `json:"product_name"`
	VendorID         string      `json:"vendor_id"`
	Color            string      `json:"color,omitempty"`
	Size             string      `json:"size,omitempty"`
	Quantity         int         `json:"quantity"`
	PriceAtOrderTime json.Number `json:"price_at_order_time"`
}

type vendorOrderPayload struct {
	VendorID              string                 `json:"vendor_id"`
	Products              []lineItemPayload      `json:"products"`
	Subtotal              json.Number            `json:"subtotal"`
	Commission            json.Number            `json:"commission"`
	VendorEarnings        json.Number            `json:"vendor_earnings"`
	Status                string                 `json:"status"`
	CustomerStatusMessage string                 `json:"customer_status_message"`
	StatusHistory         []statusHistoryPayload `json:"status_history"`
	TrackingInfo          *trackingPayload       `json:"tracking_info,omitempty"`
	LastStatusUpdate      string                 `json:"last_status_update"`
}

type statusHistoryPayload struct {
	Status          string `json:"status"`
	UpdatedAt       string `json:"updated_at"`
	UpdatedBy       string `json:"updated_by"`
	CustomerMessage string `json:"customer_message,omitempty"`
}

type trackingPayload struct {
	TrackingNumber    string `json:"tracking_number,omitempty"`
	Carrier           string `json:"carrier,omitempty"`
	EstimatedDelivery string `json:"estimated_delivery,omitempty"`
}

type addressPayload struct {
	FullName   string `json:"full_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

func (a addressPayload) toDomain() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName:   a.FullName,
		Address:    a.Address,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

type vendorOrderTransitionResponse struct {
	OrderID         string             `json:"order_id"`
	VendorOrder     vendorOrderPayload `json:"vendor_order"`
	OrderStatus     string             `json:"order_status"`
	CustomerSummary string             `json:"customer_summary"`
}

type vendorOrderListResponse struct {
	Items         []vendorOrderSummaryPayload `json:"items"`
	NextPageToken string                      `json:"next_page_token,omitempty"`
}

type vendorOrderSummaryPayload struct {
	OrderID         string             `json:"order_id"`
	CreatedAt       string             `json:"created_at"`
	OrderStatus     string             `json:"order_status"`
	ShippingAddress addressPayload     `json:"shipping_address"`
	VendorOrder     vendorOrderPayload `json:"vendor_order"`
}

type customerOrderResponse struct {
	Order customerOrderPayload `json:"order"`
}

type customerOrderPayload struct {
	OrderID            string                  `json:"order_id"`
	Status             string                  `json:"status"`
	StatusSummary      string                  `json:"status_summary"`
	PaymentStatus      string                  `json:"payment_status"`
	TotalAmount        json.Number             `json:"total_amount"`
	ShippingAddress    addressPayload          `json:"shipping_address"`
	CreatedAt          string                  `json:"created_at"`
	Vendors            []customerVendorPayload `json:"vendors"`
	HasShippedItems    bool                    `json:"has_shipped_items"`
	HasDeliveredItems  bool                    `json:"has_delivered_items"`
	AllItemsDelivered  bool                    `json:"all_items_delivered"`
	LatestStatusUpdate string                  `json:"latest_status_update,omitempty"`
}

type customerVendorPayload struct {
	VendorName      string                   `json:"vendor_name"`
	Status          string                   `json:"status"`
	CustomerMessage string                   `json:"customer_message"`
	LastUpdate      string                   `json:"last_update,omitempty"`
	Tracking        *trackingPayload         `json:"tracking,omitempty"`
	Products        []customerProductPayload `json:"products"`
}

type customerProductPayload struct {
	ProductID   string      `json:"product_id"`
	ProductName string      `json:"product_name"`
	Color       string      `json:"color,omitempty"`
	Size        string      `json:"size,omitempty"`
	Quantity    int         `json:"quantity"`
	Price       json.Number `json:"price"`
}

func money(amount decimal.Decimal) json.Number {
	return json.Number(domain.FormatMoney(amount))
}

// unitPrice keeps the precision captured at checkout; only derived totals are rounded.
func unitPrice(amount decimal.Decimal) json.Number {
	return json.Number(amount.String())
}

func buildOrderPayload(order domain.Order) orderPayload {
	payload := orderPayload{
		ID:              order.ID,
		CustomerID:      order.CustomerID,
		CustomerEmail:   order.CustomerEmail,
		CustomerName:    order.CustomerName,
		LineItems:       buildLineItemPayloads(order.LineItems),
		VendorOrders:    make([]vendorOrderPayload, 0, len(order.VendorOrders)),
		ShippingAddress: buildAddressPayload(order.ShippingAddress),
		TotalAmount:     money(order.TotalAmount),
		PlatformFee:     money(order.PlatformFee),
		Status:          string(order.Status),
		PaymentStatus:   order.PaymentStatus,
		CreatedAt:       formatTime(order.CreatedAt),
		UpdatedAt:       formatTime(order.UpdatedAt),
	}
	for _, vendorID := range order.VendorIDs() {
		payload.VendorOrders = append(payload.VendorOrders, buildVendorOrderPayload(order.VendorOrders[vendorID]))
	}
	return payload
}

func buildLineItemPayloads(items []domain.LineItem) []lineItemPayload {
	out := make([]lineItemPayload, 0, len(items))
	for _, item := range items {
		out = append(out, lineItemPayload{
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			VendorID:         item.VendorID,
			Color:            item.Color,
			Size:             item.Size,
			Quantity:         item.Quantity,
			PriceAtOrderTime: unitPrice(item.PriceAtOrderTime),
		})
	}
	return out
}

func buildVendorOrderPayload(vo domain.VendorOrder) vendorOrderPayload {
	payload := vendorOrderPayload{
		VendorID:              vo.VendorID,
		Products:              buildLineItemPayloads(vo.Products),
		Subtotal:              money(vo.Subtotal),
		Commission:            money(vo.Commission),
		VendorEarnings:        money(vo.VendorEarnings),
		Status:                string(vo.Status),
		CustomerStatusMessage: vo.CustomerStatusMessage,
		StatusHistory:         make([]statusHistoryPayload, 0, len(vo.StatusHistory)),
		TrackingInfo:          buildTrackingPayload(vo.TrackingInfo),
		LastStatusUpdate:      formatTime(vo.LastStatusUpdate),
	}
	for _, entry := range vo.StatusHistory {
		payload.StatusHistory = append(payload.StatusHistory, statusHistoryPayload{
			Status:          string(entry.Status),
			UpdatedAt:       formatTime(entry.UpdatedAt),
			UpdatedBy:       entry.UpdatedBy,
			CustomerMessage: entry.CustomerMessage,
		})
	}
	return payload
}

func buildTrackingPayload(info *domain.TrackingInfo) *trackingPayload {
	if info == nil {
		return nil
	}
	payload := &trackingPayload{
		TrackingNumber: info.TrackingNumber,
		Carrier:        info.Carrier,
	}
	if info.EstimatedDelivery != nil {
		payload.EstimatedDelivery = formatTime(*info.EstimatedDelivery)
	}
	return payload
}

func buildAddressPayload(addr domain.ShippingAddress) addressPayload {
	return addressPayload{
		FullName:   addr.FullName,
		Address:    addr.Address,
		City:       addr.City,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Phone:      addr.Phone,
	}
}

func buildCustomerOrderPayload(view services.CustomerOrderView) customerOrderPayload {
	payload := customerOrderPayload{
		OrderID:            view.OrderID,
		Status:             string(view.Status),
		StatusSummary:      view.StatusSummary,
		PaymentStatus:      view.PaymentStatus,
		TotalAmount:        money(view.TotalAmount),
		ShippingAddress:    buildAddressPayload(view.ShippingAddress),
		CreatedAt:          formatTime(view.CreatedAt),
		Vendors:            make([]customerVendorPayload, 0, len(view.Vendors)),
		HasShippedItems:    view.HasShippedItems,
		HasDeliveredItems:  view.HasDeliveredItems,
		AllItemsDelivered:  view.AllItemsDelivered,
		LatestStatusUpdate: formatTime(view.LatestStatusUpdate),
	}
	for _, vendor := range view.Vendors {
		entry := customerVendorPayload{
			VendorName:      vendor.VendorName,
			Status:          string(vendor.Status),
			CustomerMessage: vendor.CustomerMessage,
			LastUpdate:      formatTime(vendor.LastUpdate),
			Tracking:        buildTrackingPayload(vendor.Tracking),
			Products:        make([]customerProductPayload, 0, len(vendor.Products)),
		}
		for _, product := range vendor.Products {
			entry.Products = append(entry.Products, customerProductPayload{
				ProductID:   product.ProductID,
				ProductName: product.ProductName,
				Color:       product.Color,
				Size:        product.Size,
				Quantity:    product.Quantity,
				Price:       unitPrice(product.Price),
			})
		}
		payload.Vendors = append(payload.Vendors, entry)
	}
	return payload
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	orderID, vendorID := chi.URLParamFromCtx(ctx, "orderID"), chi.URLParamFromCtx(ctx, "vendorID")
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidStatus, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidOrderRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeVendorOrderForbidden, "caller cannot update this vendor order", http.StatusForbidden).
			WithTarget(orderID, vendorID))
	case errors.Is(err, services.ErrVendorOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeVendorOrderNotFound, "vendor order not found", http.StatusNotFound).
			WithTarget(orderID, vendorID))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOrderNotFound, "order not found", http.StatusNotFound).
			WithTarget(orderID, ""))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOrderWriteConflict, "order is being updated concurrently, retry later", http.StatusServiceUnavailable).
			WithTarget(orderID, vendorID).
			WithRetryAfter(conflictRetryAfter))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOrderStoreUnavailable, "order store unavailable", http.StatusServiceUnavailable))
	default:
		requestctx.Logger(ctx).Error("order request failed", zap.Error(err), zap.String("order_id", orderID))
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}
