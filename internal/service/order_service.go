package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Nattakit28/shop-system-sub000/internal/broker"
	"github.com/Nattakit28/shop-system-sub000/internal/models"
	"github.com/Nattakit28/shop-system-sub000/internal/store"
	"github.com/Nattakit28/shop-system-sub000/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9]{9,10}$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// OrderService handles order placement and lifecycle
type OrderService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store *store.Store, eventPublisher *broker.EventPublisher) *OrderService {
	return &OrderService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// PlaceOrderRequest represents a checkout request
type PlaceOrderRequest struct {
	CustomerName    string             `json:"customerName"`
	CustomerPhone   string             `json:"customerPhone"`
	CustomerAddress string             `json:"customerAddress,omitempty"`
	CustomerEmail   string             `json:"customerEmail,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	Items           []OrderItemRequest `json:"items"`
}

// OrderItemRequest represents an item in a checkout request. Price, when
// present, overrides the catalog price so a cart keeps the price it
// displayed.
type OrderItemRequest struct {
	ProductID int64            `json:"productId"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

// PlaceOrderResult represents the response after placing an order
type PlaceOrderResult struct {
	OrderID     int64           `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ItemCount   int             `json:"itemCount"`
}

// OrderDetail is an order with its items and latest payment
type OrderDetail struct {
	Order   *models.Order      `json:"order"`
	Items   []models.OrderItem `json:"items"`
	Payment *models.Payment    `json:"payment,omitempty"`
}

func (r *PlaceOrderRequest) validate() error {
	if strings.TrimSpace(r.CustomerName) == "" {
		return validationErr("customer name is required")
	}

	phone := normalizePhone(r.CustomerPhone)
	if phone == "" {
		return validationErr("customer phone is required")
	}
	if !phonePattern.MatchString(phone) {
		return validationErr("customer phone must be 9-10 digits")
	}

	if r.CustomerEmail != "" && !emailPattern.MatchString(r.CustomerEmail) {
		return validationErr("customer email is not a valid address")
	}

	if len(r.Items) == 0 {
		return validationErr("order must contain at least one item")
	}
	for i, item := range r.Items {
		if item.ProductID <= 0 {
			return validationErr("item %d: productId is required", i)
		}
		if item.Quantity <= 0 {
			return validationErr("item %d: quantity must be positive", i)
		}
		if item.Price != nil && !item.Price.IsPositive() {
			return validationErr("item %d: price override must be positive", i)
		}
	}
	return nil
}

func normalizePhone(phone string) string {
	phone = strings.ReplaceAll(phone, "-", "")
	return strings.ReplaceAll(phone, " ", "")
}

// newOrderNumber builds a collision-resistant, URL-safe order number from a
// timestamp and a random suffix.
func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102150405"), suffix)
}

// resolvedItem is one order line after catalog lookup, carrying the price
// that will be snapshotted onto the order item.
type resolvedItem struct {
	productID int64
	name      string
	quantity  int
	price     decimal.Decimal
}

// orderTotal computes the order total as the exact decimal sum of quantity
// times price over the lines.
func orderTotal(items []resolvedItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.price.Mul(decimal.NewFromInt(int64(it.quantity))))
	}
	return total
}

// PlaceOrder validates the request, re-prices it against the catalog and
// atomically reserves stock while persisting the order and its items. Any
// failure rolls the whole attempt back; there is no partial state and no
// silent retry.
func (s *OrderService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderPlacementLatency.Observe(time.Since(start).Seconds())
	}()

	if err := req.validate(); err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, persistenceErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	resolved := make([]resolvedItem, 0, len(req.Items))

	for _, item := range req.Items {
		product, err := s.store.GetActiveProductTx(ctx, tx, item.ProductID)
		if err != nil {
			util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
			return nil, persistenceErr("failed to load product", err)
		}
		if product == nil {
			util.OrdersFailedTotal.WithLabelValues("product_not_found").Inc()
			return nil, notFoundErr("product %d not found or inactive", item.ProductID)
		}

		// Advisory read only. The conditional decrement below is the
		// authoritative guard; this check exists to fail fast with a
		// named-product error.
		if product.StockQuantity < item.Quantity {
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, insufficientStockErr(product.Name, product.StockQuantity, item.Quantity)
		}

		price := product.Price
		if item.Price != nil {
			price = *item.Price
		}

		resolved = append(resolved, resolvedItem{
			productID: product.ID,
			name:      product.Name,
			quantity:  item.Quantity,
			price:     price,
		})
	}

	total := orderTotal(resolved)

	order := &models.Order{
		OrderNumber:     newOrderNumber(),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   normalizePhone(req.CustomerPhone),
		CustomerAddress: req.CustomerAddress,
		CustomerEmail:   req.CustomerEmail,
		Notes:           req.Notes,
		TotalAmount:     total,
		Status:          models.OrderStatusPending,
	}

	if err := s.store.InsertOrderTx(ctx, tx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, persistenceErr("failed to create order", err)
	}

	eventItems := make([]models.OrderItemData, 0, len(resolved))
	for _, ri := range resolved {
		orderItem := &models.OrderItem{
			OrderID:   order.ID,
			ProductID: ri.productID,
			Quantity:  ri.quantity,
			Price:     ri.price,
		}
		if err := s.store.InsertOrderItemTx(ctx, tx, orderItem); err != nil {
			util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
			return nil, persistenceErr("failed to create order item", err)
		}

		// Stock may have moved between the advisory read and here, so the
		// decrement re-checks at the moment of mutation.
		ok, err := s.store.DecrementStockTx(ctx, tx, ri.productID, ri.quantity)
		if err != nil {
			util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
			return nil, persistenceErr("failed to decrement stock", err)
		}
		if !ok {
			util.StockConflictsTotal.Inc()
			util.OrdersFailedTotal.WithLabelValues("stock_conflict").Inc()
			return nil, conflictErr("stock update failed for %q, please retry", ri.name)
		}

		eventItems = append(eventItems, models.OrderItemData{
			ProductID: ri.productID,
			Quantity:  ri.quantity,
			Price:     ri.price.StringFixed(2),
		})
	}

	if err := tx.Commit(); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, persistenceErr("failed to commit order", err)
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total_amount", total.StringFixed(2)))

	s.publishOrderPlaced(ctx, order, eventItems)

	return &PlaceOrderResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: total,
		ItemCount:   len(resolved),
	}, nil
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, order *models.Order, items []models.OrderItemData) {
	if s.eventPublisher == nil {
		return
	}
	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount.StringFixed(2),
		Items:       items,
	}
	if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

// GetOrder retrieves an order with its items and latest payment
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderDetail, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, persistenceErr("failed to load order", err)
	}
	if order == nil {
		return nil, notFoundErr("order %d not found", orderID)
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, persistenceErr("failed to load order items", err)
	}

	payment, err := s.store.GetLatestPaymentByOrderID(ctx, orderID)
	if err != nil {
		return nil, persistenceErr("failed to load payment", err)
	}

	return &OrderDetail{Order: order, Items: items, Payment: payment}, nil
}

// ListOrders retrieves orders for the admin panel, optionally by status
func (s *OrderService) ListOrders(ctx context.Context, status string, limit int) ([]models.Order, error) {
	if status != "" && !models.IsValidOrderStatus(status) {
		return nil, invalidStatusErr("unknown order status %q", status)
	}
	orders, err := s.store.ListOrders(ctx, status, limit)
	if err != nil {
		return nil, persistenceErr("failed to list orders", err)
	}
	return orders, nil
}

// UpdateStatus moves an order to the target status. Enum membership is
// enforced; adjacency is not, except that cancellation is only allowed from
// pending or paid and runs the compensating restock.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status, reason string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !models.IsValidOrderStatus(status) {
		return invalidStatusErr("unknown order status %q", status)
	}

	if status == models.OrderStatusCancelled {
		return s.cancelOrder(ctx, orderID, reason)
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return persistenceErr("failed to load order", err)
	}
	if order == nil {
		return notFoundErr("order %d not found", orderID)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return persistenceErr("failed to update order status", err)
	}

	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("old_status", order.Status),
		zap.String("new_status", status))

	s.publishStatusChanged(ctx, orderID, order.Status, status)
	return nil
}

func (s *OrderService) publishStatusChanged(ctx context.Context, orderID int64, oldStatus, newStatus string) {
	if s.eventPublisher == nil {
		return
	}
	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}
}

// cancelOrder cancels an order and restores exactly the stock its items
// decremented, all in one transaction. A failed restore aborts the whole
// cancellation.
func (s *OrderService) cancelOrder(ctx context.Context, orderID int64, reason string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.cancelOrder")
	defer span.End()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return persistenceErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	order, err := s.store.GetOrderForUpdateTx(ctx, tx, orderID)
	if err != nil {
		return persistenceErr("failed to load order", err)
	}
	if order == nil {
		return notFoundErr("order %d not found", orderID)
	}
	if !models.CanCancel(order.Status) {
		return invalidStatusErr("order %d cannot be cancelled from status %q", orderID, order.Status)
	}

	items, err := s.store.GetOrderItemsTx(ctx, tx, orderID)
	if err != nil {
		return persistenceErr("failed to load order items", err)
	}

	for _, item := range items {
		if err := s.store.RestoreStockTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return persistenceErr("failed to restore stock", err)
		}
	}

	if reason == "" {
		reason = "cancelled"
	}
	notes := order.Notes
	if notes != "" {
		notes += "\n"
	}
	notes += fmt.Sprintf("[%s] cancelled: %s", time.Now().Format(time.RFC3339), reason)

	if err := s.store.UpdateOrderStatusNotesTx(ctx, tx, orderID, models.OrderStatusCancelled, notes); err != nil {
		return persistenceErr("failed to update order status", err)
	}

	if err := tx.Commit(); err != nil {
		return persistenceErr("failed to commit cancellation", err)
	}

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled",
		zap.Int64("order_id", orderID),
		zap.Int("items_restocked", len(items)))

	s.publishCancelled(ctx, orderID, reason)
	return nil
}

func (s *OrderService) publishCancelled(ctx context.Context, orderID int64, reason string) {
	if s.eventPublisher == nil {
		return
	}
	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		Reason:  reason,
	}
	if err := s.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}
}
