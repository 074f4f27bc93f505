package service

import (
	"context"
	"errors"
	"time"

	"github.com/Nattakit28/shop-system-sub000/internal/broker"
	"github.com/Nattakit28/shop-system-sub000/internal/models"
	"github.com/Nattakit28/shop-system-sub000/internal/redisclient"
	"github.com/Nattakit28/shop-system-sub000/internal/store"
	"github.com/Nattakit28/shop-system-sub000/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService handles payment proof recording, review and PromptPay QR
// generation
type PaymentService struct {
	store          *store.Store
	settings       *SettingsService
	cache          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewPaymentService creates a new payment service. cache may be nil; QR
// payloads are then generated on every request.
func NewPaymentService(store *store.Store, settings *SettingsService, cache *redisclient.Client, eventPublisher *broker.EventPublisher) *PaymentService {
	return &PaymentService{
		store:          store,
		settings:       settings,
		cache:          cache,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// SubmitProofRequest carries a payment proof submission. SlipPath is the
// stored reference of the uploaded slip, empty when none was attached.
type SubmitProofRequest struct {
	OrderID         int64
	SlipPath        string
	PaymentDateTime time.Time
	Notes           string
}

// SubmitProofResult is returned after recording a proof
type SubmitProofResult struct {
	OrderID     int64  `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
}

// SubmitProof records a payment proof and advances the order to paid, in one
// transaction. The recorded amount is the order's total, never caller input.
// The active-proof unique index is the authoritative duplicate guard; the
// pre-check only produces the friendlier error.
func (ps *PaymentService) SubmitProof(ctx context.Context, req *SubmitProofRequest) (*SubmitProofResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.SubmitProof")
	defer span.End()

	if req.OrderID <= 0 {
		return nil, validationErr("order id is required")
	}
	if req.PaymentDateTime.IsZero() {
		return nil, validationErr("paymentDateTime is required")
	}

	tx, err := ps.store.BeginTx(ctx)
	if err != nil {
		return nil, persistenceErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	order, err := ps.store.GetOrderForUpdateTx(ctx, tx, req.OrderID)
	if err != nil {
		return nil, persistenceErr("failed to load order", err)
	}
	if order == nil {
		return nil, notFoundErr("order %d not found", req.OrderID)
	}

	existing, err := ps.store.GetActivePaymentTx(ctx, tx, req.OrderID)
	if err != nil {
		return nil, persistenceErr("failed to check existing payment", err)
	}
	if existing != nil {
		return nil, alreadySubmittedErr(req.OrderID)
	}

	payment := &models.Payment{
		OrderID:         order.ID,
		PaymentMethod:   "promptpay",
		Amount:          order.TotalAmount,
		PaymentSlip:     req.SlipPath,
		PaymentDateTime: req.PaymentDateTime,
		Notes:           req.Notes,
		Status:          models.PaymentStatusPending,
	}

	if err := ps.store.InsertPaymentTx(ctx, tx, payment); err != nil {
		if errors.Is(err, store.ErrDuplicatePayment) {
			return nil, alreadySubmittedErr(req.OrderID)
		}
		return nil, persistenceErr("failed to create payment", err)
	}

	if err := ps.store.UpdateOrderStatusTx(ctx, tx, order.ID, models.OrderStatusPaid); err != nil {
		return nil, persistenceErr("failed to update order status", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceErr("failed to commit payment", err)
	}

	util.PaymentsSubmittedTotal.Inc()
	ps.logger.Info("Payment proof submitted",
		zap.Int64("order_id", order.ID),
		zap.Int64("payment_id", payment.ID),
		zap.String("amount", payment.Amount.StringFixed(2)))

	ps.publishSubmitted(ctx, order, payment)

	return &SubmitProofResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	}, nil
}

func (ps *PaymentService) publishSubmitted(ctx context.Context, order *models.Order, payment *models.Payment) {
	if ps.eventPublisher == nil {
		return
	}
	event := &models.PaymentSubmittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentSubmitted,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		PaymentID:   payment.ID,
		Amount:      payment.Amount.StringFixed(2),
	}
	if err := ps.eventPublisher.PublishPaymentSubmitted(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentSubmitted event", zap.Error(err))
	}
}

// Review verifies or rejects the pending proof for an order. Verification
// confirms the order; rejection returns it to pending so a new proof can be
// submitted.
func (ps *PaymentService) Review(ctx context.Context, orderID int64, approve bool) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.Review")
	defer span.End()

	tx, err := ps.store.BeginTx(ctx)
	if err != nil {
		return persistenceErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	order, err := ps.store.GetOrderForUpdateTx(ctx, tx, orderID)
	if err != nil {
		return persistenceErr("failed to load order", err)
	}
	if order == nil {
		return notFoundErr("order %d not found", orderID)
	}

	payment, err := ps.store.GetActivePaymentTx(ctx, tx, orderID)
	if err != nil {
		return persistenceErr("failed to load payment", err)
	}
	if payment == nil {
		return notFoundErr("no payment proof for order %d", orderID)
	}
	if payment.Status != models.PaymentStatusPending {
		return invalidStatusErr("payment for order %d already reviewed", orderID)
	}

	paymentStatus := models.PaymentStatusRejected
	orderStatus := models.OrderStatusPending
	if approve {
		paymentStatus = models.PaymentStatusVerified
		orderStatus = models.OrderStatusConfirmed
	}

	if err := ps.store.UpdatePaymentStatusTx(ctx, tx, payment.ID, paymentStatus); err != nil {
		return persistenceErr("failed to update payment status", err)
	}
	if err := ps.store.UpdateOrderStatusTx(ctx, tx, orderID, orderStatus); err != nil {
		return persistenceErr("failed to update order status", err)
	}

	if err := tx.Commit(); err != nil {
		return persistenceErr("failed to commit review", err)
	}

	if approve {
		util.PaymentsVerifiedTotal.Inc()
	} else {
		util.PaymentsRejectedTotal.Inc()
	}
	ps.logger.Info("Payment reviewed",
		zap.Int64("order_id", orderID),
		zap.Int64("payment_id", payment.ID),
		zap.String("status", paymentStatus))

	ps.publishReviewed(ctx, orderID, payment.ID, paymentStatus)
	return nil
}

func (ps *PaymentService) publishReviewed(ctx context.Context, orderID, paymentID int64, status string) {
	if ps.eventPublisher == nil {
		return
	}
	event := &models.PaymentReviewedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentReviewed,
			Timestamp: time.Now(),
		},
		OrderID:   orderID,
		PaymentID: paymentID,
		Status:    status,
	}
	if err := ps.eventPublisher.PublishPaymentReviewed(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentReviewed event", zap.Error(err))
	}
}
