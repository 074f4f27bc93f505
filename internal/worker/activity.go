package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Nattakit28/shop-system-sub000/internal/broker"
	"github.com/Nattakit28/shop-system-sub000/internal/models"
	"github.com/Nattakit28/shop-system-sub000/internal/store"
	"github.com/Nattakit28/shop-system-sub000/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ActivityWorker consumes order events into the order_activity table that
// feeds the admin activity feed. Each event is recorded at most once via the
// processed_events table.
type ActivityWorker struct {
	consumer *broker.Consumer
	store    *store.Store
	logger   *zap.Logger
}

// NewActivityWorker creates a new activity worker
func NewActivityWorker(consumer *broker.Consumer, store *store.Store) *ActivityWorker {
	return &ActivityWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *ActivityWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting activity worker")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *ActivityWorker) Stop() error {
	w.logger.Info("Stopping activity worker")
	return w.consumer.Close()
}

func (w *ActivityWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		// Malformed payloads are dropped, not retried forever.
		w.logger.Error("Dropping malformed event", zap.Error(err))
		return nil
	}

	processed, err := w.store.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	orderID, detail, err := describe(base.EventType, msg.Value)
	if err != nil {
		w.logger.Error("Dropping undecodable event",
			zap.String("event_type", base.EventType),
			zap.Error(err))
		return nil
	}

	// The feed entry and the processed marker commit together, so a crash
	// between them cannot duplicate the entry on redelivery.
	tx, err := w.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	marked, err := w.store.MarkEventProcessedTx(ctx, tx, base.EventID, base.EventType)
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	if !marked {
		return nil
	}

	activity := &models.OrderActivity{
		OrderID:   orderID,
		EventType: base.EventType,
		Detail:    detail,
	}
	if err := w.store.InsertOrderActivityTx(ctx, tx, activity); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	return tx.Commit()
}

// describe turns an event payload into a one-line feed entry
func describe(eventType string, raw []byte) (int64, string, error) {
	switch eventType {
	case models.EventTypeOrderPlaced:
		var e models.OrderPlacedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return 0, "", err
		}
		return e.OrderID, fmt.Sprintf("order %s placed, total %s, %d item(s)", e.OrderNumber, e.TotalAmount, len(e.Items)), nil

	case models.EventTypeOrderStatusChanged:
		var e models.OrderStatusChangedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return 0, "", err
		}
		return e.OrderID, fmt.Sprintf("status changed from %s to %s", e.OldStatus, e.NewStatus), nil

	case models.EventTypeOrderCancelled:
		var e models.OrderCancelledEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return 0, "", err
		}
		return e.OrderID, fmt.Sprintf("order cancelled: %s", e.Reason), nil

	case models.EventTypePaymentSubmitted:
		var e models.PaymentSubmittedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return 0, "", err
		}
		return e.OrderID, fmt.Sprintf("payment proof submitted for %s, amount %s", e.OrderNumber, e.Amount), nil

	case models.EventTypePaymentReviewed:
		var e models.PaymentReviewedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return 0, "", err
		}
		return e.OrderID, fmt.Sprintf("payment %s", e.Status), nil

	default:
		return 0, "", fmt.Errorf("unknown event type %q", eventType)
	}
}
