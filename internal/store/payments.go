package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Nattakit28/shop-system-sub000/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicatePayment is returned when an insert hits the active-proof
// unique index, i.e. the order already has a non-rejected payment.
var ErrDuplicatePayment = errors.New("active payment already exists for order")

// InsertPaymentTx inserts a payment row inside a transaction. The partial
// unique index on (order_id) is the authoritative duplicate guard.
func (s *Store) InsertPaymentTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, payment_method, amount, payment_slip, payment_date_time, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := tx.GetContext(ctx, payment, query,
		payment.OrderID, payment.PaymentMethod, payment.Amount, payment.PaymentSlip,
		payment.PaymentDateTime, payment.Notes, payment.Status)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicatePayment
	}
	return err
}

// GetActivePaymentTx retrieves the non-rejected payment for an order inside
// a transaction, nil if none.
func (s *Store) GetActivePaymentTx(ctx context.Context, tx *sqlx.Tx, orderID int64) (*models.Payment, error) {
	var payment models.Payment
	err := tx.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE order_id = $1 AND status <> $2 ORDER BY created_at DESC LIMIT 1",
		orderID, models.PaymentStatusRejected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetLatestPaymentByOrderID retrieves the most recent payment for an order,
// nil if none. Latest by created_at is the effective record.
func (s *Store) GetLatestPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1", orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdatePaymentStatusTx updates a payment's status inside a transaction
func (s *Store) UpdatePaymentStatusTx(ctx context.Context, tx *sqlx.Tx, paymentID int64, status string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2",
		status, paymentID)
	return err
}
