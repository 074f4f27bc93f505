package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Nattakit28/shop-system-sub000/internal/models"

	"github.com/jmoiron/sqlx"
)

// InsertOrderTx inserts the order row inside the placement transaction
func (s *Store) InsertOrderTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	query := `
		INSERT INTO orders (order_number, customer_name, customer_phone, customer_address,
			customer_email, notes, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return tx.GetContext(ctx, order, query,
		order.OrderNumber, order.CustomerName, order.CustomerPhone, order.CustomerAddress,
		order.CustomerEmail, order.Notes, order.TotalAmount, order.Status)
}

// InsertOrderItemTx inserts a line item inside the placement transaction
func (s *Store) InsertOrderItemTx(ctx context.Context, tx *sqlx.Tx, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return tx.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.Quantity, item.Price)
}

// DecrementStockTx applies the conditional stock decrement. It returns false
// when no row matched, meaning stock changed concurrently since the advisory
// read and the whole order must be rolled back.
func (s *Store) DecrementStockTx(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		WHERE id = $2 AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RestoreStockTx adds quantity back to a product during cancellation
func (s *Store) RestoreStockTx(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		WHERE id = $2`,
		quantity, productID)
	return err
}

// GetOrderByID retrieves an order, nil if absent
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderForUpdateTx locks the order row for the rest of the transaction
func (s *Store) GetOrderForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Order, error) {
	var order models.Order
	err := tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders retrieves orders, optionally filtered by status, newest first
func (s *Store) ListOrders(ctx context.Context, status string, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	orders := []models.Order{}
	if status != "" {
		err := s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2", status, limit)
		return orders, err
	}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1", limit)
	return orders, err
}

// GetOrderItemsByOrderID retrieves all line items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetOrderItemsTx retrieves line items inside a transaction
func (s *Store) GetOrderItemsTx(ctx context.Context, tx *sqlx.Tx, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := tx.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// UpdateOrderStatus updates order status outside a transaction
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// UpdateOrderStatusTx updates order status inside a transaction
func (s *Store) UpdateOrderStatusTx(ctx context.Context, tx *sqlx.Tx, orderID int64, status string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// UpdateOrderStatusNotesTx updates status and replaces notes in one statement,
// used by cancellation to append the timestamped reason.
func (s *Store) UpdateOrderStatusNotesTx(ctx context.Context, tx *sqlx.Tx, orderID int64, status, notes string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, notes = $2, updated_at = NOW() WHERE id = $3",
		status, notes, orderID)
	return err
}
