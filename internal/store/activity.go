package store

import (
	"context"

	"github.com/Nattakit28/shop-system-sub000/internal/models"

	"github.com/jmoiron/sqlx"
)

// InsertOrderActivityTx records an activity feed entry inside a transaction
func (s *Store) InsertOrderActivityTx(ctx context.Context, tx *sqlx.Tx, a *models.OrderActivity) error {
	return tx.GetContext(ctx, &a.ID, `
		INSERT INTO order_activity (order_id, event_type, detail)
		VALUES ($1, $2, $3)
		RETURNING id`,
		a.OrderID, a.EventType, a.Detail)
}

// ListOrderActivity retrieves the most recent activity entries
func (s *Store) ListOrderActivity(ctx context.Context, limit int) ([]models.OrderActivity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries := []models.OrderActivity{}
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM order_activity ORDER BY created_at DESC, id DESC LIMIT $1", limit)
	return entries, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessedTx marks an event as processed inside a transaction.
// Returns false when the event was already marked, so the caller can skip
// its side effects without committing anything.
func (s *Store) MarkEventProcessedTx(ctx context.Context, tx *sqlx.Tx, eventID, eventType string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
