package store

import (
	"context"

	"github.com/Nattakit28/shop-system-sub000/internal/models"
)

// GetSettings retrieves all settings rows as a key-value map
func (s *Store) GetSettings(ctx context.Context) (map[string]string, error) {
	rows := []models.Setting{}
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM settings"); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// UpsertSetting writes a setting value
func (s *Store) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	return err
}

// SeedSetting writes a setting only when the key is absent
func (s *Store) SeedSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING",
		key, value)
	return err
}
