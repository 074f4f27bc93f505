package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Nattakit28/shop-system-sub000/internal/models"
)

// GetAdminByUsername retrieves an admin, nil if absent
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	err := s.db.GetContext(ctx, &admin, "SELECT * FROM admins WHERE username = $1", username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// SeedAdmin creates the default admin when the username is not taken
func (s *Store) SeedAdmin(ctx context.Context, username, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO admins (username, password_hash) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING",
		username, passwordHash)
	return err
}
