package store

import (
	"context"
	"database/sql"
	"fmt"

	"gadget-hub/internal/models"

	"github.com/google/uuid"
)

// GetImportsByUser retrieves all import records for a user
func (s *Store) GetImportsByUser(ctx context.Context, userID string) ([]models.ImportRecord, error) {
	var records []models.ImportRecord
	err := s.db.SelectContext(ctx, &records,
		"SELECT * FROM import_records WHERE user_id = $1 ORDER BY updated_at DESC", userID)
	return records, err
}

// RemoveImportTx deletes a user's import record and re-credits the held
// quantity to the listing's available pool in one transaction. Either both
// sides of the accounting move commit or neither does. Returns the
// released quantity. The re-credit is a no-op when the listing itself is
// already gone.
func (s *Store) RemoveImportTx(ctx context.Context, listingID, userID string) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var released int
	err = tx.GetContext(ctx, &released,
		"DELETE FROM import_records WHERE listing_id = $1 AND user_id = $2 RETURNING imported_quantity",
		listingID, userID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("import record for listing %s: %w", listingID, ErrNotFound)
	}
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE listings SET available_quantity = available_quantity + $1, updated_at = NOW() WHERE id = $2",
		released, listingID)
	if err != nil {
		return 0, fmt.Errorf("failed to re-credit released stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return released, nil
}

// RefreshImportSnapshots rewrites the denormalized listing fields on every
// import record of a listing. Run by the event worker after listing edits.
func (s *Store) RefreshImportSnapshots(ctx context.Context, listingID string) error {
	query := `
		UPDATE import_records ir
		SET name = l.name, image = l.image, price = l.price,
		    origin_country = l.origin_country, rating = l.rating,
		    available_quantity = l.available_quantity, updated_at = NOW()
		FROM listings l
		WHERE l.id = ir.listing_id AND ir.listing_id = $1`

	_, err := s.db.ExecContext(ctx, query, listingID)
	return err
}

// CreateUser creates a new user account
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()

	query := `
		INSERT INTO users (id, email, display_name, photo_url, password_hash, provider)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return s.db.QueryRowxContext(ctx, query,
		user.ID, user.Email, user.DisplayName, user.PhotoURL, user.PasswordHash, user.Provider,
	).Scan(&user.CreatedAt)
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserProfile rewrites the mutable profile fields of a user.
func (s *Store) UpdateUserProfile(ctx context.Context, user *models.User) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET display_name = $1, photo_url = $2 WHERE id = $3",
		user.DisplayName, user.PhotoURL, user.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
