package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gadget-hub/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrInsufficientStock is returned when an import requests more units
// than the listing's available pool holds at processing time.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrNotFound is returned when an identifier does not resolve.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateListing inserts a new listing and assigns its identifier.
func (s *Store) CreateListing(ctx context.Context, listing *models.ProductListing) error {
	listing.ID = uuid.New().String()

	query := `
		INSERT INTO listings (id, name, image, price, origin_country, rating, available_quantity, user_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		listing.ID, listing.Name, listing.Image, listing.Price,
		listing.OriginCountry, listing.Rating, listing.AvailableQuantity, listing.UserEmail,
	).Scan(&listing.CreatedAt, &listing.UpdatedAt)
}

// GetListingByID retrieves a listing by ID
func (s *Store) GetListingByID(ctx context.Context, id string) (*models.ProductListing, error) {
	var listing models.ProductListing
	err := s.db.GetContext(ctx, &listing, "SELECT * FROM listings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetListings retrieves all listings
func (s *Store) GetListings(ctx context.Context) ([]models.ProductListing, error) {
	var listings []models.ProductListing
	err := s.db.SelectContext(ctx, &listings, "SELECT * FROM listings ORDER BY created_at DESC")
	return listings, err
}

// GetListingsByOwner retrieves the listings exported by a user
func (s *Store) GetListingsByOwner(ctx context.Context, email string) ([]models.ProductListing, error) {
	var listings []models.ProductListing
	err := s.db.SelectContext(ctx, &listings,
		"SELECT * FROM listings WHERE user_email = $1 ORDER BY created_at DESC", email)
	return listings, err
}

// UpdateListing replaces all editable fields and returns the stored row.
// Callers adopt the returned record verbatim.
func (s *Store) UpdateListing(ctx context.Context, listing *models.ProductListing) (*models.ProductListing, error) {
	query := `
		UPDATE listings
		SET name = $1, image = $2, price = $3, origin_country = $4, rating = $5,
		    available_quantity = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING *`

	var updated models.ProductListing
	err := s.db.GetContext(ctx, &updated, query,
		listing.Name, listing.Image, listing.Price, listing.OriginCountry,
		listing.Rating, listing.AvailableQuantity, listing.ID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("listing %s: %w", listing.ID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteListing removes a listing
func (s *Store) DeleteListing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM listings WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	return nil
}

// ImportQuantityTx transfers quantity from a listing's available pool into
// the user's import record within a transaction (FOR UPDATE lock). The
// returned counters are the post-mutation values; the listing row is the
// sole arbiter of the accounting invariant.
func (s *Store) ImportQuantityTx(ctx context.Context, listingID, userID string, quantity int) (*models.ImportResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var listing models.ProductListing
	err = tx.GetContext(ctx, &listing,
		"SELECT * FROM listings WHERE id = $1 FOR UPDATE", listingID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock listing: %w", err)
	}

	if listing.AvailableQuantity < quantity {
		return nil, fmt.Errorf("%w: available=%d, requested=%d",
			ErrInsufficientStock, listing.AvailableQuantity, quantity)
	}

	newAvailable := listing.AvailableQuantity - quantity

	_, err = tx.ExecContext(ctx,
		"UPDATE listings SET available_quantity = $1, updated_at = NOW() WHERE id = $2",
		newAvailable, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to deduct stock: %w", err)
	}

	query := `
		INSERT INTO import_records (id, listing_id, user_id, imported_quantity,
			name, image, price, origin_country, rating, available_quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (listing_id, user_id) DO UPDATE SET
			imported_quantity = import_records.imported_quantity + EXCLUDED.imported_quantity,
			available_quantity = EXCLUDED.available_quantity,
			updated_at = NOW()
		RETURNING imported_quantity`

	var imported int
	err = tx.GetContext(ctx, &imported, query,
		uuid.New().String(), listingID, userID, quantity,
		listing.Name, listing.Image, listing.Price, listing.OriginCountry,
		listing.Rating, newAvailable)
	if err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.ImportResult{
		ListingID:         listingID,
		AvailableQuantity: newAvailable,
		ImportedQuantity:  imported,
	}, nil
}
