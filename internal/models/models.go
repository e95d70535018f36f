package models

import "time"

// ProductListing represents a sellable unit created by an exporter.
// The database row is the authoritative copy; clients hold a
// read-through cache reconciled from server responses.
type ProductListing struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Image             string    `db:"image" json:"image"`
	Price             float64   `db:"price" json:"price"`
	OriginCountry     string    `db:"origin_country" json:"originCountry"`
	Rating            float64   `db:"rating" json:"rating"`
	AvailableQuantity int       `db:"available_quantity" json:"availableQuantity"`
	UserEmail         string    `db:"user_email" json:"userEmail"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// ImportRecord represents a quantity of a listing acquired by a user.
// Listing fields are denormalized so the record renders without a join.
type ImportRecord struct {
	ID                string    `db:"id" json:"id"`
	ListingID         string    `db:"listing_id" json:"listingId"`
	UserID            string    `db:"user_id" json:"userId"`
	ImportedQuantity  int       `db:"imported_quantity" json:"importedQuantity"`
	Name              string    `db:"name" json:"name"`
	Image             string    `db:"image" json:"image"`
	Price             float64   `db:"price" json:"price"`
	OriginCountry     string    `db:"origin_country" json:"originCountry"`
	Rating            float64   `db:"rating" json:"rating"`
	AvailableQuantity int       `db:"available_quantity" json:"availableQuantity"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// User represents a registered account.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	DisplayName  string    `db:"display_name" json:"displayName,omitempty"`
	PhotoURL     string    `db:"photo_url" json:"photoURL,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Provider     string    `db:"provider" json:"provider"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Sign-in providers
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google.com"
)

// Session is the locally persisted representation of the authenticated
// user. A session is either fully absent (anonymous) or carries at least
// a user ID and email; partial records are treated as anonymous.
type Session struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Token       string `json:"token,omitempty"`
}

// Valid reports whether the session satisfies the all-or-nothing
// invariant: a usable identity needs both a user ID and an email.
func (s *Session) Valid() bool {
	return s != nil && s.UserID != "" && s.Email != ""
}

// ImportResult carries the server's authoritative post-mutation counters.
// Clients replace their local fields from this response rather than
// computing new values.
type ImportResult struct {
	ListingID         string `json:"listingId"`
	AvailableQuantity int    `json:"availableQuantity"`
	ImportedQuantity  int    `json:"importedQuantity"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
