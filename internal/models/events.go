package models

import "time"

// Event types
const (
	EventTypeListingCreated = "LISTING_CREATED"
	EventTypeListingUpdated = "LISTING_UPDATED"
	EventTypeListingDeleted = "LISTING_DELETED"
	EventTypeImportRecorded = "IMPORT_RECORDED"
	EventTypeImportRemoved  = "IMPORT_REMOVED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ListingCreatedEvent published when an exporter creates a listing
type ListingCreatedEvent struct {
	BaseEvent
	ListingID         string  `json:"listing_id"`
	UserEmail         string  `json:"user_email"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	AvailableQuantity int     `json:"available_quantity"`
}

// ListingUpdatedEvent published when the owner edits a listing
type ListingUpdatedEvent struct {
	BaseEvent
	ListingID string `json:"listing_id"`
	UserEmail string `json:"user_email"`
}

// ListingDeletedEvent published when the owner removes a listing
type ListingDeletedEvent struct {
	BaseEvent
	ListingID string `json:"listing_id"`
	UserEmail string `json:"user_email"`
}

// ImportRecordedEvent published when quantity moves from a listing's
// available pool into an importer's record
type ImportRecordedEvent struct {
	BaseEvent
	ListingID         string `json:"listing_id"`
	UserID            string `json:"user_id"`
	Quantity          int    `json:"quantity"`
	AvailableQuantity int    `json:"available_quantity"`
	ImportedQuantity  int    `json:"imported_quantity"`
}

// ImportRemovedEvent published when an importer removes their record
type ImportRemovedEvent struct {
	BaseEvent
	ListingID        string `json:"listing_id"`
	UserID           string `json:"user_id"`
	ReleasedQuantity int    `json:"released_quantity"`
}
