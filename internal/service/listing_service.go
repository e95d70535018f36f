package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gadget-hub/internal/broker"
	"gadget-hub/internal/models"
	"gadget-hub/internal/redisclient"
	"gadget-hub/internal/store"
	"gadget-hub/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrValidation marks client-detectable input problems.
var ErrValidation = errors.New("validation failed")

// ErrForbidden marks operations attempted by a non-owner.
var ErrForbidden = errors.New("forbidden")

// ListingService handles listing business logic
type ListingService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewListingService creates a new listing service
func NewListingService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *ListingService {
	return &ListingService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// ListingFields carries the editable fields of a listing.
type ListingFields struct {
	Name              string  `json:"name" binding:"required"`
	Image             string  `json:"image" binding:"required"`
	Price             float64 `json:"price"`
	OriginCountry     string  `json:"originCountry" binding:"required"`
	Rating            float64 `json:"rating"`
	AvailableQuantity int     `json:"availableQuantity"`
}

func validateFields(fields *ListingFields) error {
	var missing []string
	if strings.TrimSpace(fields.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(fields.Image) == "" {
		missing = append(missing, "image")
	}
	if strings.TrimSpace(fields.OriginCountry) == "" {
		missing = append(missing, "originCountry")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if fields.Price < 0 {
		return fmt.Errorf("%w: price must be non-negative", ErrValidation)
	}
	if fields.Rating < 0 || fields.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrValidation)
	}
	if fields.AvailableQuantity < 0 {
		return fmt.Errorf("%w: availableQuantity must be non-negative", ErrValidation)
	}
	return nil
}

// CreateListing validates and persists a new listing, returning the
// server-assigned record.
func (s *ListingService) CreateListing(ctx context.Context, ownerEmail string, fields *ListingFields) (*models.ProductListing, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.CreateListing")
	defer span.End()

	if err := validateFields(fields); err != nil {
		return nil, err
	}

	listing := &models.ProductListing{
		Name:              fields.Name,
		Image:             fields.Image,
		Price:             fields.Price,
		OriginCountry:     fields.OriginCountry,
		Rating:            fields.Rating,
		AvailableQuantity: fields.AvailableQuantity,
		UserEmail:         ownerEmail,
	}

	if err := s.store.CreateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	util.ListingsCreatedTotal.Inc()
	s.logger.Info("Listing created",
		zap.String("listing_id", listing.ID),
		zap.String("owner", ownerEmail))

	if err := s.redis.InitListing(ctx, listing.ID, listing.AvailableQuantity); err != nil {
		s.logger.Warn("Failed to init Redis counter",
			zap.String("listing_id", listing.ID),
			zap.Error(err))
	}

	event := &models.ListingCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeListingCreated,
			Timestamp: time.Now(),
		},
		ListingID:         listing.ID,
		UserEmail:         listing.UserEmail,
		Name:              listing.Name,
		Price:             listing.Price,
		AvailableQuantity: listing.AvailableQuantity,
	}

	if err := s.eventPublisher.PublishListingCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish ListingCreated event", zap.Error(err))
	}

	return listing, nil
}

// GetListing retrieves a single listing by ID
func (s *ListingService) GetListing(ctx context.Context, id string) (*models.ProductListing, error) {
	return s.store.GetListingByID(ctx, id)
}

// ListListings retrieves all listings
func (s *ListingService) ListListings(ctx context.Context) ([]models.ProductListing, error) {
	return s.store.GetListings(ctx)
}

// ListingsByOwner retrieves the listings exported by a user
func (s *ListingService) ListingsByOwner(ctx context.Context, email string) ([]models.ProductListing, error) {
	return s.store.GetListingsByOwner(ctx, email)
}

// UpdateListing replaces all editable fields of an owned listing and
// returns the stored record. Callers must adopt the returned row, not the
// fields they sent.
func (s *ListingService) UpdateListing(ctx context.Context, ownerEmail, id string, fields *ListingFields) (*models.ProductListing, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.UpdateListing")
	defer span.End()

	if err := validateFields(fields); err != nil {
		return nil, err
	}

	existing, err := s.store.GetListingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.UserEmail != ownerEmail {
		return nil, fmt.Errorf("%w: listing %s is not owned by %s", ErrForbidden, id, ownerEmail)
	}

	existing.Name = fields.Name
	existing.Image = fields.Image
	existing.Price = fields.Price
	existing.OriginCountry = fields.OriginCountry
	existing.Rating = fields.Rating
	existing.AvailableQuantity = fields.AvailableQuantity

	updated, err := s.store.UpdateListing(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}

	util.ListingsUpdatedTotal.Inc()

	if err := s.redis.InitListing(ctx, updated.ID, updated.AvailableQuantity); err != nil {
		s.logger.Warn("Failed to reset Redis counter",
			zap.String("listing_id", updated.ID),
			zap.Error(err))
	}

	event := &models.ListingUpdatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeListingUpdated,
			Timestamp: time.Now(),
		},
		ListingID: updated.ID,
		UserEmail: updated.UserEmail,
	}

	if err := s.eventPublisher.PublishListingUpdated(ctx, event); err != nil {
		s.logger.Error("Failed to publish ListingUpdated event", zap.Error(err))
	}

	return updated, nil
}

// DeleteListing removes an owned listing
func (s *ListingService) DeleteListing(ctx context.Context, ownerEmail, id string) error {
	ctx, span := util.StartSpan(ctx, "ListingService.DeleteListing")
	defer span.End()

	existing, err := s.store.GetListingByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserEmail != ownerEmail {
		return fmt.Errorf("%w: listing %s is not owned by %s", ErrForbidden, id, ownerEmail)
	}

	if err := s.store.DeleteListing(ctx, id); err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}

	util.ListingsDeletedTotal.Inc()

	if err := s.redis.DropListing(ctx, id); err != nil {
		s.logger.Warn("Failed to drop Redis counter",
			zap.String("listing_id", id),
			zap.Error(err))
	}

	event := &models.ListingDeletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeListingDeleted,
			Timestamp: time.Now(),
		},
		ListingID: id,
		UserEmail: ownerEmail,
	}

	if err := s.eventPublisher.PublishListingDeleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish ListingDeleted event", zap.Error(err))
	}

	s.logger.Info("Listing deleted", zap.String("listing_id", id))
	return nil
}
