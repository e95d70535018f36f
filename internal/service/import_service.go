package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gadget-hub/internal/broker"
	"gadget-hub/internal/models"
	"gadget-hub/internal/redisclient"
	"gadget-hub/internal/store"
	"gadget-hub/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const idempotencyTTL = 24 * time.Hour

// ImportService handles quantity transfers from listings to import records
type ImportService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewImportService creates a new import service
func NewImportService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *ImportService {
	return &ImportService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// ImportQuantity transfers quantity units from a listing's available pool
// into the user's import record. The database transaction is the sole
// arbiter; the Redis counter is a fast-fail check reconciled afterwards.
// A repeated idempotency key returns the first attempt's result without
// moving stock again.
func (s *ImportService) ImportQuantity(ctx context.Context, listingID, userID string, quantity int, idempotencyKey string) (*models.ImportResult, error) {
	ctx, span := util.StartSpan(ctx, "ImportService.ImportQuantity")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ImportLatency.Observe(time.Since(start).Seconds())
	}()

	if quantity <= 0 {
		util.ImportsFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
	}

	if idempotencyKey != "" {
		if result, err := s.lookupIdempotent(ctx, idempotencyKey); err == nil && result != nil {
			s.logger.Info("Duplicate import request detected",
				zap.String("idempotency_key", idempotencyKey),
				zap.String("listing_id", listingID))
			return result, nil
		}
	}

	// Fast-fail on the cached counter before touching the database.
	_, ok, err := s.redis.ImportStock(ctx, listingID, quantity)
	if err != nil {
		if !errors.Is(err, redisclient.ErrNotTracked) {
			s.logger.Warn("Redis fast path unavailable, using DB only",
				zap.String("listing_id", listingID),
				zap.Error(err))
		}
	} else if !ok {
		util.ImportsFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, fmt.Errorf("%w: listing %s", store.ErrInsufficientStock, listingID)
	}

	result, err := s.store.ImportQuantityTx(ctx, listingID, userID, quantity)
	if err != nil {
		// The counter was optimistically decremented above; put it back.
		if releaseErr := s.redis.ReleaseStock(ctx, listingID, quantity); releaseErr != nil && !errors.Is(releaseErr, redisclient.ErrNotTracked) {
			s.logger.Error("Failed to re-credit Redis counter",
				zap.String("listing_id", listingID),
				zap.Error(releaseErr))
		}

		if errors.Is(err, store.ErrInsufficientStock) {
			util.ImportsFailedTotal.WithLabelValues("insufficient_stock").Inc()
		} else {
			util.ImportsFailedTotal.WithLabelValues("db_error").Inc()
		}
		return nil, err
	}

	// The DB is authoritative; pin the counter to its value.
	if err := s.redis.InitListing(ctx, listingID, result.AvailableQuantity); err != nil {
		s.logger.Warn("Failed to sync Redis counter",
			zap.String("listing_id", listingID),
			zap.Error(err))
	}

	if idempotencyKey != "" {
		s.storeIdempotent(ctx, idempotencyKey, result)
	}

	util.ImportsRecordedTotal.Inc()
	s.logger.Info("Import recorded",
		zap.String("listing_id", listingID),
		zap.String("user_id", userID),
		zap.Int("quantity", quantity),
		zap.Int("available", result.AvailableQuantity))

	event := &models.ImportRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeImportRecorded,
			Timestamp: time.Now(),
		},
		ListingID:         listingID,
		UserID:            userID,
		Quantity:          quantity,
		AvailableQuantity: result.AvailableQuantity,
		ImportedQuantity:  result.ImportedQuantity,
	}

	if err := s.eventPublisher.PublishImportRecorded(ctx, event); err != nil {
		s.logger.Error("Failed to publish ImportRecorded event", zap.Error(err))
	}

	return result, nil
}

func (s *ImportService) lookupIdempotent(ctx context.Context, key string) (*models.ImportResult, error) {
	stored, err := s.redis.GetIdempotencyValue(ctx, key)
	if err != nil || stored == "" {
		return nil, err
	}

	var result models.ImportResult
	if err := json.Unmarshal([]byte(stored), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *ImportService) storeIdempotent(ctx context.Context, key string, result *models.ImportResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.redis.StoreIdempotencyValue(ctx, key, payload, idempotencyTTL); err != nil {
		s.logger.Warn("Failed to store idempotency result",
			zap.String("idempotency_key", key),
			zap.Error(err))
	}
}

// ListImports retrieves a user's import records
func (s *ImportService) ListImports(ctx context.Context, userID string) ([]models.ImportRecord, error) {
	return s.store.GetImportsByUser(ctx, userID)
}

// RemoveImport deletes a user's import record and re-credits the released
// quantity to the listing's available pool. Both sides of the accounting
// move sit in one database transaction; a failed re-credit rolls the
// delete back rather than losing stock.
func (s *ImportService) RemoveImport(ctx context.Context, listingID, userID string) error {
	ctx, span := util.StartSpan(ctx, "ImportService.RemoveImport")
	defer span.End()

	released, err := s.store.RemoveImportTx(ctx, listingID, userID)
	if err != nil {
		return err
	}

	if err := s.redis.ReleaseStock(ctx, listingID, released); err != nil && !errors.Is(err, redisclient.ErrNotTracked) {
		s.logger.Warn("Failed to re-credit Redis counter",
			zap.String("listing_id", listingID),
			zap.Error(err))
	}

	util.ImportsRemovedTotal.Inc()
	s.logger.Info("Import removed",
		zap.String("listing_id", listingID),
		zap.String("user_id", userID),
		zap.Int("released", released))

	event := &models.ImportRemovedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeImportRemoved,
			Timestamp: time.Now(),
		},
		ListingID:        listingID,
		UserID:           userID,
		ReleasedQuantity: released,
	}

	if err := s.eventPublisher.PublishImportRemoved(ctx, event); err != nil {
		s.logger.Error("Failed to publish ImportRemoved event", zap.Error(err))
	}

	return nil
}
