package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"gadget-hub/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishListingCreated publishes ListingCreated event
func (ep *EventPublisher) PublishListingCreated(ctx context.Context, event *models.ListingCreatedEvent) error {
	key := fmt.Sprintf("listing-%s", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishListingUpdated publishes ListingUpdated event
func (ep *EventPublisher) PublishListingUpdated(ctx context.Context, event *models.ListingUpdatedEvent) error {
	key := fmt.Sprintf("listing-%s", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishListingDeleted publishes ListingDeleted event
func (ep *EventPublisher) PublishListingDeleted(ctx context.Context, event *models.ListingDeletedEvent) error {
	key := fmt.Sprintf("listing-%s", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishImportRecorded publishes ImportRecorded event
func (ep *EventPublisher) PublishImportRecorded(ctx context.Context, event *models.ImportRecordedEvent) error {
	key := fmt.Sprintf("listing-%s", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishImportRemoved publishes ImportRemoved event
func (ep *EventPublisher) PublishImportRemoved(ctx context.Context, event *models.ImportRemovedEvent) error {
	key := fmt.Sprintf("listing-%s", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming events to registered handlers
type EventHandler struct {
	onListingUpdated func(context.Context, *models.ListingUpdatedEvent) error
	onImportRecorded func(context.Context, *models.ImportRecordedEvent) error
	onImportRemoved  func(context.Context, *models.ImportRemovedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnListingUpdated registers a handler for ListingUpdated events
func (eh *EventHandler) OnListingUpdated(handler func(context.Context, *models.ListingUpdatedEvent) error) {
	eh.onListingUpdated = handler
}

// OnImportRecorded registers a handler for ImportRecorded events
func (eh *EventHandler) OnImportRecorded(handler func(context.Context, *models.ImportRecordedEvent) error) {
	eh.onImportRecorded = handler
}

// OnImportRemoved registers a handler for ImportRemoved events
func (eh *EventHandler) OnImportRemoved(handler func(context.Context, *models.ImportRemovedEvent) error) {
	eh.onImportRemoved = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeListingUpdated:
		if eh.onListingUpdated != nil {
			var event models.ListingUpdatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ListingUpdated event: %w", err)
			}
			return eh.onListingUpdated(ctx, &event)
		}

	case models.EventTypeImportRecorded:
		if eh.onImportRecorded != nil {
			var event models.ImportRecordedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ImportRecorded event: %w", err)
			}
			return eh.onImportRecorded(ctx, &event)
		}

	case models.EventTypeImportRemoved:
		if eh.onImportRemoved != nil {
			var event models.ImportRemovedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ImportRemoved event: %w", err)
			}
			return eh.onImportRemoved(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
