package worker

import (
	"context"
	"log"

	"gadget-hub/internal/broker"
	"gadget-hub/internal/models"
	"gadget-hub/internal/store"
)

// SnapshotWorker keeps the denormalized listing fields on import records
// in sync with listing mutations, consuming domain events.
type SnapshotWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
}

// NewSnapshotWorker creates a new snapshot worker
func NewSnapshotWorker(consumer *broker.Consumer, st *store.Store) *SnapshotWorker {
	eventHandler := broker.NewEventHandler()
	w := &SnapshotWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		store:        st,
	}

	eventHandler.OnListingUpdated(w.handleListingUpdated)
	eventHandler.OnImportRecorded(w.handleImportRecorded)
	eventHandler.OnImportRemoved(w.handleImportRemoved)

	return w
}

// Start starts the worker
func (w *SnapshotWorker) Start(ctx context.Context) error {
	log.Println("Starting snapshot worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SnapshotWorker) Stop() error {
	log.Println("Stopping snapshot worker...")
	return w.consumer.Close()
}

func (w *SnapshotWorker) handleListingUpdated(ctx context.Context, event *models.ListingUpdatedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	if err := w.store.RefreshImportSnapshots(ctx, event.ListingID); err != nil {
		return err
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *SnapshotWorker) handleImportRecorded(ctx context.Context, event *models.ImportRecordedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	// Other importers' records still show the pre-import available count;
	// rewrite every snapshot of the listing from the authoritative row.
	if err := w.store.RefreshImportSnapshots(ctx, event.ListingID); err != nil {
		return err
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *SnapshotWorker) handleImportRemoved(ctx context.Context, event *models.ImportRemovedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	if err := w.store.RefreshImportSnapshots(ctx, event.ListingID); err != nil {
		return err
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}
