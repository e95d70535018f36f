package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gadget-hub/config"
	"gadget-hub/internal/api"
	"gadget-hub/internal/broker"
	"gadget-hub/internal/redisclient"
	"gadget-hub/internal/service"
	"gadget-hub/internal/store"
	"gadget-hub/internal/util"
	"gadget-hub/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting gadget hub")

	tp, err := util.InitTracer("gadget-hub", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicListing)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	authService := service.NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	listingService := service.NewListingService(db, redisClient, eventPublisher)
	importService := service.NewImportService(db, redisClient, eventPublisher)

	ctx := context.Background()
	if err := syncCountersToRedis(ctx, db, redisClient); err != nil {
		log.Printf("Failed to sync listing counters to Redis: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicListing, cfg.Kafka.ConsumerGroup)
	snapshotWorker := worker.NewSnapshotWorker(consumer, db)
	go func() {
		if err := snapshotWorker.Start(workerCtx); err != nil {
			log.Printf("Snapshot worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(authService, listingService, importService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	snapshotWorker.Stop()

	log.Println("Server exited")
}

// syncCountersToRedis seeds the fast-path counters from the database.
func syncCountersToRedis(ctx context.Context, db *store.Store, redisClient *redisclient.Client) error {
	listings, err := db.GetListings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load listings: %w", err)
	}

	for _, listing := range listings {
		if err := redisClient.InitListing(ctx, listing.ID, listing.AvailableQuantity); err != nil {
			log.Printf("Failed to init counter for listing %s: %v", listing.ID, err)
		}
	}

	log.Printf("Listing counters synced: count=%d", len(listings))
	return nil
}
