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

	"github.com/Nattakit28/shop-system-sub000/config"
	"github.com/Nattakit28/shop-system-sub000/internal/api"
	"github.com/Nattakit28/shop-system-sub000/internal/broker"
	"github.com/Nattakit28/shop-system-sub000/internal/redisclient"
	"github.com/Nattakit28/shop-system-sub000/internal/service"
	"github.com/Nattakit28/shop-system-sub000/internal/store"
	"github.com/Nattakit28/shop-system-sub000/internal/util"
	"github.com/Nattakit28/shop-system-sub000/internal/worker"
	"github.com/Nattakit28/shop-system-sub000/migrations"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting shop API")

	tp, err := util.InitTracer("shop-api", cfg.Observ.JaegerEndpoint)
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

	if err := migrations.Run(db.GetDB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	settingsService := service.NewSettingsService(db, redisClient)
	catalogService := service.NewCatalogService(db)
	orderService := service.NewOrderService(db, eventPublisher)
	paymentService := service.NewPaymentService(db, settingsService, redisClient, eventPublisher)

	ctx := context.Background()
	if err := settingsService.Seed(ctx); err != nil {
		log.Printf("Failed to seed settings: %v", err)
	}
	if err := seedAdmin(ctx, db, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Printf("Failed to seed admin: %v", err)
	}
	if err := os.MkdirAll(cfg.Shop.UploadDir, 0o755); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	activityWorker := worker.NewActivityWorker(consumer, db)
	go func() {
		if err := activityWorker.Start(workerCtx); err != nil {
			log.Printf("Activity worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens := api.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	adminHandler := api.NewAdminHandler(db, orderService, paymentService, catalogService, settingsService, tokens)
	handler := api.NewHandler(orderService, paymentService, catalogService, settingsService, adminHandler, cfg.Shop.UploadDir)

	router := gin.Default()
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
	activityWorker.Stop()

	log.Println("Server exited")
}

func seedAdmin(ctx context.Context, db *store.Store, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.SeedAdmin(ctx, username, string(hash))
}
