package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/config"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/infra/firebaseapp"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/infra/queue"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/infra/store"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/router"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"receipts_driver", cfg.Store.ReceiptsDriver,
	)

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	ctx := context.Background()

	// Firebase (document store)
	app, err := firebaseapp.NewApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		slog.Error("failed to initialize firebase", "error", err)
		os.Exit(1)
	}
	fsClient, err := app.Firestore(ctx)
	if err != nil {
		slog.Error("failed to initialize firestore client", "error", err)
		os.Exit(1)
	}
	defer fsClient.Close()
	docs := store.NewFirestoreStore(fsClient)
	slog.Info("firestore store initialized")

	// Receipt Store
	receipts, err := store.NewReceiptStore(cfg.Store.ReceiptsDriver, fsClient, cfg.Supabase.URL, cfg.Supabase.ServiceKey)
	if err != nil {
		slog.Error("failed to initialize receipt store", "error", err)
		os.Exit(1)
	}

	// Asynq Enqueuer
	enqueuer := queue.NewEnqueuer(
		queue.RedisOpt(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB),
		cfg.Queue.Name,
	)
	defer enqueuer.Close()
	slog.Info("asynq client initialized", "redis", cfg.Redis.Address, "queue", cfg.Queue.Name)

	if cfg.Stripe.WebhookSecret == "" {
		slog.Warn("stripe webhook secret not set, payment webhooks will be rejected")
	}

	// Service
	notificationService := notification.NewService(enqueuer, docs, docs, receipts)

	// Handler
	notificationHandler := notification.NewHandler(notificationService, cfg.Stripe.WebhookSecret)

	// Router
	r := router.New(cfg, notificationHandler)

	// ==========================================
	// HTTP Server with Graceful Shutdown
	// ==========================================

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}
