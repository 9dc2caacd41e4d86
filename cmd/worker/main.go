package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/config"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/infra/email"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/infra/firebaseapp"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/infra/push"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/infra/queue"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/infra/ratelimit"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/infra/sms"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/infra/store"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/infra/template"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
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

	slog.Info("worker configuration loaded")

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	ctx := context.Background()

	// Firebase (document store + FCM)
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

	receipts, err := store.NewReceiptStore(cfg.Store.ReceiptsDriver, fsClient, cfg.Supabase.URL, cfg.Supabase.ServiceKey)
	if err != nil {
		slog.Error("failed to initialize receipt store", "error", err)
		os.Exit(1)
	}
	slog.Info("stores initialized", "receipts_driver", cfg.Store.ReceiptsDriver)

	// Template Engine
	var tmplEngine *template.Engine
	if cfg.Email.TemplatesDir != "" {
		tmplEngine, err = template.NewEngineFromDir(cfg.Email.TemplatesDir)
		slog.Info("loading email templates from disk", "dir", cfg.Email.TemplatesDir)
	} else {
		tmplEngine, err = template.NewEngine()
	}
	if err != nil {
		slog.Error("failed to initialize template engine", "error", err)
		os.Exit(1)
	}

	// Push (FCM + Expo)
	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		slog.Error("failed to initialize firebase messaging", "error", err)
		os.Exit(1)
	}
	pushGateway := push.NewGateway(push.NewFCM(messagingClient), push.NewExpo(cfg.Expo.AccessToken, cfg.Notify.SendTimeout))

	// SMS (Twilio), optional
	var smsGateway notification.SMSGateway
	if cfg.SMS.AccountSID != "" {
		smsGateway = sms.NewTwilioGateway(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber)
		slog.Info("sms gateway initialized", "from", cfg.SMS.FromNumber)
	} else {
		slog.Warn("twilio not configured, sms sends will fail")
	}

	// Email (SendGrid or Resend), optional
	var emailGateway notification.EmailGateway
	sender := email.Sender{Address: cfg.Email.FromAddress, Name: cfg.Email.FromName}
	switch {
	case cfg.Email.APIKey == "":
		slog.Warn("email api key not configured, email sends will fail")
	case sender.Validate() != nil:
		slog.Error("invalid email sender", "error", sender.Validate())
		os.Exit(1)
	case cfg.Email.Provider == "resend":
		emailGateway = email.NewResendGateway(cfg.Email.APIKey, sender)
	default:
		emailGateway = email.NewSendGridGateway(cfg.Email.APIKey, sender)
	}
	slog.Info("email gateway configured", "provider", cfg.Email.Provider, "enabled", emailGateway != nil)

	// Ambient Rate Limiter
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	limiter := ratelimit.NewRedisRecipientLimiter(redisClient, cfg.Notify.AmbientMaxPerHour)
	slog.Info("ambient rate limiter initialized", "max_per_hour", cfg.Notify.AmbientMaxPerHour)

	// Dispatcher
	channels := notification.NewChannels(pushGateway, smsGateway, emailGateway, receipts, cfg.Notify.SendTimeout)
	dispatcher := notification.NewDispatcher(
		notification.Stores{
			Users:    docs,
			Trucks:   docs,
			Orders:   docs,
			Deals:    docs,
			Receipts: receipts,
		},
		notification.NewFormatter(tmplEngine),
		channels,
		limiter,
		notification.DispatcherConfig{
			Policies: notification.Policies{
				OrderStatus: notification.Policy{Window: cfg.Notify.OrderStatusCooldown, FailOpen: true},
				Proximity:   notification.Policy{Window: cfg.Notify.ProximityCooldown},
				Deal:        notification.Policy{Window: cfg.Notify.DealCooldown},
			},
			ProximityRadiusMiles: cfg.Notify.ProximityRadiusMiles,
			AmbientConcurrency:   cfg.Notify.AmbientConcurrency,
			PruneTimeout:         cfg.Notify.PruneTimeout,
		},
	)

	// Notification Worker
	notifWorker := notification.NewWorker(dispatcher)

	// ==========================================
	// Asynq Server (task processing)
	// ==========================================

	asynqServer := queue.NewServer(
		queue.RedisOpt(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB),
		cfg.Queue.Name,
		cfg.Queue.Concurrency,
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	notifWorker.Register(mux)

	// Start the asynq worker in a goroutine
	go func() {
		slog.Info("worker starting",
			"concurrency", cfg.Queue.Concurrency,
			"redis", cfg.Redis.Address,
		)
		if err := asynqServer.Run(mux); err != nil {
			slog.Error("worker failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// ==========================================
	// Receipt Retention Sweep
	// ==========================================

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	sweeper := notification.NewSweeper(receipts, notification.SweeperConfig{
		Retention: cfg.Retention.RetentionPeriod(),
		Schedule:  cfg.Retention.Cron,
		BatchSize: cfg.Retention.BatchSize,
	})
	if err := sweeper.Start(sweepCtx); err != nil {
		slog.Error("failed to start retention sweeper", "error", err)
		os.Exit(1)
	}

	// ==========================================
	// Graceful Shutdown
	// ==========================================

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	sweepCancel() // Stop the sweeper first
	sweeper.Stop()
	asynqServer.Shutdown()
	dispatcher.Wait()
	slog.Info("worker exited gracefully")
}
