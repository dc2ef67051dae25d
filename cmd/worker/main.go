package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/davidfuentes/questly-backend/internal/notifications"
	"github.com/davidfuentes/questly-backend/internal/users"
	"github.com/davidfuentes/questly-backend/pkg/config"
	"github.com/davidfuentes/questly-backend/pkg/db"
	"github.com/davidfuentes/questly-backend/pkg/logger"
	"github.com/davidfuentes/questly-backend/pkg/metrics"
	"github.com/davidfuentes/questly-backend/pkg/providers/email"
	"github.com/davidfuentes/questly-backend/pkg/providers/push"
	"github.com/davidfuentes/questly-backend/pkg/providers/sms"
	"github.com/davidfuentes/questly-backend/pkg/pubsub"
	"github.com/davidfuentes/questly-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer pubsubClient.Close()

	settingsService, err := notifications.NewSettingsService(notifications.NewSettingsRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	dispatchMetrics := metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Repository: notificationsRepo,
		Settings:   settingsService,
		Contacts:   users.NewRepository(dbClient.DB()),
		Push:       buildPushSender(cfg, logg),
		Email:      buildEmailSender(cfg, logg),
		SMS:        buildSMSSender(cfg, logg),
		Metrics:    dispatchMetrics,
		Logger:     logg,
		Timeout:    cfg.Notify.DispatchTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repository: notificationsRepo,
		Settings:   settingsService,
		Dispatcher: dispatcher,
		Logger:     logg,
		Metrics:    dispatchMetrics,
		Notify:     cfg.Notify,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}
	defer notificationsService.Close()

	consumer, err := notifications.NewConsumer(notificationsService, pubsubClient.EventsSubscription(), redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create event consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"subscription": cfg.PubSub.EventsSubscription,
	})
	logg.Info(ctx, "starting event worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "event worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "event worker shutting down gracefully")
}

// buildPushSender returns nil when FCM is not configured; the dispatcher then
// fails the push channel per notification instead of at boot.
func buildPushSender(cfg *config.Config, logg *logger.Logger) push.Sender {
	if cfg.FCM.ProjectID == "" && cfg.GCP.ProjectID == "" {
		logg.Warn(context.Background(), "fcm not configured; push channel disabled")
		return nil
	}
	sender, err := push.NewFCMSender(context.Background(), cfg.FCM, cfg.GCP)
	if err != nil {
		logg.Error(context.Background(), "failed to create fcm sender; push channel disabled", err)
		return nil
	}
	return sender
}

func buildEmailSender(cfg *config.Config, logg *logger.Logger) email.Sender {
	if cfg.Resend.APIKey == "" {
		logg.Warn(context.Background(), "resend not configured; email channel disabled")
		return nil
	}
	sender, err := email.NewResendSender(cfg.Resend)
	if err != nil {
		logg.Error(context.Background(), "failed to create resend sender; email channel disabled", err)
		return nil
	}
	return sender
}

func buildSMSSender(cfg *config.Config, logg *logger.Logger) sms.Sender {
	if cfg.SMS.GatewayURL == "" {
		logg.Warn(context.Background(), "sms gateway not configured; sms channel disabled")
		return nil
	}
	sender, err := sms.NewGatewaySender(cfg.SMS)
	if err != nil {
		logg.Error(context.Background(), "failed to create sms sender; sms channel disabled", err)
		return nil
	}
	return sender
}
