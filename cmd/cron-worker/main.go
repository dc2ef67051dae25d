package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/davidfuentes/questly-backend/internal/cron"
	"github.com/davidfuentes/questly-backend/internal/notifications"
	"github.com/davidfuentes/questly-backend/internal/users"
	"github.com/davidfuentes/questly-backend/pkg/config"
	"github.com/davidfuentes/questly-backend/pkg/db"
	"github.com/davidfuentes/questly-backend/pkg/logger"
	"github.com/davidfuentes/questly-backend/pkg/metrics"
	"github.com/davidfuentes/questly-backend/pkg/providers/email"
	"github.com/davidfuentes/questly-backend/pkg/providers/push"
	"github.com/davidfuentes/questly-backend/pkg/providers/sms"
	"github.com/davidfuentes/questly-backend/pkg/redis"
)

const lockKeyFormat = "questly:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	retrySweepJob, err := cron.NewRetrySweepJob(cron.RetrySweepJobParams{
		Logger:  logg,
		Sweeper: notificationsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create retry sweep job", err)
		os.Exit(1)
	}

	expiryCleanupJob, err := cron.NewExpiryCleanupJob(cron.ExpiryCleanupJobParams{
		Logger: logg,
		Reaper: notificationsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create expiry cleanup job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(retrySweepJob, expiryCleanupJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Notify.CronInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
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
