package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidfuentes/questly-backend/api/controllers"
	"github.com/davidfuentes/questly-backend/api/middleware"
	"github.com/davidfuentes/questly-backend/internal/notifications"
	"github.com/davidfuentes/questly-backend/pkg/config"
	"github.com/davidfuentes/questly-backend/pkg/db"
	"github.com/davidfuentes/questly-backend/pkg/logger"
	"github.com/davidfuentes/questly-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	notificationsService notifications.Service,
	settingsService notifications.SettingsService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	probes := map[string]controllers.ReadinessProbe{}
	if dbP != nil {
		probes["database"] = dbP
	}
	if redisClient != nil {
		probes["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, probes))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/internal/v1/notifications", func(r chi.Router) {
		r.Post("/announcements", controllers.CreateAnnouncement(notificationsService, logg))
	})

	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(middleware.UserContext(logg))

		r.Get("/", controllers.ListNotifications(notificationsService, logg))
		r.Get("/unread-count", controllers.UnreadNotificationsCount(notificationsService, logg))
		r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
		r.Post("/{notificationId}/resend", controllers.ResendNotification(notificationsService, logg))
		r.Delete("/{notificationId}", controllers.DeleteNotification(notificationsService, logg))

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", controllers.GetNotificationSettings(settingsService, logg))
			r.Patch("/", controllers.UpdateNotificationSettings(settingsService, logg))
			r.Post("/push-tokens", controllers.AddPushToken(settingsService, logg))
			r.Delete("/push-tokens/{deviceId}", controllers.RemovePushToken(settingsService, logg))
		})
	})

	return r
}
