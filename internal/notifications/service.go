package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidfuentes/questly-backend/pkg/config"
	"github.com/davidfuentes/questly-backend/pkg/db/models"
	dbtypes "github.com/davidfuentes/questly-backend/pkg/db/types"
	"github.com/davidfuentes/questly-backend/pkg/enums"
	pkgerrors "github.com/davidfuentes/questly-backend/pkg/errors"
	"github.com/davidfuentes/questly-backend/pkg/logger"
	"github.com/davidfuentes/questly-backend/pkg/metrics"
	"github.com/davidfuentes/questly-backend/pkg/pagination"
)

// Service defines notification creation, query and maintenance operations.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*models.Notification, error)
	CreateBatch(ctx context.Context, requests []CreateParams, batchID *uuid.UUID) []*models.Notification
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	Delete(ctx context.Context, recipientID, notificationID uuid.UUID) error
	Resend(ctx context.Context, recipientID, notificationID uuid.UUID) error
	SweepRetries(ctx context.Context, now time.Time) (int, error)
	ReapExpired(ctx context.Context, now time.Time) (int64, error)
	Close()
}

// channelDispatcher is the orchestrator surface the service depends on.
type channelDispatcher interface {
	Dispatch(ctx context.Context, n *models.Notification, settings *models.NotificationSettings, channels []enums.Channel) map[enums.Channel]SendResult
}

// CreateParams describe one notification to create. Channels narrows the
// user-allowed set further; empty defaults to in-app only.
type CreateParams struct {
	RecipientID uuid.UUID
	SenderID    *uuid.UUID
	BatchID     *uuid.UUID
	Type        enums.NotificationType
	Priority    enums.Priority
	Title       string
	Content     string
	Icon        *string
	Image       *string
	ActionURL   *string
	Actions     dbtypes.Actions
	Data        dbtypes.Payload
	Channels    dbtypes.ChannelList
	ExpiresAt   *time.Time
}

func (p CreateParams) validate() error {
	if p.RecipientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if !p.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type "+string(p.Type))
	}
	if strings.TrimSpace(p.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if strings.TrimSpace(p.Content) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "content required")
	}
	if p.Priority != "" && !p.Priority.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown priority "+string(p.Priority))
	}
	for _, channel := range p.Channels {
		if !channel.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown channel "+string(channel))
		}
	}
	return nil
}

// ListParams configures pagination for notifications.
type ListParams struct {
	RecipientID uuid.UUID
	Limit       int
	Cursor      string
	UnreadOnly  bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// ServiceParams wire the notification service dependencies.
type ServiceParams struct {
	Repository Repository
	Settings   SettingsService
	Dispatcher channelDispatcher
	Logger     *logger.Logger
	Metrics    *metrics.DispatchMetrics
	Notify     config.NotifyConfig
}

type service struct {
	repo       Repository
	settings   SettingsService
	dispatcher channelDispatcher
	logg       *logger.Logger
	metrics    *metrics.DispatchMetrics
	pool       *workerPool

	maxRetries int
	retryBase  time.Duration
	sweepBatch int

	now func() time.Time
}

// NewService wires notifications dependencies and starts the dispatch pool.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "settings service required")
	}
	if params.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatcher required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}

	maxRetries := params.Notify.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryBase := params.Notify.RetryBase
	if retryBase <= 0 {
		retryBase = 5 * time.Minute
	}
	sweepBatch := params.Notify.SweepBatchSize
	if sweepBatch <= 0 {
		sweepBatch = 100
	}

	return &service{
		repo:       params.Repository,
		settings:   params.Settings,
		dispatcher: params.Dispatcher,
		logg:       params.Logger,
		metrics:    params.Metrics,
		pool:       newWorkerPool(context.Background(), params.Notify.Workers, params.Notify.QueueSize),
		maxRetries: maxRetries,
		retryBase:  retryBase,
		sweepBatch: sweepBatch,
		now:        time.Now,
	}, nil
}

// Create persists a notification honoring the recipient's preferences and
// hands it to the async dispatch pool. A nil, nil return means policy opted
// the notification out; nothing was stored. The returned value is the
// creation-time snapshot; delivery outcomes are written to storage.
func (s *service) Create(ctx context.Context, params CreateParams) (*models.Notification, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	settings, err := s.settings.Resolve(ctx, params.RecipientID)
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithUserID(ctx, params.RecipientID.String())
	if !settings.Enabled {
		s.logg.Info(logCtx, "notifications disabled for recipient; skipping")
		return nil, nil
	}
	pref := settings.TypePreference(params.Type)
	if !pref.Enabled {
		s.logg.Info(logCtx, "notification type disabled for recipient; skipping")
		return nil, nil
	}

	requested := params.Channels
	if len(requested) == 0 {
		requested = dbtypes.ChannelList{enums.ChannelInApp}
	}
	final := requested.Intersect(pref.Channels)
	if len(final) == 0 {
		// Still stored: the record stays queryable in-app and a later
		// resend can deliver it if preferences change.
		final = dbtypes.ChannelList{}
		s.logg.Info(logCtx, "no deliverable channels after preference filter; storing without dispatch")
	}

	priority := params.Priority
	if priority == "" {
		priority = enums.PriorityNormal
	}

	now := s.now().UTC()
	notification := &models.Notification{
		ID:          uuid.New(),
		BatchID:     params.BatchID,
		RecipientID: params.RecipientID,
		SenderID:    params.SenderID,
		Type:        params.Type,
		Priority:    priority,
		Title:       params.Title,
		Content:     params.Content,
		Icon:        params.Icon,
		Image:       params.Image,
		ActionURL:   params.ActionURL,
		Actions:     params.Actions,
		Data:        params.Data,
		Channels:    final,
		ExpiresAt:   params.ExpiresAt,
	}

	quiet := len(final) > 0 && quietAt(settings.QuietHours, now)
	if quiet {
		deferred := quietWindowEnd(settings.QuietHours, now)
		notification.NextRetryAt = &deferred
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}

	if len(final) == 0 {
		return notification, nil
	}
	if quiet {
		s.logg.Info(s.logg.WithNotificationID(logCtx, notification.ID.String()), "quiet hours active; dispatch deferred")
		return notification, nil
	}

	s.enqueueDispatch(notification, settings)
	return notification, nil
}

// enqueueDispatch schedules async delivery on a detached copy; the caller
// keeps its creation-time snapshot while delivery outcomes land in storage.
// A saturated queue falls back to the sweeper by leaving next_retry_at set.
func (s *service) enqueueDispatch(n *models.Notification, settings *models.NotificationSettings) {
	job := *n
	submitted := s.pool.Submit(func(ctx context.Context) {
		s.dispatchAndSchedule(ctx, &job, settings)
	})
	if submitted {
		return
	}
	retryAt := s.now().UTC().Add(s.retryBase)
	background := context.Background()
	if err := s.repo.ScheduleRetry(background, n.ID, n.RetryCount, &retryAt); err != nil {
		s.logg.Error(s.logg.WithNotificationID(background, n.ID.String()), "failed to defer dispatch of rejected job", err)
		return
	}
	s.logg.Warn(s.logg.WithNotificationID(background, n.ID.String()), "dispatch queue full; deferred to sweeper")
}

// dispatchAndSchedule runs the initial delivery attempt and books the first
// retry when any planned channel is still unsent.
func (s *service) dispatchAndSchedule(ctx context.Context, n *models.Notification, settings *models.NotificationSettings) {
	s.dispatcher.Dispatch(ctx, n, settings, n.PendingChannels())

	pending := n.PendingChannels()
	if len(pending) == 0 {
		return
	}

	retryAt := s.now().UTC().Add(s.backoff(n.RetryCount))
	if err := s.repo.ScheduleRetry(ctx, n.ID, n.RetryCount, &retryAt); err != nil {
		s.logg.Error(s.logg.WithNotificationID(ctx, n.ID.String()), "failed to schedule retry", err)
		return
	}
	s.recordRetryScheduled(pending)
}

// backoff doubles the base per completed retry: 5m, 10m, 20m with defaults.
func (s *service) backoff(retryCount int) time.Duration {
	return s.retryBase << uint(retryCount)
}

func (s *service) recordRetryScheduled(channels []enums.Channel) {
	if s.metrics == nil {
		return
	}
	for _, channel := range channels {
		s.metrics.IncRetryScheduled(string(channel))
	}
}

// CreateBatch creates many notifications under one shared batch id. Items
// that fail validation or storage are logged and skipped; the rest proceed.
func (s *service) CreateBatch(ctx context.Context, requests []CreateParams, batchID *uuid.UUID) []*models.Notification {
	if batchID == nil {
		generated := uuid.New()
		batchID = &generated
	}

	created := make([]*models.Notification, 0, len(requests))
	for i := range requests {
		request := requests[i]
		request.BatchID = batchID
		notification, err := s.Create(ctx, request)
		if err != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"batch_id":   batchID.String(),
				"batch_item": i,
			})
			s.logg.Error(logCtx, "batch item failed", err)
			continue
		}
		if notification == nil {
			continue
		}
		created = append(created, notification)
	}
	return created
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.RecipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}

	query := listNotificationsParams{
		RecipientID: params.RecipientID,
		Limit:       params.Limit,
		UnreadOnly:  params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if recipientID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	count, err := s.repo.UnreadCount(ctx, recipientID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	if recipientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, recipientID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if recipientID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}

	count, err := s.repo.MarkAllRead(ctx, recipientID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) Delete(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	if recipientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	deleted, err := s.repo.Delete(ctx, recipientID, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notification")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

// Resend re-runs delivery for channels that never succeeded.
func (s *service) Resend(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	if recipientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	notification, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "notification not found")
	}
	if notification.RecipientID != recipientID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	if len(notification.PendingChannels()) == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "all channels already delivered")
	}

	settings, err := s.settings.Resolve(ctx, recipientID)
	if err != nil {
		return err
	}

	s.enqueueDispatch(notification, settings)
	return nil
}

// SweepRetries claims and re-dispatches notifications whose retry is due. A
// claim is a guarded update; concurrent sweepers race safely. Quiet hours are
// re-checked so overnight windows keep deferring without consuming retries.
func (s *service) SweepRetries(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.repo.ListRetryable(ctx, now, s.maxRetries, s.sweepBatch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list retryable notifications")
	}

	processed := 0
	for i := range rows {
		notification := rows[i]
		logCtx := s.logg.WithNotificationID(ctx, notification.ID.String())

		claimed, err := s.repo.ClaimRetry(ctx, notification.ID, now)
		if err != nil {
			s.logg.Error(logCtx, "failed to claim retry", err)
			continue
		}
		if !claimed {
			continue
		}

		settings, err := s.settings.Resolve(ctx, notification.RecipientID)
		if err != nil {
			s.logg.Error(logCtx, "failed to resolve settings for retry", err)
			retryAt := now.Add(s.retryBase)
			if scheduleErr := s.repo.ScheduleRetry(ctx, notification.ID, notification.RetryCount, &retryAt); scheduleErr != nil {
				s.logg.Error(logCtx, "failed to restore retry schedule", scheduleErr)
			}
			continue
		}

		if quietAt(settings.QuietHours, now) {
			deferred := quietWindowEnd(settings.QuietHours, now)
			if err := s.repo.ScheduleRetry(ctx, notification.ID, notification.RetryCount, &deferred); err != nil {
				s.logg.Error(logCtx, "failed to defer for quiet hours", err)
			}
			continue
		}

		attempted := notification.Attempted()
		s.dispatcher.Dispatch(ctx, &notification, settings, notification.PendingChannels())
		processed++

		pending := notification.PendingChannels()
		if len(pending) == 0 {
			continue
		}

		// A row with no recorded outcomes was deferred before its first
		// delivery pass; that pass keeps the base wait instead of
		// consuming a retry.
		newCount := notification.RetryCount + 1
		if !attempted {
			newCount = notification.RetryCount
		}
		if newCount >= s.maxRetries {
			if err := s.repo.ScheduleRetry(ctx, notification.ID, newCount, nil); err != nil {
				s.logg.Error(logCtx, "failed to record abandoned retry", err)
			}
			s.logg.Warn(s.logg.WithField(logCtx, "retry_count", newCount), "retry cap reached; abandoning")
			continue
		}

		retryAt := now.Add(s.backoff(newCount))
		if err := s.repo.ScheduleRetry(ctx, notification.ID, newCount, &retryAt); err != nil {
			s.logg.Error(logCtx, "failed to schedule retry", err)
			continue
		}
		s.recordRetryScheduled(pending)
	}
	return processed, nil
}

// ReapExpired deletes notifications past their expiry. Safe to run twice.
func (s *service) ReapExpired(ctx context.Context, now time.Time) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete expired notifications")
	}
	return deleted, nil
}

// Close drains the dispatch pool. Pending jobs run to completion.
func (s *service) Close() {
	s.pool.Close()
}
