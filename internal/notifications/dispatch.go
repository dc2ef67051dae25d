package notifications

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/davidfuentes/questly-backend/pkg/db/models"
	"github.com/davidfuentes/questly-backend/pkg/enums"
	pkgerrors "github.com/davidfuentes/questly-backend/pkg/errors"
	"github.com/davidfuentes/questly-backend/pkg/logger"
	"github.com/davidfuentes/questly-backend/pkg/metrics"
	"github.com/davidfuentes/questly-backend/pkg/providers/email"
	"github.com/davidfuentes/questly-backend/pkg/providers/push"
	"github.com/davidfuentes/questly-backend/pkg/providers/sms"
)

const defaultDispatchTimeout = 10 * time.Second

// DispatcherParams wire the orchestrator's collaborators. Push, email and SMS
// senders are optional; a missing provider fails that channel as a value, not
// at startup.
type DispatcherParams struct {
	Repository Repository
	Settings   SettingsService
	Contacts   ContactReader
	Push       push.Sender
	Email      email.Sender
	SMS        sms.Sender
	Metrics    *metrics.DispatchMetrics
	Logger     *logger.Logger
	Timeout    time.Duration
}

// Dispatcher fans a notification out to its channels and records each
// outcome independently.
type Dispatcher struct {
	repo     Repository
	settings SettingsService
	contacts ContactReader
	push     push.Sender
	email    email.Sender
	sms      sms.Sender
	metrics  *metrics.DispatchMetrics
	logg     *logger.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewDispatcher builds the channel orchestrator.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Contacts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "contact reader required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Dispatcher{
		repo:     params.Repository,
		settings: params.Settings,
		contacts: params.Contacts,
		push:     params.Push,
		email:    params.Email,
		sms:      params.SMS,
		metrics:  params.Metrics,
		logg:     params.Logger,
		timeout:  timeout,
		now:      time.Now,
	}, nil
}

// Dispatch attempts delivery on every requested channel concurrently and
// writes each channel's status column as soon as its attempt resolves.
// Channels already marked sent are skipped. It never returns an error: each
// outcome lives in the result map and the persisted status.
func (d *Dispatcher) Dispatch(ctx context.Context, n *models.Notification, settings *models.NotificationSettings, channels []enums.Channel) map[enums.Channel]SendResult {
	results := make(map[enums.Channel]SendResult, len(channels))
	if n == nil || len(channels) == 0 {
		return results
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, channel := range channels {
		if n.Status(channel).Sent {
			continue
		}
		channel := channel
		g.Go(func() error {
			result := d.attempt(ctx, channel, n, settings)
			mu.Lock()
			results[channel] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (d *Dispatcher) attempt(ctx context.Context, channel enums.Channel, n *models.Notification, settings *models.NotificationSettings) SendResult {
	start := d.now()
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	result := d.send(sendCtx, channel, n, settings)
	cancel()
	if d.metrics != nil {
		d.metrics.ObserveAttempt(string(channel), result.Success, d.now().Sub(start))
	}

	status := statusFromResult(result, d.now().UTC())
	logCtx := d.logg.WithNotificationID(ctx, n.ID.String())
	logCtx = d.logg.WithChannel(logCtx, string(channel))
	if err := d.repo.UpdateChannelStatus(ctx, n.ID, channel, status); err != nil {
		d.logg.Error(logCtx, "failed to persist channel status", err)
	}
	n.SetStatus(channel, status)

	if result.Success {
		d.logg.Info(logCtx, "channel delivered")
	} else {
		d.logg.Warn(logCtx, "channel delivery failed")
	}
	return result
}
