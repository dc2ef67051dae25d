package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/davidfuentes/questly-backend/pkg/db/models"
	dbtypes "github.com/davidfuentes/questly-backend/pkg/db/types"
	"github.com/davidfuentes/questly-backend/pkg/enums"
	"github.com/davidfuentes/questly-backend/pkg/logger"
)

const (
	eventsConsumerScope = "events"
	eventGuardTTL       = 24 * time.Hour

	eventAchievementUnlocked = "achievement.unlocked"
	eventSocialLiked         = "social.liked"
	eventSocialCommented     = "social.commented"
	eventSocialFollowed      = "social.followed"
	eventSystemAnnouncement  = "system.announcement"
)

// eventCreator is the service surface the consumer drives.
type eventCreator interface {
	Create(ctx context.Context, params CreateParams) (*models.Notification, error)
	CreateBatch(ctx context.Context, requests []CreateParams, batchID *uuid.UUID) []*models.Notification
}

// idempotencyGuard deduplicates at-least-once event delivery.
type idempotencyGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Consumer turns domain events into notifications.
type Consumer struct {
	svc          eventCreator
	subscription *pubsub.Subscriber
	guard        idempotencyGuard
	logg         *logger.Logger
}

// NewConsumer builds the domain-event consumer.
func NewConsumer(svc eventCreator, subscription *pubsub.Subscriber, guard idempotencyGuard, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("events subscription required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		svc:          svc,
		subscription: subscription,
		guard:        guard,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

// eventEnvelope is the published wrapper around every domain event.
type eventEnvelope struct {
	EventID string          `json:"eventId"`
	Data    json.RawMessage `json:"data"`
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !handledEventType(eventType) {
		c.logg.Info(logCtx, "skipping unhandled event type")
		return processResult{ack: true}
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	guardKey := c.guard.IdempotencyKey(eventsConsumerScope, envelope.EventID)
	fresh, err := c.guard.SetNX(ctx, guardKey, "1", eventGuardTTL)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !fresh {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "event handling failed", err)
		_ = c.guard.Del(ctx, guardKey)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func handledEventType(eventType string) bool {
	switch eventType {
	case eventAchievementUnlocked, eventSocialLiked, eventSocialCommented,
		eventSocialFollowed, eventSystemAnnouncement:
		return true
	}
	return false
}

func (c *Consumer) handleEvent(ctx context.Context, eventType string, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case eventAchievementUnlocked:
		return c.handleAchievement(ctx, data, logCtx)
	case eventSocialLiked, eventSocialCommented, eventSocialFollowed:
		return c.handleSocial(ctx, eventType, data, logCtx)
	case eventSystemAnnouncement:
		return c.handleAnnouncement(ctx, data, logCtx)
	}
	return nil
}

type achievementUnlockedPayload struct {
	UserID          uuid.UUID `json:"userId"`
	AchievementID   uuid.UUID `json:"achievementId"`
	AchievementName string    `json:"achievementName"`
	Icon            string    `json:"icon,omitempty"`
}

func (c *Consumer) handleAchievement(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload achievementUnlockedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse achievement payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}

	params := CreateParams{
		RecipientID: payload.UserID,
		Type:        enums.NotificationTypeAchievement,
		Title:       "Achievement unlocked!",
		Content:     fmt.Sprintf("You earned %q.", payload.AchievementName),
		Data: dbtypes.Payload{
			ObjectType: "achievement",
			ObjectID:   payload.AchievementID.String(),
		},
	}
	if payload.Icon != "" {
		params.Icon = &payload.Icon
	}

	notification, err := c.svc.Create(ctx, params)
	if err != nil {
		return err
	}
	if notification == nil {
		c.logg.Info(logCtx, "achievement notification skipped by preferences")
		return nil
	}
	c.logg.Info(c.logg.WithNotificationID(logCtx, notification.ID.String()), "achievement notification created")
	return nil
}

type socialActivityPayload struct {
	ActorID     uuid.UUID `json:"actorId"`
	ActorName   string    `json:"actorName"`
	RecipientID uuid.UUID `json:"recipientId"`
	ObjectType  string    `json:"objectType,omitempty"`
	ObjectID    string    `json:"objectId,omitempty"`
	Preview     string    `json:"preview,omitempty"`
}

func (c *Consumer) handleSocial(ctx context.Context, eventType string, data json.RawMessage, logCtx context.Context) error {
	var payload socialActivityPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse social payload: %w", err)
	}
	if payload.RecipientID == uuid.Nil {
		return fmt.Errorf("recipient id missing")
	}
	// Users do not notify themselves.
	if payload.ActorID == payload.RecipientID {
		c.logg.Info(logCtx, "skipping self-referential activity")
		return nil
	}

	actor := payload.ActorName
	if actor == "" {
		actor = "Someone"
	}

	var notificationType enums.NotificationType
	var title, content string
	switch eventType {
	case eventSocialLiked:
		notificationType = enums.NotificationTypeLike
		title = "New like"
		content = fmt.Sprintf("%s liked your %s.", actor, objectNoun(payload.ObjectType))
	case eventSocialCommented:
		notificationType = enums.NotificationTypeComment
		title = "New comment"
		content = fmt.Sprintf("%s commented on your %s.", actor, objectNoun(payload.ObjectType))
		if payload.Preview != "" {
			content = fmt.Sprintf("%s %q", content, payload.Preview)
		}
	case eventSocialFollowed:
		notificationType = enums.NotificationTypeFollow
		title = "New follower"
		content = fmt.Sprintf("%s started following you.", actor)
	}

	params := CreateParams{
		RecipientID: payload.RecipientID,
		SenderID:    &payload.ActorID,
		Type:        notificationType,
		Title:       title,
		Content:     content,
		Data: dbtypes.Payload{
			ObjectType: payload.ObjectType,
			ObjectID:   payload.ObjectID,
		},
	}

	notification, err := c.svc.Create(ctx, params)
	if err != nil {
		return err
	}
	if notification == nil {
		c.logg.Info(logCtx, "social notification skipped by preferences")
		return nil
	}
	c.logg.Info(c.logg.WithNotificationID(logCtx, notification.ID.String()), "social notification created")
	return nil
}

func objectNoun(objectType string) string {
	if objectType == "" {
		return "post"
	}
	return objectType
}

type systemAnnouncementPayload struct {
	RecipientIDs []uuid.UUID `json:"recipientIds"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
	Priority     string      `json:"priority,omitempty"`
	ExpiresAt    *time.Time  `json:"expiresAt,omitempty"`
}

func (c *Consumer) handleAnnouncement(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload systemAnnouncementPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse announcement payload: %w", err)
	}
	if len(payload.RecipientIDs) == 0 {
		return fmt.Errorf("recipient ids missing")
	}

	priority := enums.PriorityNormal
	if payload.Priority != "" {
		parsed, err := enums.ParsePriority(payload.Priority)
		if err != nil {
			return err
		}
		priority = parsed
	}

	requests := make([]CreateParams, 0, len(payload.RecipientIDs))
	for _, recipientID := range payload.RecipientIDs {
		requests = append(requests, CreateParams{
			RecipientID: recipientID,
			Type:        enums.NotificationTypeSystem,
			Priority:    priority,
			Title:       payload.Title,
			Content:     payload.Content,
			ExpiresAt:   payload.ExpiresAt,
		})
	}

	created := c.svc.CreateBatch(ctx, requests, nil)
	c.logg.Info(c.logg.WithField(logCtx, "created", len(created)), "announcement batch created")
	return nil
}
