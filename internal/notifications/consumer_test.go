package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/davidfuentes/questly-backend/pkg/db/models"
	"github.com/davidfuentes/questly-backend/pkg/enums"
	"github.com/davidfuentes/questly-backend/pkg/logger"
)

type fakeGuard struct {
	seen    map[string]bool
	setErr  error
	deleted []string
}

func (f *fakeGuard) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeGuard) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.seen, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func (f *fakeGuard) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("questly:idempotency:%s:%s", scope, id)
}

type fakeEventCreator struct {
	created   []CreateParams
	batches   [][]CreateParams
	createErr error
}

func (f *fakeEventCreator) Create(ctx context.Context, params CreateParams) (*models.Notification, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, params)
	return &models.Notification{ID: uuid.New(), RecipientID: params.RecipientID}, nil
}

func (f *fakeEventCreator) CreateBatch(ctx context.Context, requests []CreateParams, batchID *uuid.UUID) []*models.Notification {
	f.batches = append(f.batches, requests)
	out := make([]*models.Notification, 0, len(requests))
	for _, request := range requests {
		out = append(out, &models.Notification{ID: uuid.New(), RecipientID: request.RecipientID})
	}
	return out
}

func newTestConsumer(svc eventCreator, guard idempotencyGuard) *Consumer {
	return &Consumer{
		svc:   svc,
		guard: guard,
		logg:  logger.New(logger.Options{ServiceName: "test"}),
	}
}

func eventMessage(t *testing.T, eventType string, payload any) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(eventEnvelope{
		EventID: uuid.NewString(),
		Data:    data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       envelope,
		Attributes: map[string]string{"event_type": eventType},
	}
}

func TestConsumerAchievementEvent(t *testing.T) {
	svc := &fakeEventCreator{}
	consumer := newTestConsumer(svc, &fakeGuard{})

	userID := uuid.New()
	msg := eventMessage(t, eventAchievementUnlocked, achievementUnlockedPayload{
		UserID:          userID,
		AchievementID:   uuid.New(),
		AchievementName: "First Quest",
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(svc.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(svc.created))
	}
	created := svc.created[0]
	if created.RecipientID != userID {
		t.Fatal("wrong recipient")
	}
	if created.Type != enums.NotificationTypeAchievement {
		t.Fatalf("wrong type %s", created.Type)
	}
}

func TestConsumerDuplicateEventAcksWithoutCreating(t *testing.T) {
	svc := &fakeEventCreator{}
	guard := &fakeGuard{}
	consumer := newTestConsumer(svc, guard)

	msg := eventMessage(t, eventSocialFollowed, socialActivityPayload{
		ActorID:     uuid.New(),
		ActorName:   "Ada",
		RecipientID: uuid.New(),
	})

	first := consumer.process(context.Background(), msg)
	second := consumer.process(context.Background(), msg)
	if !first.ack || !second.ack {
		t.Fatal("both deliveries must ack")
	}
	if len(svc.created) != 1 {
		t.Fatalf("duplicate delivery must not create twice, got %d", len(svc.created))
	}
}

func TestConsumerUnhandledEventTypeAcks(t *testing.T) {
	svc := &fakeEventCreator{}
	consumer := newTestConsumer(svc, &fakeGuard{})

	msg := eventMessage(t, "billing.invoice_paid", map[string]string{})
	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatal("unhandled event types are acked and skipped")
	}
	if len(svc.created) != 0 {
		t.Fatal("nothing should be created for unhandled events")
	}
}

func TestConsumerMalformedEnvelopeAcks(t *testing.T) {
	consumer := newTestConsumer(&fakeEventCreator{}, &fakeGuard{})

	msg := &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       []byte("{not json"),
		Attributes: map[string]string{"event_type": eventSocialLiked},
	}
	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatal("poison messages are acked, not redelivered forever")
	}
}

func TestConsumerCreateFailureNacksAndReleasesGuard(t *testing.T) {
	svc := &fakeEventCreator{createErr: errors.New("db down")}
	guard := &fakeGuard{}
	consumer := newTestConsumer(svc, guard)

	msg := eventMessage(t, eventSocialLiked, socialActivityPayload{
		ActorID:     uuid.New(),
		ActorName:   "Ada",
		RecipientID: uuid.New(),
	})

	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatal("expected nack on handler failure")
	}
	if len(guard.deleted) != 1 {
		t.Fatal("guard key must be released so the redelivery can retry")
	}

	// Redelivery after the dependency recovers succeeds.
	svc.createErr = nil
	result = consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatal("expected ack on redelivery")
	}
	if len(svc.created) != 1 {
		t.Fatalf("expected one notification after recovery, got %d", len(svc.created))
	}
}

func TestConsumerSelfActivitySkipped(t *testing.T) {
	svc := &fakeEventCreator{}
	consumer := newTestConsumer(svc, &fakeGuard{})

	actor := uuid.New()
	msg := eventMessage(t, eventSocialLiked, socialActivityPayload{
		ActorID:     actor,
		ActorName:   "Ada",
		RecipientID: actor,
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack || len(svc.created) != 0 {
		t.Fatal("self-referential activity must be acked without creating")
	}
}

func TestConsumerAnnouncementFansOut(t *testing.T) {
	svc := &fakeEventCreator{}
	consumer := newTestConsumer(svc, &fakeGuard{})

	recipients := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	msg := eventMessage(t, eventSystemAnnouncement, systemAnnouncementPayload{
		RecipientIDs: recipients,
		Title:        "Maintenance tonight",
		Content:      "Questly will be briefly unavailable at 02:00 UTC.",
		Priority:     "high",
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatal("expected ack")
	}
	if len(svc.batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(svc.batches))
	}
	batch := svc.batches[0]
	if len(batch) != 3 {
		t.Fatalf("expected 3 batch items, got %d", len(batch))
	}
	for _, item := range batch {
		if item.Type != enums.NotificationTypeSystem {
			t.Fatalf("wrong type %s", item.Type)
		}
		if item.Priority != enums.PriorityHigh {
			t.Fatalf("wrong priority %s", item.Priority)
		}
	}
}
