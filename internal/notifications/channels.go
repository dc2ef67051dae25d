package notifications

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/google/uuid"

	"github.com/davidfuentes/questly-backend/internal/users"
	"github.com/davidfuentes/questly-backend/pkg/db/models"
	dbtypes "github.com/davidfuentes/questly-backend/pkg/db/types"
	"github.com/davidfuentes/questly-backend/pkg/enums"
	"github.com/davidfuentes/questly-backend/pkg/providers/email"
	"github.com/davidfuentes/questly-backend/pkg/providers/push"
	"github.com/davidfuentes/questly-backend/pkg/providers/sms"
)

// SendResult is the outcome of one channel attempt. Provider failures land
// here as values; a dispatcher never panics or propagates them.
type SendResult struct {
	Success   bool
	MessageID string
	Err       error
}

// ContactReader looks up a recipient's delivery addresses.
type ContactReader interface {
	GetContactInfo(ctx context.Context, userID uuid.UUID) (*users.ContactInfo, error)
}

func statusFromResult(result SendResult, now time.Time) dbtypes.ChannelStatus {
	status := dbtypes.ChannelStatus{Sent: result.Success}
	if result.Success {
		at := now
		status.SentAt = &at
		if result.MessageID != "" {
			id := result.MessageID
			status.MessageID = &id
		}
		return status
	}
	if result.Err != nil {
		msg := result.Err.Error()
		status.Error = &msg
	}
	return status
}

func (d *Dispatcher) send(ctx context.Context, channel enums.Channel, n *models.Notification, settings *models.NotificationSettings) SendResult {
	switch channel {
	case enums.ChannelInApp:
		return d.sendInApp()
	case enums.ChannelPush:
		return d.sendPush(ctx, n, settings)
	case enums.ChannelEmail:
		return d.sendEmail(ctx, n)
	case enums.ChannelSMS:
		return d.sendSMS(ctx, n)
	}
	return SendResult{Err: errUnknownChannel(channel)}
}

// sendInApp succeeds by construction: the stored row is the delivery, clients
// read it from the list endpoint.
func (d *Dispatcher) sendInApp() SendResult {
	return SendResult{Success: true}
}

func (d *Dispatcher) sendPush(ctx context.Context, n *models.Notification, settings *models.NotificationSettings) SendResult {
	if d.push == nil {
		return SendResult{Err: errors.New("push provider not configured")}
	}
	tokens := settings.PushTokens.Active()
	if len(tokens) == 0 {
		return SendResult{Err: errors.New("no active push tokens")}
	}

	data := map[string]string{
		"notificationId": n.ID.String(),
		"type":           string(n.Type),
	}
	if n.ActionURL != nil {
		data["actionUrl"] = *n.ActionURL
	}

	var lastErr error
	messageID := ""
	delivered := 0
	for _, token := range tokens {
		result, err := d.push.Send(ctx, push.Message{
			Token: token.Token,
			Title: n.Title,
			Body:  n.Content,
			Data:  data,
		})
		if err != nil {
			lastErr = err
			if errors.Is(err, push.ErrTokenInvalid) && d.settings != nil {
				if deactivateErr := d.settings.DeactivatePushToken(ctx, n.RecipientID, token.Token); deactivateErr != nil {
					d.logg.Warn(ctx, "failed to deactivate stale push token")
				}
			}
			continue
		}
		delivered++
		if messageID == "" {
			messageID = result.MessageID
		}
	}

	if delivered == 0 {
		return SendResult{Err: fmt.Errorf("push delivery failed: %w", lastErr)}
	}
	return SendResult{Success: true, MessageID: messageID}
}

func (d *Dispatcher) sendEmail(ctx context.Context, n *models.Notification) SendResult {
	if d.email == nil {
		return SendResult{Err: errors.New("email provider not configured")}
	}
	contact, err := d.contacts.GetContactInfo(ctx, n.RecipientID)
	if err != nil {
		return SendResult{Err: fmt.Errorf("contact lookup: %w", err)}
	}
	if contact.Email == nil || *contact.Email == "" {
		return SendResult{Err: errors.New("recipient has no email address")}
	}

	body := fmt.Sprintf("<p>%s</p>", html.EscapeString(n.Content))
	if n.ActionURL != nil {
		body += fmt.Sprintf(`<p><a href="%s">View</a></p>`, html.EscapeString(*n.ActionURL))
	}

	result, err := d.email.Send(ctx, email.Message{
		To:      *contact.Email,
		Subject: n.Title,
		HTML:    body,
		Text:    n.Content,
	})
	if err != nil {
		return SendResult{Err: err}
	}
	return SendResult{Success: true, MessageID: result.MessageID}
}

func (d *Dispatcher) sendSMS(ctx context.Context, n *models.Notification) SendResult {
	if d.sms == nil {
		return SendResult{Err: errors.New("sms provider not configured")}
	}
	contact, err := d.contacts.GetContactInfo(ctx, n.RecipientID)
	if err != nil {
		return SendResult{Err: fmt.Errorf("contact lookup: %w", err)}
	}
	if contact.Phone == nil || *contact.Phone == "" {
		return SendResult{Err: errors.New("recipient has no phone number")}
	}

	result, err := d.sms.Send(ctx, sms.Message{
		To:   *contact.Phone,
		Body: fmt.Sprintf("%s: %s", n.Title, n.Content),
	})
	if err != nil {
		return SendResult{Err: err}
	}
	return SendResult{Success: true, MessageID: result.MessageID}
}
