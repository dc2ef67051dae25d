package push

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/davidfuentes/questly-backend/pkg/config"
)

// Message is a single push payload addressed to one device token.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Result reports the provider-assigned id for a delivered message.
type Result struct {
	MessageID string
}

// Sender delivers push messages to a single device token.
type Sender interface {
	Send(ctx context.Context, msg Message) (*Result, error)
}

// ErrTokenInvalid marks tokens FCM no longer recognizes. Callers should
// deactivate the token rather than retry.
var ErrTokenInvalid = errors.New("push token invalid or unregistered")

type fcmSender struct {
	service *fcm.Service
	parent  string
}

// NewFCMSender builds a Sender backed by the FCM HTTP v1 API.
func NewFCMSender(ctx context.Context, cfg config.FCMConfig, gcp config.GCPConfig) (Sender, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		projectID = strings.TrimSpace(gcp.ProjectID)
	}
	if projectID == "" {
		return nil, errors.New("fcm project id is required")
	}

	opts := []option.ClientOption{}
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	} else if gcp.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	}

	svc, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating fcm service: %w", err)
	}

	return &fcmSender{
		service: svc,
		parent:  "projects/" + projectID,
	}, nil
}

func (s *fcmSender) Send(ctx context.Context, msg Message) (*Result, error) {
	if strings.TrimSpace(msg.Token) == "" {
		return nil, errors.New("push token is required")
	}

	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: msg.Token,
			Notification: &fcm.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		},
	}

	sent, err := s.service.Projects.Messages.Send(s.parent, req).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == 404 || gerr.Code == 410) {
			return nil, fmt.Errorf("%w: %s", ErrTokenInvalid, gerr.Message)
		}
		return nil, fmt.Errorf("sending push message: %w", err)
	}

	return &Result{MessageID: sent.Name}, nil
}
