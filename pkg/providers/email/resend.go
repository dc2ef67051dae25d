package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v3"

	"github.com/davidfuentes/questly-backend/pkg/config"
)

// Message is a single email addressed to one recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Result reports the provider-assigned id for a delivered email.
type Result struct {
	MessageID string
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) (*Result, error)
}

type resendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender builds a Sender backed by the Resend API.
func NewResendSender(cfg config.ResendConfig) (Sender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("resend api key is required")
	}
	return &resendSender{
		client: resend.NewClient(cfg.APIKey),
		from:   cfg.DefaultFrom,
	}, nil
}

func (s *resendSender) Send(ctx context.Context, msg Message) (*Result, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, errors.New("recipient email is required")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("sending email: %w", err)
	}

	return &Result{MessageID: sent.Id}, nil
}
