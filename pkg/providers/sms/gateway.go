package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/davidfuentes/questly-backend/pkg/config"
)

// Message is a single SMS addressed to one phone number.
type Message struct {
	To   string
	Body string
}

// Result reports the gateway-assigned id for an accepted message.
type Result struct {
	MessageID string
}

// Sender delivers SMS through the configured gateway.
type Sender interface {
	Send(ctx context.Context, msg Message) (*Result, error)
}

type gatewaySender struct {
	httpClient *http.Client
	url        string
	apiKey     string
	senderID   string
}

// NewGatewaySender builds a Sender that posts JSON to the SMS gateway.
func NewGatewaySender(cfg config.SMSConfig) (Sender, error) {
	if strings.TrimSpace(cfg.GatewayURL) == "" {
		return nil, errors.New("sms gateway url is required")
	}
	return &gatewaySender{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		url:        cfg.GatewayURL,
		apiKey:     cfg.APIKey,
		senderID:   cfg.SenderID,
	}, nil
}

type sendRequest struct {
	To     string `json:"to"`
	Body   string `json:"body"`
	Sender string `json:"sender,omitempty"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

func (s *gatewaySender) Send(ctx context.Context, msg Message) (*Result, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, errors.New("recipient phone is required")
	}

	payload, err := json.Marshal(sendRequest{
		To:     msg.To,
		Body:   msg.Body,
		Sender: s.senderID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending sms: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("reading sms response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded sendResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding sms response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("sms gateway error: %s", decoded.Error)
	}

	return &Result{MessageID: decoded.MessageID}, nil
}
