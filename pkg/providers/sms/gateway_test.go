package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/davidfuentes/questly-backend/pkg/config"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) Sender {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sender, err := NewGatewaySender(config.SMSConfig{
		GatewayURL: server.URL,
		APIKey:     "secret",
		SenderID:   "QUESTLY",
		Timeout:    2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewGatewaySender: %v", err)
	}
	return sender
}

func TestGatewaySenderRequiresURL(t *testing.T) {
	if _, err := NewGatewaySender(config.SMSConfig{}); err == nil {
		t.Fatal("expected error for missing gateway url")
	}
}

func TestGatewaySenderSendsJSON(t *testing.T) {
	var got sendRequest
	var auth string
	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(sendResponse{MessageID: "sms-123"})
	})

	result, err := sender.Send(context.Background(), Message{To: "+15551234567", Body: "Quest complete"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.MessageID != "sms-123" {
		t.Fatalf("unexpected message id %q", result.MessageID)
	}
	if got.To != "+15551234567" || got.Body != "Quest complete" || got.Sender != "QUESTLY" {
		t.Fatalf("unexpected request payload: %+v", got)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected authorization header %q", auth)
	}
}

func TestGatewaySenderRequiresRecipient(t *testing.T) {
	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("gateway must not be called without a recipient")
	})
	if _, err := sender.Send(context.Background(), Message{Body: "hi"}); err == nil {
		t.Fatal("expected error for missing recipient")
	}
}

func TestGatewaySenderSurfacesHTTPErrors(t *testing.T) {
	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	_, err := sender.Send(context.Background(), Message{To: "+15551234567", Body: "hi"})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry status code, got %v", err)
	}
}

func TestGatewaySenderSurfacesGatewayErrors(t *testing.T) {
	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sendResponse{Error: "unknown destination"})
	})
	_, err := sender.Send(context.Background(), Message{To: "+15551234567", Body: "hi"})
	if err == nil || !strings.Contains(err.Error(), "unknown destination") {
		t.Fatalf("expected gateway error, got %v", err)
	}
}
