package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/davidfuentes/questly-backend/internal/notifications"
	"github.com/davidfuentes/questly-backend/pkg/db/models"
	dbtypes "github.com/davidfuentes/questly-backend/pkg/db/types"
)

type testSettingsService struct {
	resolveFn     func(ctx context.Context, userID uuid.UUID) (*models.NotificationSettings, error)
	updateFn      func(ctx context.Context, userID uuid.UUID, params notifications.UpdateSettingsParams) (*models.NotificationSettings, error)
	addTokenFn    func(ctx context.Context, userID uuid.UUID, token dbtypes.PushToken) error
	removeTokenFn func(ctx context.Context, userID uuid.UUID, deviceID string) error
}

func (s *testSettingsService) Resolve(ctx context.Context, userID uuid.UUID) (*models.NotificationSettings, error) {
	if s.resolveFn != nil {
		return s.resolveFn(ctx, userID)
	}
	return models.DefaultNotificationSettings(userID), nil
}

func (s *testSettingsService) Update(ctx context.Context, userID uuid.UUID, params notifications.UpdateSettingsParams) (*models.NotificationSettings, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, userID, params)
	}
	return models.DefaultNotificationSettings(userID), nil
}

func (s *testSettingsService) AddPushToken(ctx context.Context, userID uuid.UUID, token dbtypes.PushToken) error {
	if s.addTokenFn != nil {
		return s.addTokenFn(ctx, userID, token)
	}
	return nil
}

func (s *testSettingsService) RemovePushToken(ctx context.Context, userID uuid.UUID, deviceID string) error {
	if s.removeTokenFn != nil {
		return s.removeTokenFn(ctx, userID, deviceID)
	}
	return nil
}

func (s *testSettingsService) DeactivatePushToken(ctx context.Context, userID uuid.UUID, token string) error {
	return nil
}

func TestGetNotificationSettings(t *testing.T) {
	userID := uuid.New()
	svc := &testSettingsService{
		resolveFn: func(ctx context.Context, uid uuid.UUID) (*models.NotificationSettings, error) {
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			return models.DefaultNotificationSettings(uid), nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/settings", nil)
	req = withUser(req, userID.String())
	resp := httptest.NewRecorder()
	GetNotificationSettings(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestGetNotificationSettingsMissingUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/settings", nil)
	resp := httptest.NewRecorder()
	GetNotificationSettings(&testSettingsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestUpdateNotificationSettingsForwardsPartialUpdate(t *testing.T) {
	userID := uuid.New()
	var got notifications.UpdateSettingsParams
	svc := &testSettingsService{
		updateFn: func(ctx context.Context, uid uuid.UUID, params notifications.UpdateSettingsParams) (*models.NotificationSettings, error) {
			got = params
			return models.DefaultNotificationSettings(uid), nil
		},
	}

	body := `{"enabled":false,"quiet_hours":{"enabled":true,"start":"22:00","end":"07:00"}}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notifications/settings", strings.NewReader(body))
	req = withUser(req, userID.String())
	resp := httptest.NewRecorder()
	UpdateNotificationSettings(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.Enabled == nil || *got.Enabled {
		t.Fatal("enabled=false not forwarded")
	}
	if got.QuietHours == nil || got.QuietHours.Start != "22:00" || got.QuietHours.End != "07:00" {
		t.Fatalf("quiet hours not forwarded: %+v", got.QuietHours)
	}
	if got.Types != nil {
		t.Fatal("absent types must stay nil")
	}
}

func TestUpdateNotificationSettingsRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notifications/settings", strings.NewReader(`{"volume":11}`))
	req = withUser(req, uuid.NewString())
	resp := httptest.NewRecorder()
	UpdateNotificationSettings(&testSettingsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAddPushToken(t *testing.T) {
	userID := uuid.New()
	var got dbtypes.PushToken
	svc := &testSettingsService{
		addTokenFn: func(ctx context.Context, uid uuid.UUID, token dbtypes.PushToken) error {
			got = token
			return nil
		},
	}

	body := `{"token":"fcm-abc","device_id":"device-1","platform":"android"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/settings/push-tokens", strings.NewReader(body))
	req = withUser(req, userID.String())
	resp := httptest.NewRecorder()
	AddPushToken(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.Token != "fcm-abc" || got.DeviceID != "device-1" || got.Platform != "android" {
		t.Fatalf("token not forwarded: %+v", got)
	}
	var envelope struct {
		Data map[string]bool `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !envelope.Data["registered"] {
		t.Fatal("response missing registered flag")
	}
}

func TestAddPushTokenRequiresToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/settings/push-tokens", strings.NewReader(`{"device_id":"device-1"}`))
	req = withUser(req, uuid.NewString())
	resp := httptest.NewRecorder()
	AddPushToken(&testSettingsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRemovePushToken(t *testing.T) {
	userID := uuid.New()
	var gotDevice string
	svc := &testSettingsService{
		removeTokenFn: func(ctx context.Context, uid uuid.UUID, deviceID string) error {
			gotDevice = deviceID
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications/settings/push-tokens/device-1", nil)
	req = withUser(req, userID.String())
	req = addRouteParam(req, "deviceId", "device-1")
	resp := httptest.NewRecorder()
	RemovePushToken(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if gotDevice != "device-1" {
		t.Fatalf("unexpected device %q", gotDevice)
	}
}
