package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/davidfuentes/questly-backend/api/middleware"
	"github.com/davidfuentes/questly-backend/internal/notifications"
	"github.com/davidfuentes/questly-backend/pkg/db/models"
	"github.com/davidfuentes/questly-backend/pkg/logger"
)

type testNotificationsService struct {
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
	unreadFn      func(ctx context.Context, recipientID uuid.UUID) (int64, error)
	markReadFn    func(ctx context.Context, recipientID, notificationID uuid.UUID) error
	markAllReadFn func(ctx context.Context, recipientID uuid.UUID) (int64, error)
	deleteFn      func(ctx context.Context, recipientID, notificationID uuid.UUID) error
	resendFn      func(ctx context.Context, recipientID, notificationID uuid.UUID) error
	batchFn       func(ctx context.Context, requests []notifications.CreateParams, batchID *uuid.UUID) []*models.Notification
}

func (s *testNotificationsService) Create(ctx context.Context, params notifications.CreateParams) (*models.Notification, error) {
	return nil, nil
}

func (s *testNotificationsService) CreateBatch(ctx context.Context, requests []notifications.CreateParams, batchID *uuid.UUID) []*models.Notification {
	if s.batchFn != nil {
		return s.batchFn(ctx, requests, batchID)
	}
	return nil
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &notifications.ListResult{}, nil
}

func (s *testNotificationsService) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if s.unreadFn != nil {
		return s.unreadFn(ctx, recipientID)
	}
	return 0, nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, recipientID, notificationID)
	}
	return nil
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx, recipientID)
	}
	return 0, nil
}

func (s *testNotificationsService) Delete(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, recipientID, notificationID)
	}
	return nil
}

func (s *testNotificationsService) Resend(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	if s.resendFn != nil {
		return s.resendFn(ctx, recipientID, notificationID)
	}
	return nil
}

func (s *testNotificationsService) SweepRetries(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func (s *testNotificationsService) ReapExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (s *testNotificationsService) Close() {}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestListNotificationsParsesQuery(t *testing.T) {
	recipientID := uuid.New()
	var got notifications.ListParams
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			got = params
			return &notifications.ListResult{Cursor: "next"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=10&cursor=abc&unreadOnly=true", nil)
	req = withUser(req, recipientID.String())
	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got.RecipientID != recipientID {
		t.Fatalf("unexpected recipient %s", got.RecipientID)
	}
	if got.Limit != 10 || got.Cursor != "abc" || !got.UnreadOnly {
		t.Fatalf("query not forwarded: %+v", got)
	}
}

func TestListNotificationsRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=zero", nil)
	req = withUser(req, uuid.NewString())
	resp := httptest.NewRecorder()
	ListNotifications(&testNotificationsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListNotificationsMissingUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	resp := httptest.NewRecorder()
	ListNotifications(&testNotificationsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestUnreadNotificationsCount(t *testing.T) {
	recipientID := uuid.New()
	svc := &testNotificationsService{
		unreadFn: func(ctx context.Context, rid uuid.UUID) (int64, error) {
			if rid != recipientID {
				t.Fatalf("unexpected recipient %s", rid)
			}
			return 7, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil)
	req = withUser(req, recipientID.String())
	resp := httptest.NewRecorder()
	UnreadNotificationsCount(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data map[string]float64 `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["unread"] != 7 {
		t.Fatalf("expected unread=7 got %v", envelope.Data["unread"])
	}
}

func TestMarkNotificationReadSuccess(t *testing.T) {
	recipientID := uuid.New()
	notificationID := uuid.New()
	called := false
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, rid, nid uuid.UUID) error {
			called = true
			if rid != recipientID {
				t.Fatalf("unexpected recipient %s", rid)
			}
			if nid != notificationID {
				t.Fatalf("unexpected notification %s", nid)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", nil)
	req = withUser(req, recipientID.String())
	req = addRouteParam(req, "notificationId", notificationID.String())
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
	var envelope struct {
		Data map[string]bool `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !envelope.Data["read"] {
		t.Fatal("response missing read flag")
	}
}

func TestMarkNotificationReadInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/invalid/read", nil)
	req = withUser(req, uuid.NewString())
	req = addRouteParam(req, "notificationId", "invalid")
	resp := httptest.NewRecorder()
	MarkNotificationRead(&testNotificationsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkAllNotificationsReadSuccess(t *testing.T) {
	recipientID := uuid.New()
	svc := &testNotificationsService{
		markAllReadFn: func(ctx context.Context, rid uuid.UUID) (int64, error) {
			if rid != recipientID {
				t.Fatalf("unexpected recipient %s", rid)
			}
			return 5, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil)
	req = withUser(req, recipientID.String())
	resp := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data map[string]float64 `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["updated"] != 5 {
		t.Fatalf("expected updated=5 got %v", envelope.Data["updated"])
	}
}

func TestDeleteNotificationSuccess(t *testing.T) {
	recipientID := uuid.New()
	notificationID := uuid.New()
	called := false
	svc := &testNotificationsService{
		deleteFn: func(ctx context.Context, rid, nid uuid.UUID) error {
			called = true
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications/"+notificationID.String(), nil)
	req = withUser(req, recipientID.String())
	req = addRouteParam(req, "notificationId", notificationID.String())
	resp := httptest.NewRecorder()
	DeleteNotification(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestResendNotificationSuccess(t *testing.T) {
	recipientID := uuid.New()
	notificationID := uuid.New()
	svc := &testNotificationsService{
		resendFn: func(ctx context.Context, rid, nid uuid.UUID) error {
			if rid != recipientID || nid != notificationID {
				t.Fatal("wrong identifiers forwarded")
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/resend", nil)
	req = withUser(req, recipientID.String())
	req = addRouteParam(req, "notificationId", notificationID.String())
	resp := httptest.NewRecorder()
	ResendNotification(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestCreateAnnouncementFansOut(t *testing.T) {
	recipients := []uuid.UUID{uuid.New(), uuid.New()}
	var got []notifications.CreateParams
	svc := &testNotificationsService{
		batchFn: func(ctx context.Context, requests []notifications.CreateParams, batchID *uuid.UUID) []*models.Notification {
			got = requests
			out := make([]*models.Notification, len(requests))
			for i := range requests {
				out[i] = &models.Notification{ID: uuid.New()}
			}
			return out
		},
	}

	body := `{"recipient_ids":["` + recipients[0].String() + `","` + recipients[1].String() + `"],"title":"Maintenance","content":"Back at 02:00 UTC","priority":"high"}`
	req := httptest.NewRequest(http.MethodPost, "/api/internal/v1/notifications/announcements", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreateAnnouncement(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(got))
	}
	for i, request := range got {
		if request.RecipientID != recipients[i] {
			t.Fatalf("wrong recipient at %d", i)
		}
	}
	var envelope struct {
		Data map[string]float64 `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["created"] != 2 {
		t.Fatalf("expected created=2 got %v", envelope.Data["created"])
	}
}

func TestCreateAnnouncementRejectsEmptyRecipients(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/internal/v1/notifications/announcements", strings.NewReader(`{"recipient_ids":[],"title":"x","content":"y"}`))
	resp := httptest.NewRecorder()
	CreateAnnouncement(&testNotificationsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateAnnouncementRejectsBadPriority(t *testing.T) {
	body := `{"recipient_ids":["` + uuid.NewString() + `"],"title":"x","content":"y","priority":"urgent"}`
	req := httptest.NewRequest(http.MethodPost, "/api/internal/v1/notifications/announcements", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreateAnnouncement(&testNotificationsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
