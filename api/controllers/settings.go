package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/davidfuentes/questly-backend/api/responses"
	"github.com/davidfuentes/questly-backend/api/validators"
	"github.com/davidfuentes/questly-backend/internal/notifications"
	dbtypes "github.com/davidfuentes/questly-backend/pkg/db/types"
	pkgerrors "github.com/davidfuentes/questly-backend/pkg/errors"
	"github.com/davidfuentes/questly-backend/pkg/logger"
)

// GetNotificationSettings returns the caller's preferences, creating the
// defaults on first access.
func GetNotificationSettings(svc notifications.SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		userID, err := recipientFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settings, err := svc.Resolve(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}

type updateSettingsRequest struct {
	Enabled    *bool                   `json:"enabled,omitempty"`
	QuietHours *dbtypes.QuietHours     `json:"quiet_hours,omitempty"`
	Types      dbtypes.TypePreferences `json:"types,omitempty"`
}

// UpdateNotificationSettings applies a partial preferences update. Absent
// fields keep their stored value.
func UpdateNotificationSettings(svc notifications.SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		userID, err := recipientFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateSettingsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settings, err := svc.Update(r.Context(), userID, notifications.UpdateSettingsParams{
			Enabled:    payload.Enabled,
			QuietHours: payload.QuietHours,
			Types:      payload.Types,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}

type addPushTokenRequest struct {
	Token    string `json:"token" validate:"required,min=1"`
	DeviceID string `json:"device_id" validate:"required,min=1"`
	Platform string `json:"platform,omitempty"`
}

// AddPushToken registers a device token for the caller, replacing any
// previous registration for the same device.
func AddPushToken(svc notifications.SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		userID, err := recipientFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addPushTokenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.AddPushToken(r.Context(), userID, dbtypes.PushToken{
			Token:    payload.Token,
			DeviceID: payload.DeviceID,
			Platform: payload.Platform,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]bool{"registered": true})
	}
}

// RemovePushToken drops the registration for one device.
func RemovePushToken(svc notifications.SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		userID, err := recipientFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deviceID := chi.URLParam(r, "deviceId")
		if deviceID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "device id required"))
			return
		}

		if err := svc.RemovePushToken(r.Context(), userID, deviceID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"removed": true})
	}
}
