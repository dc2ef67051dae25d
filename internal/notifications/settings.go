package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidfuentes/questly-backend/pkg/db"
	"github.com/davidfuentes/questly-backend/pkg/db/models"
	dbtypes "github.com/davidfuentes/questly-backend/pkg/db/types"
	pkgerrors "github.com/davidfuentes/questly-backend/pkg/errors"
	"github.com/davidfuentes/questly-backend/pkg/logger"
)

// SettingsService resolves and mutates per-user delivery preferences.
type SettingsService interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*models.NotificationSettings, error)
	Update(ctx context.Context, userID uuid.UUID, params UpdateSettingsParams) (*models.NotificationSettings, error)
	AddPushToken(ctx context.Context, userID uuid.UUID, token dbtypes.PushToken) error
	RemovePushToken(ctx context.Context, userID uuid.UUID, deviceID string) error
	DeactivatePushToken(ctx context.Context, userID uuid.UUID, token string) error
}

// UpdateSettingsParams carries a partial settings update. Nil fields are left
// untouched.
type UpdateSettingsParams struct {
	Enabled    *bool
	QuietHours *dbtypes.QuietHours
	Types      dbtypes.TypePreferences
}

type settingsService struct {
	repo SettingsRepository
	logg *logger.Logger
}

// NewSettingsService wires the settings dependencies.
func NewSettingsService(repo SettingsRepository, logg *logger.Logger) (SettingsService, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "settings repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &settingsService{repo: repo, logg: logg}, nil
}

// Resolve returns the user's settings, creating the default record on first
// access. A concurrent first access may insert the row between our read and
// write; the unique violation is absorbed and the winner's row re-read.
func (s *settingsService) Resolve(ctx context.Context, userID uuid.UUID) (*models.NotificationSettings, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	settings, err := s.repo.Get(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification settings")
	}

	defaults := models.DefaultNotificationSettings(userID)
	if insertErr := s.repo.Insert(ctx, defaults); insertErr != nil {
		if !db.IsUniqueViolation(insertErr, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, insertErr, "create notification settings")
		}
		settings, err = s.repo.Get(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload notification settings")
		}
		return settings, nil
	}
	return defaults, nil
}

func (s *settingsService) Update(ctx context.Context, userID uuid.UUID, params UpdateSettingsParams) (*models.NotificationSettings, error) {
	if err := validateSettingsUpdate(params); err != nil {
		return nil, err
	}

	settings, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	if params.Enabled != nil {
		settings.Enabled = *params.Enabled
	}
	if params.QuietHours != nil {
		settings.QuietHours = *params.QuietHours
	}
	if params.Types != nil {
		if settings.Types == nil {
			settings.Types = dbtypes.TypePreferences{}
		}
		for t, pref := range params.Types {
			settings.Types[t] = pref
		}
	}

	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save notification settings")
	}
	return settings, nil
}

func validateSettingsUpdate(params UpdateSettingsParams) error {
	if params.QuietHours != nil && params.QuietHours.Enabled {
		if _, err := minuteOfDay(params.QuietHours.Start); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quiet hours start")
		}
		if _, err := minuteOfDay(params.QuietHours.End); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quiet hours end")
		}
	}
	for t, pref := range params.Types {
		if !t.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type "+string(t))
		}
		for _, channel := range pref.Channels {
			if !channel.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, "unknown channel "+string(channel))
			}
		}
	}
	return nil
}

// AddPushToken registers a device token, replacing any previous registration
// for the same device.
func (s *settingsService) AddPushToken(ctx context.Context, userID uuid.UUID, token dbtypes.PushToken) error {
	if token.Token == "" || token.DeviceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token and device id required")
	}

	settings, err := s.Resolve(ctx, userID)
	if err != nil {
		return err
	}

	token.Active = true
	tokens := dbtypes.PushTokens{}
	for _, existing := range settings.PushTokens {
		if existing.DeviceID == token.DeviceID {
			continue
		}
		tokens = append(tokens, existing)
	}
	tokens = append(tokens, token)

	if err := s.repo.UpdatePushTokens(ctx, userID, tokens); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save push tokens")
	}
	return nil
}

func (s *settingsService) RemovePushToken(ctx context.Context, userID uuid.UUID, deviceID string) error {
	if deviceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "device id required")
	}

	settings, err := s.Resolve(ctx, userID)
	if err != nil {
		return err
	}

	tokens := dbtypes.PushTokens{}
	removed := false
	for _, existing := range settings.PushTokens {
		if existing.DeviceID == deviceID {
			removed = true
			continue
		}
		tokens = append(tokens, existing)
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "push token not found")
	}

	if err := s.repo.UpdatePushTokens(ctx, userID, tokens); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save push tokens")
	}
	return nil
}

// DeactivatePushToken flags a token the push provider reported as
// unregistered so later dispatches stop using it.
func (s *settingsService) DeactivatePushToken(ctx context.Context, userID uuid.UUID, token string) error {
	settings, err := s.Resolve(ctx, userID)
	if err != nil {
		return err
	}

	changed := false
	tokens := make(dbtypes.PushTokens, 0, len(settings.PushTokens))
	for _, existing := range settings.PushTokens {
		if existing.Token == token && existing.Active {
			existing.Active = false
			changed = true
		}
		tokens = append(tokens, existing)
	}
	if !changed {
		return nil
	}

	if err := s.repo.UpdatePushTokens(ctx, userID, tokens); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save push tokens")
	}
	return nil
}
