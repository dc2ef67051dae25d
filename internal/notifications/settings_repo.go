package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidfuentes/questly-backend/pkg/db/models"
	dbtypes "github.com/davidfuentes/questly-backend/pkg/db/types"
)

// SettingsRepository exposes persistence helpers for notification settings.
type SettingsRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.NotificationSettings, error)
	Insert(ctx context.Context, settings *models.NotificationSettings) error
	Save(ctx context.Context, settings *models.NotificationSettings) error
	UpdatePushTokens(ctx context.Context, userID uuid.UUID, tokens dbtypes.PushTokens) error
}

type settingsRepositoryImpl struct {
	db *gorm.DB
}

// NewSettingsRepository returns a settings repository bound to the provided database.
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepositoryImpl{db: db}
}

func (r *settingsRepositoryImpl) Get(ctx context.Context, userID uuid.UUID) (*models.NotificationSettings, error) {
	var settings models.NotificationSettings
	if err := r.db.WithContext(ctx).First(&settings, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepositoryImpl) Insert(ctx context.Context, settings *models.NotificationSettings) error {
	return r.db.WithContext(ctx).Create(settings).Error
}

func (r *settingsRepositoryImpl) Save(ctx context.Context, settings *models.NotificationSettings) error {
	return r.db.WithContext(ctx).
		Model(&models.NotificationSettings{}).
		Where("user_id = ?", settings.UserID).
		UpdateColumns(map[string]any{
			"enabled":     settings.Enabled,
			"quiet_hours": settings.QuietHours,
			"types":       settings.Types,
			"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *settingsRepositoryImpl) UpdatePushTokens(ctx context.Context, userID uuid.UUID, tokens dbtypes.PushTokens) error {
	return r.db.WithContext(ctx).
		Model(&models.NotificationSettings{}).
		Where("user_id = ?", userID).
		UpdateColumn("push_tokens", tokens).Error
}
