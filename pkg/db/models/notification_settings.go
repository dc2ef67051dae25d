package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/davidfuentes/questly-backend/pkg/db/types"
	"github.com/davidfuentes/questly-backend/pkg/enums"
)

// NotificationSettings holds one user's delivery preferences. Rows are
// created lazily with defaults on first access; user_id is the natural key so
// concurrent first reads cannot produce duplicates.
type NotificationSettings struct {
	UserID     uuid.UUID               `gorm:"type:uuid;primaryKey" json:"userId"`
	Enabled    bool                    `gorm:"not null;default:true" json:"enabled"`
	QuietHours dbtypes.QuietHours      `gorm:"type:jsonb" json:"quietHours"`
	Types      dbtypes.TypePreferences `gorm:"type:jsonb;not null" json:"types"`
	PushTokens dbtypes.PushTokens      `gorm:"type:jsonb;not null" json:"pushTokens"`
	CreatedAt  time.Time               `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time               `gorm:"type:timestamptz;autoUpdateTime" json:"updatedAt"`
}

// TypePreference resolves the preference for a type. Absent entries fail
// closed: the type is treated as disabled.
func (s *NotificationSettings) TypePreference(t enums.NotificationType) dbtypes.TypePreference {
	if s == nil || s.Types == nil {
		return dbtypes.TypePreference{}
	}
	pref, ok := s.Types[t]
	if !ok {
		return dbtypes.TypePreference{}
	}
	return pref
}

// DefaultNotificationSettings builds the record created on first access:
// globally enabled, quiet hours off, every known type enabled on in_app only.
func DefaultNotificationSettings(userID uuid.UUID) *NotificationSettings {
	prefs := dbtypes.TypePreferences{}
	for _, t := range enums.NotificationTypes() {
		prefs[t] = dbtypes.TypePreference{
			Enabled:  true,
			Channels: dbtypes.ChannelList{enums.ChannelInApp},
		}
	}
	return &NotificationSettings{
		UserID:     userID,
		Enabled:    true,
		QuietHours: dbtypes.QuietHours{Enabled: false},
		Types:      prefs,
		PushTokens: dbtypes.PushTokens{},
	}
}
