package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/davidfuentes/questly-backend/pkg/db/types"
	"github.com/davidfuentes/questly-backend/pkg/enums"
)

// Notification is the unit of delivery. The four status columns are written
// independently so one channel's outcome never clobbers another's.
type Notification struct {
	ID          uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BatchID     *uuid.UUID             `gorm:"type:uuid;index" json:"batchId,omitempty"`
	RecipientID uuid.UUID              `gorm:"type:uuid;not null;index:idx_notifications_recipient_created,priority:1" json:"recipientId"`
	SenderID    *uuid.UUID             `gorm:"type:uuid" json:"senderId,omitempty"`
	Type        enums.NotificationType `gorm:"type:notification_type;not null" json:"type"`
	Priority    enums.Priority         `gorm:"type:notification_priority;not null;default:normal" json:"priority"`

	Title     string          `gorm:"type:text;not null" json:"title"`
	Content   string          `gorm:"type:text;not null" json:"content"`
	Icon      *string         `gorm:"type:text" json:"icon,omitempty"`
	Image     *string         `gorm:"type:text" json:"image,omitempty"`
	ActionURL *string         `gorm:"type:text" json:"actionUrl,omitempty"`
	Actions   dbtypes.Actions `gorm:"type:jsonb" json:"actions,omitempty"`
	Data      dbtypes.Payload `gorm:"type:jsonb" json:"data"`

	Channels dbtypes.ChannelList `gorm:"type:jsonb;not null" json:"channels"`

	StatusInApp dbtypes.ChannelStatus `gorm:"type:jsonb" json:"statusInApp"`
	StatusPush  dbtypes.ChannelStatus `gorm:"type:jsonb" json:"statusPush"`
	StatusEmail dbtypes.ChannelStatus `gorm:"type:jsonb" json:"statusEmail"`
	StatusSMS   dbtypes.ChannelStatus `gorm:"column:status_sms;type:jsonb" json:"statusSms"`

	RetryCount  int        `gorm:"not null;default:0;index:idx_notifications_retry,priority:2" json:"retryCount"`
	NextRetryAt *time.Time `gorm:"type:timestamptz;index:idx_notifications_retry,priority:1" json:"nextRetryAt,omitempty"`
	ExpiresAt   *time.Time `gorm:"type:timestamptz;index" json:"expiresAt,omitempty"`
	ReadAt      *time.Time `gorm:"type:timestamptz" json:"readAt,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;index:idx_notifications_recipient_created,priority:2;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updatedAt"`
}

// Status returns the delivery sub-record for the given channel.
func (n *Notification) Status(channel enums.Channel) dbtypes.ChannelStatus {
	switch channel {
	case enums.ChannelInApp:
		return n.StatusInApp
	case enums.ChannelPush:
		return n.StatusPush
	case enums.ChannelEmail:
		return n.StatusEmail
	case enums.ChannelSMS:
		return n.StatusSMS
	}
	return dbtypes.ChannelStatus{}
}

// SetStatus stores the delivery sub-record for the given channel on the
// in-memory model. Persistence is the repository's field-scoped update.
func (n *Notification) SetStatus(channel enums.Channel, status dbtypes.ChannelStatus) {
	switch channel {
	case enums.ChannelInApp:
		n.StatusInApp = status
	case enums.ChannelPush:
		n.StatusPush = status
	case enums.ChannelEmail:
		n.StatusEmail = status
	case enums.ChannelSMS:
		n.StatusSMS = status
	}
}

// Attempted reports whether any planned channel has a recorded delivery
// outcome, success or failure.
func (n *Notification) Attempted() bool {
	for _, channel := range n.Channels {
		status := n.Status(channel)
		if status.Sent || status.Error != nil {
			return true
		}
	}
	return false
}

// PendingChannels returns the planned channels that have neither succeeded
// nor been attempted-and-sent; failed channels remain pending for retries.
func (n *Notification) PendingChannels() []enums.Channel {
	pending := []enums.Channel{}
	for _, channel := range n.Channels {
		if !n.Status(channel).Sent {
			pending = append(pending, channel)
		}
	}
	return pending
}
