package types

import (
	"database/sql/driver"
	"time"

	"github.com/davidfuentes/questly-backend/pkg/enums"
)

// ChannelList is a jsonb-backed list of delivery channels.
type ChannelList []enums.Channel

// Value implements driver.Valuer.
func (c ChannelList) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return jsonbValue(c)
}

// Scan implements sql.Scanner.
func (c *ChannelList) Scan(value any) error {
	*c = ChannelList{}
	return jsonbScan(value, c)
}

// Contains reports whether the list includes the given channel.
func (c ChannelList) Contains(channel enums.Channel) bool {
	for _, candidate := range c {
		if candidate == channel {
			return true
		}
	}
	return false
}

// Intersect returns the channels present in both lists, in receiver order.
func (c ChannelList) Intersect(other ChannelList) ChannelList {
	out := ChannelList{}
	for _, channel := range c {
		if other.Contains(channel) {
			out = append(out, channel)
		}
	}
	return out
}

// ChannelStatus is the per-channel delivery sub-record. Each channel owns one
// column so status writes never race across channels.
type ChannelStatus struct {
	Sent      bool       `json:"sent"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
	MessageID *string    `json:"messageId,omitempty"`
	Error     *string    `json:"error,omitempty"`
}

// Value implements driver.Valuer.
func (s ChannelStatus) Value() (driver.Value, error) {
	return jsonbValue(s)
}

// Scan implements sql.Scanner.
func (s *ChannelStatus) Scan(value any) error {
	*s = ChannelStatus{}
	return jsonbScan(value, s)
}

// NotificationAction is one tappable action attached to a notification.
type NotificationAction struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// Actions is a jsonb-backed list of notification actions.
type Actions []NotificationAction

// Value implements driver.Valuer.
func (a Actions) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return jsonbValue(a)
}

// Scan implements sql.Scanner.
func (a *Actions) Scan(value any) error {
	*a = Actions{}
	return jsonbScan(value, a)
}

// Payload is the free-form data map describing what a notification refers to.
type Payload struct {
	ObjectType string         `json:"objectType,omitempty"`
	ObjectID   string         `json:"objectId,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Value implements driver.Valuer.
func (p Payload) Value() (driver.Value, error) {
	return jsonbValue(p)
}

// Scan implements sql.Scanner.
func (p *Payload) Scan(value any) error {
	*p = Payload{}
	return jsonbScan(value, p)
}
