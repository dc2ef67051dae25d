package types

import (
	"database/sql/driver"

	"github.com/davidfuentes/questly-backend/pkg/enums"
)

// QuietHours is the do-not-disturb window stored on notification settings.
// Start and End are wall-clock "HH:MM" strings; a window where Start > End
// spans midnight.
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Value implements driver.Valuer.
func (q QuietHours) Value() (driver.Value, error) {
	return jsonbValue(q)
}

// Scan implements sql.Scanner.
func (q *QuietHours) Scan(value any) error {
	*q = QuietHours{}
	return jsonbScan(value, q)
}

// TypePreference is the per-type opt-in and allowed channel set.
type TypePreference struct {
	Enabled  bool        `json:"enabled"`
	Channels ChannelList `json:"channels"`
}

// TypePreferences maps notification types to their preference. A missing
// entry means the type is disabled.
type TypePreferences map[enums.NotificationType]TypePreference

// Value implements driver.Valuer.
func (t TypePreferences) Value() (driver.Value, error) {
	if t == nil {
		return "{}", nil
	}
	return jsonbValue(t)
}

// Scan implements sql.Scanner.
func (t *TypePreferences) Scan(value any) error {
	*t = TypePreferences{}
	return jsonbScan(value, t)
}

// PushToken is one registered device token.
type PushToken struct {
	Token    string `json:"token"`
	DeviceID string `json:"deviceId"`
	Platform string `json:"platform"`
	Active   bool   `json:"active"`
}

// PushTokens is the jsonb-backed device token list.
type PushTokens []PushToken

// Value implements driver.Valuer.
func (p PushTokens) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return jsonbValue(p)
}

// Scan implements sql.Scanner.
func (p *PushTokens) Scan(value any) error {
	*p = PushTokens{}
	return jsonbScan(value, p)
}

// Active returns only the tokens currently eligible for push dispatch.
func (p PushTokens) Active() PushTokens {
	out := PushTokens{}
	for _, token := range p {
		if token.Active {
			out = append(out, token)
		}
	}
	return out
}
