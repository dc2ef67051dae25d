package notifications

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	dbtypes "github.com/davidfuentes/questly-backend/pkg/db/types"
)

// minuteOfDay converts "HH:MM" to minutes since midnight.
func minuteOfDay(value string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour*60 + minute, nil
}

// quietAt reports whether now falls inside the quiet-hours window. Both
// bounds are inclusive. A window whose start is later than its end spans
// midnight (22:00-07:00 covers late evening and early morning).
func quietAt(qh dbtypes.QuietHours, now time.Time) bool {
	if !qh.Enabled {
		return false
	}
	start, err := minuteOfDay(qh.Start)
	if err != nil {
		return false
	}
	end, err := minuteOfDay(qh.End)
	if err != nil {
		return false
	}

	current := now.Hour()*60 + now.Minute()
	if start <= end {
		return current >= start && current <= end
	}
	return current >= start || current <= end
}

// quietWindowEnd returns the first instant after the current quiet window,
// used to defer dispatch instead of dropping it. The result is the minute
// after the inclusive end bound.
func quietWindowEnd(qh dbtypes.QuietHours, now time.Time) time.Time {
	end, err := minuteOfDay(qh.End)
	if err != nil {
		return now
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	candidate := day.Add(time.Duration(end+1) * time.Minute)
	if !candidate.After(now) {
		candidate = candidate.Add(24 * time.Hour)
	}
	return candidate
}
