package notifications

import (
	"testing"
	"time"

	dbtypes "github.com/davidfuentes/questly-backend/pkg/db/types"
)

func clockAt(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestQuietAt(t *testing.T) {
	sameDay := dbtypes.QuietHours{Enabled: true, Start: "13:00", End: "15:00"}
	overnight := dbtypes.QuietHours{Enabled: true, Start: "22:00", End: "07:00"}

	tests := []struct {
		name  string
		qh    dbtypes.QuietHours
		now   time.Time
		quiet bool
	}{
		{name: "disabled window never matches", qh: dbtypes.QuietHours{Enabled: false, Start: "00:00", End: "23:59"}, now: clockAt(12, 0), quiet: false},
		{name: "same day before window", qh: sameDay, now: clockAt(12, 59), quiet: false},
		{name: "same day at start boundary", qh: sameDay, now: clockAt(13, 0), quiet: true},
		{name: "same day inside window", qh: sameDay, now: clockAt(14, 30), quiet: true},
		{name: "same day at end boundary", qh: sameDay, now: clockAt(15, 0), quiet: true},
		{name: "same day after window", qh: sameDay, now: clockAt(15, 1), quiet: false},
		{name: "overnight late evening", qh: overnight, now: clockAt(23, 30), quiet: true},
		{name: "overnight at start boundary", qh: overnight, now: clockAt(22, 0), quiet: true},
		{name: "overnight early morning", qh: overnight, now: clockAt(3, 0), quiet: true},
		{name: "overnight at end boundary", qh: overnight, now: clockAt(7, 0), quiet: true},
		{name: "overnight just after end", qh: overnight, now: clockAt(7, 1), quiet: false},
		{name: "overnight midday gap", qh: overnight, now: clockAt(12, 0), quiet: false},
		{name: "malformed start treated as no window", qh: dbtypes.QuietHours{Enabled: true, Start: "25:00", End: "07:00"}, now: clockAt(23, 0), quiet: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quietAt(tt.qh, tt.now); got != tt.quiet {
				t.Fatalf("quietAt(%+v, %s) = %v, want %v", tt.qh, tt.now, got, tt.quiet)
			}
		})
	}
}

func TestQuietWindowEnd(t *testing.T) {
	sameDay := dbtypes.QuietHours{Enabled: true, Start: "13:00", End: "15:00"}
	got := quietWindowEnd(sameDay, clockAt(14, 0))
	want := clockAt(15, 1)
	if !got.Equal(want) {
		t.Fatalf("expected window end %s, got %s", want, got)
	}

	overnight := dbtypes.QuietHours{Enabled: true, Start: "22:00", End: "07:00"}
	got = quietWindowEnd(overnight, clockAt(23, 30))
	want = clockAt(7, 1).Add(24 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("expected next-day window end %s, got %s", want, got)
	}

	got = quietWindowEnd(overnight, clockAt(3, 0))
	want = clockAt(7, 1)
	if !got.Equal(want) {
		t.Fatalf("expected same-day window end %s, got %s", want, got)
	}
}
