package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{4*time.Minute + 10*time.Second, "4m 10s"},
		{2*time.Hour + 5*time.Second, "2h 0m 5s"},
		{72*time.Hour + 30*time.Minute + 15*time.Second, "3d 0h 30m 15s"},
		{-90 * time.Second, "1m 30s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), tt.in.String())
	}
}

func TestFormatExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "-", FormatExpiry(time.Time{}, now))
	assert.Equal(t, "in 1m 0s", FormatExpiry(now.Add(time.Minute), now))
	assert.Equal(t, "expired 2m 0s ago", FormatExpiry(now.Add(-2*time.Minute), now))
	assert.Equal(t, "expired 0s ago", FormatExpiry(now, now))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", FormatTime(time.Time{}))

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, ts.Local().Format(LocalTimeFormat), FormatTime(ts))
}
