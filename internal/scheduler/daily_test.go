package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestDelayUntil(t *testing.T) {
	loc := time.UTC

	tests := []struct {
		name     string
		now      time.Time
		hour     int
		minute   int
		expected time.Duration
	}{
		{
			name:     "same day later",
			now:      time.Date(2025, 3, 10, 22, 30, 0, 0, loc),
			hour:     23, minute: 0,
			expected: 30 * time.Minute,
		},
		{
			name:     "next day",
			now:      time.Date(2025, 3, 10, 0, 30, 0, 0, loc),
			hour:     0, minute: 0,
			expected: 23*time.Hour + 30*time.Minute,
		},
		{
			name:     "exactly on the mark waits a full day",
			now:      time.Date(2025, 3, 10, 0, 0, 0, 0, loc),
			hour:     0, minute: 0,
			expected: 24 * time.Hour,
		},
		{
			name:     "one second before midnight",
			now:      time.Date(2025, 3, 10, 23, 59, 59, 0, loc),
			hour:     0, minute: 0,
			expected: time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DelayUntil(tt.now, tt.hour, tt.minute))
		})
	}
}

// The delay is always positive and at most 24 hours, and sleeping it
// lands exactly on the target wall-clock time.
func TestDelayUntilProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		now := time.Unix(rapid.Int64Range(0, 4102444800).Draw(t, "now"), 0).UTC()
		hour := rapid.IntRange(0, 23).Draw(t, "hour")
		minute := rapid.IntRange(0, 59).Draw(t, "minute")

		delay := DelayUntil(now, hour, minute)
		assert.Greater(t, delay, time.Duration(0))
		assert.LessOrEqual(t, delay, 24*time.Hour)

		target := now.Add(delay)
		assert.Equal(t, hour, target.Hour())
		assert.Equal(t, minute, target.Minute())
		assert.Equal(t, 0, target.Second())
	})
}

func TestBonusFormula(t *testing.T) {
	// bonus = floor(influence / ratio); below the ratio nothing is paid
	tests := []struct {
		influence int64
		ratio     int64
		expected  int64
	}{
		{0, 100, 0},
		{99, 100, 0},
		{100, 100, 1},
		{350, 100, 3},
		{1000, 100, 10},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.influence/tt.ratio,
			"influence=%d ratio=%d", tt.influence, tt.ratio)
	}
}
