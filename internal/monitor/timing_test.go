package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{-3 * time.Second, "0s"},
		{12 * time.Second, "12s"},
		{59 * time.Second, "59s"},
		{60 * time.Second, "1m"},
		{90 * time.Second, "1m 30s"},
		{45*time.Minute + 5*time.Second, "45m 5s"},
		{time.Hour, "1h"},
		{time.Hour + 30*time.Minute, "1h 30m"},
		{3*time.Hour + 59*time.Second, "3h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d), "FormatDuration(%s)", tt.d)
	}
}

func TestEffectiveThreshold(t *testing.T) {
	assert.Equal(t, 45*time.Second, effectiveThreshold(45*time.Second, false))
	assert.Equal(t, 90*time.Second, effectiveThreshold(45*time.Second, true))
}

func TestRemainingWait(t *testing.T) {
	assert.Equal(t, 9*time.Minute, remainingWait(time.Minute, 10*time.Minute))
	assert.Equal(t, time.Duration(0), remainingWait(10*time.Minute, 10*time.Minute))
	assert.Equal(t, time.Duration(0), remainingWait(11*time.Minute, 10*time.Minute))
}
