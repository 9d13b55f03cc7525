package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCron_Invalid(t *testing.T) {
	tests := []string{
		"",
		"* * * *",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"* * * 13 *",
		"* * * * 7",
		"*/0 * * * *",
		"5-1 * * * *",
		"a * * * *",
	}
	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseCron(expr)
			assert.Error(t, err)
		})
	}
}

func TestCronSchedule_Next(t *testing.T) {
	// 2026-10-15 is a Thursday.
	base := time.Date(2026, 10, 15, 10, 7, 30, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"* * * * *", time.Date(2026, 10, 15, 10, 8, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2026, 10, 15, 10, 15, 0, 0, time.UTC)},
		{"30 3 * * *", time.Date(2026, 10, 16, 3, 30, 0, 0, time.UTC)},
		{"0 0 * * 0", time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)},
		{"0 9 1 * *", time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)},
		{"0,45 10-11 * * *", time.Date(2026, 10, 15, 10, 45, 0, 0, time.UTC)},
		{"0 0 1 1 *", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := ParseCron(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Next(base))
			assert.Equal(t, tt.expr, c.String())
		})
	}
}

func TestCronSchedule_NextNeverMatches(t *testing.T) {
	c, err := ParseCron("0 0 31 2 *")
	require.NoError(t, err)
	assert.True(t, c.Next(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)).IsZero())
}
