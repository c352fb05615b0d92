package defence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateClock(t *testing.T) {
	for _, ok := range []string{"00:00", "9:05", "09:05", "23:59"} {
		assert.NoError(t, ValidateClock(ok), ok)
	}
	for _, bad := range []string{"", "24:00", "12:60", "12:5", "1205", " 12:00", "12:00pm"} {
		assert.ErrorIs(t, ValidateClock(bad), ErrInvalidTimeFormat, bad)
	}
}

func TestResolveDeadline(t *testing.T) {
	day := func(d, h, m int) time.Time { return time.Date(2025, 3, d, h, m, 0, 0, time.UTC) }
	cases := []struct {
		name  string
		now   time.Time
		clock string
		want  time.Time
	}{
		{"later today", day(10, 12, 0), "15:00", day(10, 14, 0)},
		{"already passed", day(10, 12, 0), "12:30", day(11, 11, 30)},
		{"local midnight rolls back then forward", day(10, 23, 30), "00:15", day(11, 23, 15)},
		{"early morning local", day(10, 22, 0), "00:15", day(10, 23, 15)},
		{"exact now", day(10, 12, 0), "13:00", day(10, 12, 0)},
		{"month boundary", time.Date(2025, 3, 1, 0, 30, 0, 0, time.UTC), "00:45", time.Date(2025, 3, 1, 23, 45, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveDeadline(tc.now, tc.clock)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ResolveDeadline(day(10, 12, 0), "25:00")
	assert.ErrorIs(t, err, ErrInvalidTimeFormat)
}
