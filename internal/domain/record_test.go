package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMark(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		now      time.Time
		expected MarkStatus
	}{
		{
			name:     "at session start",
			now:      start,
			expected: StatusPresent,
		},
		{
			name:     "five minutes in",
			now:      start.Add(5 * time.Minute),
			expected: StatusPresent,
		},
		{
			name:     "exactly on the threshold is still present",
			now:      start.Add(15 * time.Minute),
			expected: StatusPresent,
		},
		{
			name:     "one second past the threshold is late",
			now:      start.Add(15*time.Minute + time.Second),
			expected: StatusLate,
		},
		{
			name:     "an hour in is late",
			now:      start.Add(time.Hour),
			expected: StatusLate,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyMark(start, tc.now))
		})
	}
}
