package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatWallTime(t *testing.T) {
	testCases := []struct {
		d        time.Duration
		expected string
	}{
		{30 * time.Second, "00:00:30"},
		{90 * time.Minute, "01:30:00"},
		{24 * time.Hour, "1-00:00:00"},
		{48 * time.Hour, "2-00:00:00"},
		{26*time.Hour + 30*time.Minute + 5*time.Second, "1-02:30:05"},
		{500 * time.Millisecond, "00:00:01"}, // rounds up, never zero
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, FormatWallTime(tc.d), "%s", tc.d)
	}
}

func TestParseWallTime(t *testing.T) {
	testCases := []struct {
		in       string
		expected time.Duration
	}{
		{"90", 90 * time.Minute},
		{"30:15", 30*time.Minute + 15*time.Second},
		{"02:30:00", 2*time.Hour + 30*time.Minute},
		{"1-12", 36 * time.Hour},
		{"1-12:30", 36*time.Hour + 30*time.Minute},
		{"2-00:00:00", 48 * time.Hour},
		{" 01:00:00 ", time.Hour},
	}
	for _, tc := range testCases {
		d, err := ParseWallTime(tc.in)
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.expected, d, tc.in)
	}
}

func TestParseWallTime_Invalid(t *testing.T) {
	testCases := []string{
		"",
		"abc",
		"1:2:3:4",
		"-30",
		"1-",
		"1-2:3:4:5",
		"10:-5",
	}
	for _, in := range testCases {
		_, err := ParseWallTime(in)
		assert.ErrorIs(t, err, ErrInvalidRequest, "%q", in)
	}
}
