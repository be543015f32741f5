package sched

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatWallTime renders d in the scheduler's time syntax: D-HH:MM:SS when
// the limit spans days, HH:MM:SS otherwise. Fractions of a second round up so
// a small positive limit never renders as zero.
func FormatWallTime(d time.Duration) string {
	total := int64(d / time.Second)
	if d%time.Second != 0 {
		total++
	}
	days := total / 86400
	hours := total % 86400 / 3600
	mins := total % 3600 / 60
	secs := total % 60
	if days > 0 {
		return fmt.Sprintf("%d-%02d:%02d:%02d", days, hours, mins, secs)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, mins, secs)
}

// ParseWallTime accepts every form sbatch does: "MM", "MM:SS", "HH:MM:SS",
// "D-HH", "D-HH:MM" and "D-HH:MM:SS".
func ParseWallTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if dash := strings.Index(s, "-"); dash >= 0 {
		days, err := parseTimePart(s[:dash])
		if err != nil {
			return 0, fmt.Errorf("%w: bad day count in time limit %q", ErrInvalidRequest, s)
		}
		fields, err := parseTimeFields(s[dash+1:], 3)
		if err != nil {
			return 0, fmt.Errorf("%w: bad time limit %q", ErrInvalidRequest, s)
		}
		hours, mins, secs := fields[0], fields[1], fields[2]
		return wallTime(days, hours, mins, secs), nil
	}
	fields, err := parseTimeFields(s, 3)
	if err != nil {
		return 0, fmt.Errorf("%w: bad time limit %q", ErrInvalidRequest, s)
	}
	switch strings.Count(s, ":") {
	case 0: // minutes
		return wallTime(0, 0, fields[0], 0), nil
	case 1: // minutes:seconds
		return wallTime(0, 0, fields[0], fields[1]), nil
	default: // hours:minutes:seconds
		return wallTime(0, fields[0], fields[1], fields[2]), nil
	}
}

func wallTime(days, hours, mins, secs int64) time.Duration {
	return time.Duration(((days*24+hours)*60+mins)*60+secs) * time.Second
}

// parseTimeFields splits a colon-separated time string into at most max
// numeric fields, left-aligned and zero-padded on the right.
func parseTimeFields(s string, max int) ([]int64, error) {
	parts := strings.Split(s, ":")
	if len(parts) > max {
		return nil, fmt.Errorf("too many fields in %q", s)
	}
	fields := make([]int64, max)
	for i, p := range parts {
		n, err := parseTimePart(p)
		if err != nil {
			return nil, err
		}
		fields[i] = n
	}
	return fields, nil
}

func parseTimePart(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative time field %q", s)
	}
	return n, nil
}
