package config

import (
	"fmt"
	"strconv"
	"time"
)

// ParseDuration parses a human-friendly window like "30d", "7d", "24h",
// "2w" or "90m". Negative and zero-length windows are rejected.
func ParseDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, or m suffix)", s)
	}
}

// Since resolves a window against now. An empty window or "all" yields the
// zero time, meaning no lower bound.
func Since(window string, now time.Time) (time.Time, error) {
	if window == "" || window == "all" {
		return time.Time{}, nil
	}
	d, err := ParseDuration(window)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(-d), nil
}
