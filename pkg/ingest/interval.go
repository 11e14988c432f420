package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseInterval converts an exchange interval string like "15m", "4h"
// or "1d" into a duration.
func ParseInterval(interval string) (time.Duration, error) {
	if interval == "" {
		return 0, fmt.Errorf("interval is empty")
	}

	unit := interval[len(interval)-1:]
	value, err := strconv.Atoi(strings.TrimSuffix(interval, unit))
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}

	switch unit {
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	case "w":
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown interval unit %q", unit)
	}
}

// SnapToInterval floors t to the most recent interval boundary.
func SnapToInterval(t time.Time, interval time.Duration) time.Time {
	return t.Truncate(interval)
}
