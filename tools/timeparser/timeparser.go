package timeparser

import (
	"fmt"
	"time"
)

// ParseReadingTimestamp attempts to parse a meter reading timestamp with the
// formats seen in the field, falling back to RFC3339.
func ParseReadingTimestamp(dateStr string) (time.Time, error) {
	formats := []string{
		"02/01/2006 15:04:05", // DD/MM/YYYY HH:mm:ss
		"2006-01-02 15:04:05", // ISO date with space separator
		time.RFC3339,
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", dateStr, lastErr)
}

// IsWithinTolerance checks if the reading timestamp is within tolerance of when
// the reading arrived.
func IsWithinTolerance(readingTime, receivedTime time.Time, toleranceMinutes int) bool {
	diff := readingTime.Sub(receivedTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(toleranceMinutes)*time.Minute
}
