package timegrid

import (
	"fmt"
	"math"
)

// AlignUp rounds a raw epoch timestamp up to the nearest multiple of increment.
// Aligned timestamps keep simulated, backfilled and live points on the same grid.
func AlignUp(timestamp, increment float64) (float64, error) {
	if increment <= 0 {
		return 0, fmt.Errorf("timestamp increment must be greater than 0, got %v", increment)
	}
	return math.Ceil(timestamp/increment) * increment, nil
}

// Steps returns how many grid points lie between start and end (inclusive),
// with start already aligned. Returns 0 when end precedes start.
func Steps(start, end, increment float64) (int, error) {
	if increment <= 0 {
		return 0, fmt.Errorf("timestamp increment must be greater than 0, got %v", increment)
	}
	if end < start {
		return 0, nil
	}
	return int(math.Floor((end-start)/increment)) + 1, nil
}
