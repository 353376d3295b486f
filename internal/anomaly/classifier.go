package anomaly

import (
	"errors"
	"fmt"
	"math"

	"github.com/kvanroon/energy-stream-monitor/internal/stats"
)

// ErrInvalidParameter indicates a bad classifier configuration.
var ErrInvalidParameter = errors.New("invalid parameter")

// Verdict is the classification outcome for a single value. It is derived
// fresh for every point and never persisted by the classifier itself.
type Verdict struct {
	IsAnomaly bool
	Score     float64
	Mean      float64
	StdDev    float64
}

// Classifier flags values that sit further from the rolling mean than a fixed
// number of standard deviations. It holds no state across calls; the verdict
// is a pure function of the window statistics, the value and the threshold.
type Classifier struct {
	threshold float64
	minPoints int
}

// NewClassifier creates a classifier. The threshold is the number of standard
// deviations beyond which a value is anomalous and must be explicitly
// provided; there is no silent default. minPoints is the window count below
// which values are reported as not yet evaluable (recommended: the window
// capacity).
func NewClassifier(threshold float64, minPoints int) (*Classifier, error) {
	if threshold <= 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, fmt.Errorf("%w: threshold must be a positive number, got %v", ErrInvalidParameter, threshold)
	}
	if minPoints < 2 {
		return nil, fmt.Errorf("%w: minimum points for detection must be at least 2, got %d", ErrInvalidParameter, minPoints)
	}
	return &Classifier{
		threshold: threshold,
		minPoints: minPoints,
	}, nil
}

// Classify judges the newest value against the window statistics. The window
// is expected to already contain the value, so the baseline includes it.
//
// During warm-up (fewer than minPoints buffered) the verdict is the defined
// "not yet evaluable" state: not anomalous, score zero. A zero standard
// deviation (perfectly flat window) is likewise not anomalous; there is no
// detectable deviation to score.
func (c *Classifier) Classify(window *stats.Window, value float64) Verdict {
	if window.Count() < c.minPoints {
		return Verdict{}
	}

	mean, err := window.Mean()
	if err != nil {
		return Verdict{}
	}
	stdDev, err := window.StdDev()
	if err != nil {
		return Verdict{}
	}

	if stdDev == 0 {
		return Verdict{Mean: mean}
	}

	score := math.Abs(value-mean) / stdDev
	return Verdict{
		IsAnomaly: score > c.threshold,
		Score:     score,
		Mean:      mean,
		StdDev:    stdDev,
	}
}

// Threshold returns the configured number of standard deviations.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}
