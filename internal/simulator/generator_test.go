package simulator_test

import (
	"math"
	"testing"

	"github.com/kvanroon/energy-stream-monitor/internal/simulator"
)

const day = 86_400.0

func defaultParams() simulator.Params {
	return simulator.Params{
		SeasonalAmplitude: 500,
		SeasonalPeriod:    365 * day,
		RegularAmplitude:  250,
		RegularPeriod:     7 * day,
		NoiseStdDev:       500,
		Offset:            25_000,
		Seeded:            true,
		Seed:              1,
	}
}

func TestNewGenerator_InvalidParameters(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*simulator.Params)
	}{
		{"zero seasonal period", func(p *simulator.Params) { p.SeasonalPeriod = 0 }},
		{"negative seasonal period", func(p *simulator.Params) { p.SeasonalPeriod = -day }},
		{"zero regular period", func(p *simulator.Params) { p.RegularPeriod = 0 }},
		{"negative noise", func(p *simulator.Params) { p.NoiseStdDev = -1 }},
		{"NaN offset", func(p *simulator.Params) { p.Offset = math.NaN() }},
	}

	for _, tc := range cases {
		params := defaultParams()
		tc.mutate(&params)
		if _, err := simulator.NewGenerator(params); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestValueAt_SeededDeterminism(t *testing.T) {
	gen, err := simulator.NewGenerator(defaultParams())
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	for _, ts := range []float64{0, day, 123 * day, 365 * day, 10_000 * day} {
		first := gen.ValueAt(ts)
		second := gen.ValueAt(ts)
		if first != second {
			t.Errorf("Seeded generator not deterministic at timestamp %v: %v vs %v", ts, first, second)
		}
		if math.IsNaN(first) || math.IsInf(first, 0) {
			t.Errorf("Generator produced non-finite value %v at timestamp %v", first, ts)
		}
	}

	// A second generator with the same seed replays the same series.
	replay, _ := simulator.NewGenerator(defaultParams())
	if gen.ValueAt(42*day) != replay.ValueAt(42*day) {
		t.Error("Two seeded generators with the same seed disagree")
	}
}

func TestValueAt_SeasonalIdentityWithoutNoise(t *testing.T) {
	params := defaultParams()
	params.NoiseStdDev = 0
	params.RegularPeriod = 5 * day // 365 is a multiple of 5
	gen, err := simulator.NewGenerator(params)
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	// One full seasonal period apart and on a regular-period boundary: both
	// oscillators return to their phase, so the values agree.
	v0 := gen.ValueAt(0)
	v365 := gen.ValueAt(365 * day)
	if math.Abs(v0-v365) > 1e-6 {
		t.Errorf("Expected valueAt(0) ~= valueAt(365d), got %v and %v", v0, v365)
	}

	// With a 7-day regular period the regular term is mid-cycle at day 365,
	// so the values differ by exactly that contribution.
	params.RegularPeriod = 7 * day
	gen7, _ := simulator.NewGenerator(params)
	v0 = gen7.ValueAt(0)
	v365 = gen7.ValueAt(365 * day)

	regular0 := 250 * math.Sin(0)
	regular365 := 250 * math.Sin(2*math.Pi*365*day/(7*day))
	seasonalDrift := 500 * math.Sin(2*math.Pi) // residual of the seasonal term at one full period
	if math.Abs((v365-v0)-((regular365-regular0)+seasonalDrift)) > 1e-6 {
		t.Errorf("Difference %v not explained by the regular term %v", v365-v0, regular365-regular0)
	}
}

func TestValueAt_NoNoiseMatchesFormula(t *testing.T) {
	params := defaultParams()
	params.NoiseStdDev = 0
	params.SeasonalPhase = 0.5
	params.RegularPhase = -1.2
	gen, _ := simulator.NewGenerator(params)

	ts := 100 * day
	expected := params.Offset +
		params.SeasonalAmplitude*math.Sin(2*math.Pi*ts/params.SeasonalPeriod+params.SeasonalPhase) +
		params.RegularAmplitude*math.Sin(2*math.Pi*ts/params.RegularPeriod+params.RegularPhase)

	if got := gen.ValueAt(ts); got != expected {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestHistoricalRange_AlignsAndCounts(t *testing.T) {
	gen, _ := simulator.NewGenerator(defaultParams())

	// Start mid-grid: first point rounds up to the next increment.
	points, err := gen.HistoricalRange(1.5*day, 5*day, day)
	if err != nil {
		t.Fatalf("HistoricalRange failed: %v", err)
	}
	if len(points) != 4 {
		t.Fatalf("Expected 4 points (days 2..5), got %d", len(points))
	}
	if points[0].Timestamp != 2*day {
		t.Errorf("Expected first timestamp at day 2, got %v", points[0].Timestamp)
	}
	if points[3].Timestamp != 5*day {
		t.Errorf("Expected last timestamp at day 5, got %v", points[3].Timestamp)
	}

	// Points are reproducible individually.
	for _, p := range points {
		if gen.ValueAt(p.Timestamp) != p.Value {
			t.Errorf("Range point at %v does not match ValueAt", p.Timestamp)
		}
	}
}

func TestHistoricalRange_EmptyWhenEndBeforeStart(t *testing.T) {
	gen, _ := simulator.NewGenerator(defaultParams())

	points, err := gen.HistoricalRange(10*day, 5*day, day)
	if err != nil {
		t.Fatalf("HistoricalRange failed: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("Expected no points, got %d", len(points))
	}
}

func TestHistoricalRange_InvalidIncrement(t *testing.T) {
	gen, _ := simulator.NewGenerator(defaultParams())

	if _, err := gen.HistoricalRange(0, 5*day, 0); err == nil {
		t.Error("Expected error for zero increment")
	}
}
