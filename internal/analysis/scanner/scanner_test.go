package scanner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wse-scanner/internal/analysis/patterns"
	"wse-scanner/internal/errors"
	"wse-scanner/internal/models"
)

func candle(date string, o, h, l, c, v float64) models.Candle {
	return models.Candle{Date: date, Open: o, High: h, Low: l, Close: c, Volume: v}
}

// shootingStar returns a pair that fires the shooting star with the given volumes.
// Turnovers are 1.375*prevVol and 7.475*currVol.
func shootingStar(prevVol, currVol float64) []models.Candle {
	return []models.Candle{
		candle("20220602", 1, 2, 0.5, 2, prevVol),
		candle("20220603", 4, 20, 2.9, 3, currVol),
	}
}

func newTestScanner(opts Options) *Scanner {
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	return NewScanner(nil, opts, zerolog.Nop())
}

func TestEvaluateAdmitsAndMatches(t *testing.T) {
	s := newTestScanner(Options{})

	ev := s.Evaluate("STAR", shootingStar(20000, 20000))
	require.NoError(t, ev.Err)
	assert.True(t, ev.Admitted)
	assert.InDelta(t, 149500, ev.CurrentTurnover, 1e-6)
	assert.InDelta(t, 27500, ev.PreviousTurnover, 1e-6)
	assert.Contains(t, ev.Patterns, patterns.ShootingStar)
}

func TestEvaluateBelowMinTurnover(t *testing.T) {
	s := newTestScanner(Options{})

	ev := s.Evaluate("THIN", shootingStar(100, 1000))
	require.NoError(t, ev.Err)
	assert.False(t, ev.Admitted)
	assert.Empty(t, ev.Patterns)
}

func TestEvaluateBelowMinPrice(t *testing.T) {
	s := newTestScanner(Options{})
	candles := []models.Candle{
		candle("20220602", 1, 1.2, 0.9, 1.1, 1000),
		candle("20220603", 1.2, 1.9, 1.1, 1.8, 1_000_000),
	}

	ev := s.Evaluate("PENNY", candles)
	require.NoError(t, ev.Err)
	assert.False(t, ev.Admitted)
}

func TestEvaluateZeroPreviousVolume(t *testing.T) {
	s := newTestScanner(Options{Thresholds: Thresholds{MinTurnover: 0, MinPrice: 0, RiseFactor: 1.5, RiseMode: RiseAny}})

	ev := s.Evaluate("NEW", shootingStar(0, 20000))
	require.NoError(t, ev.Err)
	assert.False(t, ev.Admitted, "undefined rise ratio must not admit")
}

func TestRiseModes(t *testing.T) {
	// Turnover rises 5.4x, volume is flat.
	turnoverOnly := shootingStar(20000, 20000)
	// Volume rises 1.6x, turnover rises 1.47x.
	volumeOnly := []models.Candle{
		candle("20220602", 8, 9, 7, 8.5, 10000),
		candle("20220603", 4, 20, 2.9, 3, 16000),
	}

	tests := []struct {
		mode     RiseMode
		candles  []models.Candle
		admitted bool
	}{
		{RiseTurnover, turnoverOnly, true},
		{RiseVolume, turnoverOnly, false},
		{RiseAny, turnoverOnly, true},
		{RiseTurnover, volumeOnly, false},
		{RiseVolume, volumeOnly, true},
		{RiseAny, volumeOnly, true},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.mode, i), func(t *testing.T) {
			th := DefaultThresholds()
			th.RiseMode = tt.mode
			s := newTestScanner(Options{Thresholds: th})

			ev := s.Evaluate("X", tt.candles)
			require.NoError(t, ev.Err)
			assert.Equal(t, tt.admitted, ev.Admitted)
		})
	}
}

func TestParseRiseMode(t *testing.T) {
	m, err := ParseRiseMode("")
	require.NoError(t, err)
	assert.Equal(t, RiseTurnover, m)

	_, err = ParseRiseMode("price")
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)
}

func TestEvaluateInsufficientHistory(t *testing.T) {
	s := newTestScanner(Options{})

	ev := s.Evaluate("ONE", shootingStar(1, 1)[:1])
	assert.ErrorIs(t, ev.Err, errors.ErrInsufficientHistory)

	// Two days of the same week form a single weekly bar.
	weekly := newTestScanner(Options{Granularity: models.Weekly})
	ev = weekly.Evaluate("WEEK", shootingStar(20000, 20000))
	assert.ErrorIs(t, ev.Err, errors.ErrInsufficientHistory)
	assert.False(t, ev.Admitted)
}

func TestEvaluateIntegrityError(t *testing.T) {
	s := newTestScanner(Options{})
	candles := shootingStar(20000, 20000)
	candles[1].High = 3.5 // below body top of 4

	ev := s.Evaluate("BAD", candles)
	assert.ErrorIs(t, ev.Err, errors.ErrDataIntegrity)
	assert.False(t, ev.Admitted)
	assert.Empty(t, ev.Patterns)
}

func TestEvaluateDateCheck(t *testing.T) {
	friday := time.Date(2022, time.June, 3, 18, 0, 0, 0, time.UTC)
	monday := time.Date(2022, time.June, 6, 18, 0, 0, 0, time.UTC)
	wednesday := time.Date(2022, time.June, 1, 18, 0, 0, 0, time.UTC)

	ev := newTestScanner(Options{AsOf: friday}).Evaluate("X", shootingStar(20000, 20000))
	assert.NoError(t, ev.Err)

	ev = newTestScanner(Options{AsOf: monday}).Evaluate("X", shootingStar(20000, 20000))
	assert.ErrorIs(t, ev.Err, errors.ErrStaleData)

	weekly := []models.Candle{
		candle("20220527", 1, 2, 0.5, 2, 20000),
		candle("20220603", 4, 20, 2.9, 3, 20000),
	}
	ev = newTestScanner(Options{Granularity: models.Weekly, AsOf: wednesday}).Evaluate("X", weekly)
	require.NoError(t, ev.Err)
	assert.Contains(t, ev.Patterns, patterns.ShootingStar)

	ev = newTestScanner(Options{Granularity: models.Weekly, AsOf: monday}).Evaluate("X", weekly)
	assert.ErrorIs(t, ev.Err, errors.ErrStaleData)
}

func TestScanIsolatesFailures(t *testing.T) {
	s := newTestScanner(Options{Concurrency: 3})

	data := map[string][]models.Candle{
		"AAA": shootingStar(20000, 20000),
		"CCC": shootingStar(20000, 40000),
		"DDD": shootingStar(100, 100),
	}
	provider := func(_ context.Context, symbol string) ([]models.Candle, error) {
		if symbol == "BBB" {
			return nil, errors.ErrDataNotFound
		}
		return data[symbol], nil
	}

	result, err := s.Scan(context.Background(), []string{"AAA", "BBB", "CCC", "DDD"}, provider)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Evaluated)
	assert.Equal(t, 2, result.Admitted)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "BBB", result.Skipped[0].Symbol)
	assert.ErrorIs(t, result.Skipped[0].Err, errors.ErrDataNotFound)

	ranked := result.Ranked(patterns.ShootingStar)
	require.Len(t, ranked, 2)
	assert.Equal(t, "CCC", ranked[0].Symbol)
	assert.Equal(t, "AAA", ranked[1].Symbol)
	assert.Equal(t, []string{"AAA", "CCC"}, result.Symbols())
}

func TestScanNoData(t *testing.T) {
	s := newTestScanner(Options{})
	provider := func(_ context.Context, _ string) ([]models.Candle, error) {
		return nil, errors.ErrDataNotFound
	}

	result, err := s.Scan(context.Background(), []string{"AAA", "BBB"}, provider)
	assert.ErrorIs(t, err, errors.ErrNoData)
	assert.Len(t, result.Skipped, 2)

	result, err = s.Scan(context.Background(), nil, provider)
	assert.NoError(t, err)
	assert.Zero(t, result.Evaluated)
}

func TestScanCancelled(t *testing.T) {
	s := newTestScanner(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ScanSeries(ctx, []Series{{Symbol: "AAA", Candles: shootingStar(20000, 20000)}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanSeriesMatchesEvaluate(t *testing.T) {
	s := newTestScanner(Options{Concurrency: 8})

	var series []Series
	for i := 0; i < 50; i++ {
		series = append(series, Series{
			Symbol:  fmt.Sprintf("S%02d", i),
			Candles: shootingStar(20000, float64(14000+i*1000)),
		})
	}

	result, err := s.ScanSeries(context.Background(), series)
	require.NoError(t, err)

	admitted := 0
	for _, sr := range series {
		if s.Evaluate(sr.Symbol, sr.Candles).Admitted {
			admitted++
		}
	}
	assert.Equal(t, admitted, result.Admitted)
	assert.Len(t, result.Triggered[patterns.ShootingStar], admitted)
}

func TestScanSeriesRepeatedSymbol(t *testing.T) {
	s := newTestScanner(Options{Concurrency: 2})

	result, err := s.ScanSeries(context.Background(), []Series{
		{Symbol: "A", Candles: shootingStar(10, 100000)},
		{Symbol: "A", Candles: shootingStar(10, 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Evaluated)
	assert.Equal(t, 1, result.Admitted)
	assert.Equal(t, []Trigger{{Symbol: "A", Turnover: shootingStar(10, 100000)[1].Turnover()}},
		result.Triggered[patterns.ShootingStar])
}

func TestProperty_NoTriggerBelowMinTurnover(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)
	s := newTestScanner(Options{})

	properties.Property("instruments under the turnover floor are never admitted", prop.ForAll(
		func(prevVol, currVol float64) bool {
			ev := s.Evaluate("GEN", shootingStar(prevVol, currVol))
			if ev.Err != nil {
				return false
			}
			if ev.CurrentTurnover < DefaultThresholds().MinTurnover {
				return !ev.Admitted && len(ev.Patterns) == 0
			}
			return true
		},
		gen.Float64Range(0, 50000),
		gen.Float64Range(0, 50000),
	))

	properties.TestingRun(t)
}
