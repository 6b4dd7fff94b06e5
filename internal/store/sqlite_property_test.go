package store

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wse-scanner/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// Property: saving candles and reading them back returns the same bars in date order.
func TestProperty_CandleRoundTripConsistency(t *testing.T) {
	store := newTestStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbols := []string{"11BIT", "CDPROJEKT", "PKNORLEN", "PKOBP", "KGHM", "ALLEGRO", "LPP", "DINOPL"}
	timeframeGen := gen.OneConstOf("daily", "weekly")

	run := 0
	properties.Property("save then retrieve produces equivalent data", prop.ForAll(
		func(symbolIdx int, timeframe string, count int, basePrice float64, baseVolume int64) bool {
			ctx := context.Background()
			run++
			symbol := fmt.Sprintf("%s_%d", symbols[symbolIdx%len(symbols)], run)

			candles := generateTestCandles(count, basePrice, baseVolume)
			if err := store.SaveCandles(ctx, symbol, timeframe, candles); err != nil {
				t.Logf("Failed to save candles: %v", err)
				return false
			}

			retrieved, err := store.GetCandles(ctx, symbol, timeframe, "", "")
			if err != nil {
				t.Logf("Failed to get candles: %v", err)
				return false
			}
			if len(retrieved) != len(candles) {
				t.Logf("Count mismatch: expected %d, got %d", len(candles), len(retrieved))
				return false
			}
			for i := range candles {
				if !candlesEqual(candles[i], retrieved[i]) {
					t.Logf("Candle mismatch at index %d: original=%+v, retrieved=%+v", i, candles[i], retrieved[i])
					return false
				}
			}

			last, err := store.GetCandlesFreshness(ctx, symbol, timeframe)
			return err == nil && last == candles[len(candles)-1].Date
		},
		gen.IntRange(0, len(symbols)-1),
		timeframeGen,
		gen.IntRange(1, 20),
		gen.Float64Range(2.0, 5000.0),
		gen.Int64Range(100, 1000000),
	))

	properties.TestingRun(t)
}

func TestSaveCandlesUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []models.Candle{{Date: "20220606", Open: 520, High: 531, Low: 510, Close: 518, Volume: 1000}}
	second := []models.Candle{{Date: "20220606", Open: 520, High: 531, Low: 510, Close: 518, Volume: 1885}}

	require.NoError(t, store.SaveCandles(ctx, "11BIT", "daily", first))
	require.NoError(t, store.SaveCandles(ctx, "11BIT", "daily", second))
	require.NoError(t, store.SaveCandles(ctx, "11BIT", "daily", nil))

	got, err := store.GetCandles(ctx, "11BIT", "daily", "20220601", "20220630")
	require.NoError(t, err)
	assert.Equal(t, second, got)

	got, err = store.GetCandles(ctx, "11BIT", "weekly", "", "")
	require.NoError(t, err)
	assert.Empty(t, got)

	last, err := store.GetCandlesFreshness(ctx, "MISSING", "daily")
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestScanHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2022, time.June, 3, 17, 0, 0, 0, time.UTC)

	_, err := store.RecordScan(ctx, ScanRun{
		RunAt: base, Granularity: "daily", AsOf: "20220603", Evaluated: 10, Admitted: 2,
		Triggers: []ScanTrigger{
			{Pattern: "shootingStar", Symbol: "11BIT", Turnover: 100},
			{Pattern: "bullishKicker", Symbol: "KGHM", Turnover: 300},
		},
	})
	require.NoError(t, err)

	id, err := store.RecordScan(ctx, ScanRun{
		RunAt: base.Add(24 * time.Hour), Granularity: "weekly", Evaluated: 8, Admitted: 1,
		Triggers: []ScanTrigger{{Pattern: "shootingStar", Symbol: "LPP", Turnover: 50}},
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	all, err := store.GetScanHistory(ctx, ScanFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "weekly", all[0].Granularity)
	assert.Empty(t, all[0].AsOf)
	assert.Equal(t, "20220603", all[1].AsOf)
	assert.Len(t, all[1].Triggers, 2)

	bySymbol, err := store.GetScanHistory(ctx, ScanFilter{Symbol: "KGHM"})
	require.NoError(t, err)
	require.Len(t, bySymbol, 1)
	assert.Equal(t, []ScanTrigger{{Pattern: "bullishKicker", Symbol: "KGHM", Turnover: 300}}, bySymbol[0].Triggers)

	byPattern, err := store.GetScanHistory(ctx, ScanFilter{Pattern: "shootingStar", Limit: 1})
	require.NoError(t, err)
	require.Len(t, byPattern, 1)
	assert.Equal(t, "LPP", byPattern[0].Triggers[0].Symbol)

	since, err := store.GetScanHistory(ctx, ScanFilter{Since: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.Len(t, since, 1)
}

func TestLastSync(t *testing.T) {
	store := newTestStore(t)

	assert.True(t, store.GetLastSync("quotes").IsZero())

	now := time.Date(2022, time.June, 6, 18, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetLastSync("quotes", now))
	assert.True(t, store.GetLastSync("quotes").Equal(now))
}

// generateTestCandles creates valid consecutive daily candles for testing.
func generateTestCandles(count int, basePrice float64, baseVolume int64) []models.Candle {
	candles := make([]models.Candle, count)
	baseDay := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		variation := float64(i%10) * 0.01 * basePrice
		open := basePrice + variation
		close := basePrice + variation*0.5

		candles[i] = models.Candle{
			Date:   baseDay.AddDate(0, 0, i).Format(models.DateLayout),
			Open:   roundToDecimal(open, 2),
			High:   roundToDecimal(math.Max(open, close)*1.01, 2),
			Low:    roundToDecimal(math.Min(open, close)*0.99, 2),
			Close:  roundToDecimal(close, 2),
			Volume: float64(baseVolume + int64(i*1000)),
		}
	}

	return candles
}

func roundToDecimal(val float64, places int) float64 {
	multiplier := math.Pow(10, float64(places))
	return math.Round(val*multiplier) / multiplier
}

// candlesEqual compares two candles with floating point tolerance.
func candlesEqual(a, b models.Candle) bool {
	const tolerance = 0.01
	return a.Date == b.Date &&
		math.Abs(a.Open-b.Open) <= tolerance &&
		math.Abs(a.High-b.High) <= tolerance &&
		math.Abs(a.Low-b.Low) <= tolerance &&
		math.Abs(a.Close-b.Close) <= tolerance &&
		a.Volume == b.Volume
}
