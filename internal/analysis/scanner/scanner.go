// Package scanner applies admission filters and the pattern registry across a
// batch of instruments.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wse-scanner/internal/analysis/patterns"
	"wse-scanner/internal/analysis/resample"
	"wse-scanner/internal/errors"
	"wse-scanner/internal/logging"
	"wse-scanner/internal/models"
)

// RiseMode selects how activity growth between the two bars is measured.
type RiseMode string

const (
	RiseTurnover RiseMode = "turnover" // current turnover >= previous turnover * factor
	RiseVolume   RiseMode = "volume"   // current volume / previous volume >= factor
	RiseAny      RiseMode = "any"      // either of the above
)

// ParseRiseMode parses a rise mode name. Empty selects RiseTurnover.
func ParseRiseMode(s string) (RiseMode, error) {
	switch RiseMode(s) {
	case RiseTurnover, RiseVolume, RiseAny:
		return RiseMode(s), nil
	case "":
		return RiseTurnover, nil
	default:
		return "", errors.NewValidationError("rise_mode", s, "must be turnover, volume or any")
	}
}

// Thresholds is the admission filter an instrument must pass before pattern evaluation.
type Thresholds struct {
	MinTurnover float64
	MinPrice    float64
	RiseFactor  float64
	RiseMode    RiseMode
}

// DefaultThresholds returns the thresholds used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTurnover: 100_000,
		MinPrice:    2.0,
		RiseFactor:  1.5,
		RiseMode:    RiseTurnover,
	}
}

// Options configures a Scanner.
type Options struct {
	Thresholds  Thresholds
	Granularity models.Granularity
	Concurrency int
	// AsOf enables the date check when non-zero: the last raw bar must fall on
	// the same calendar day (daily) or ISO week (weekly) as AsOf, read in
	// AsOf's own location.
	AsOf time.Time
}

// Series is the raw daily history of one instrument.
type Series struct {
	Symbol  string
	Candles []models.Candle
}

// CandleProvider is a function that provides candles for a symbol.
type CandleProvider func(ctx context.Context, symbol string) ([]models.Candle, error)

// Evaluation is the outcome of scanning a single instrument.
type Evaluation struct {
	Symbol           string
	Previous         models.Candle
	Current          models.Candle
	PreviousTurnover float64
	CurrentTurnover  float64
	Admitted         bool
	Patterns         []string
	Err              error
}

// Scanner evaluates the pattern registry over admitted instruments.
// It holds no mutable state and can be reused and called concurrently.
type Scanner struct {
	registry *patterns.Registry
	opts     Options
	logger   zerolog.Logger
}

// NewScanner creates a new scanner.
func NewScanner(registry *patterns.Registry, opts Options, logger zerolog.Logger) *Scanner {
	if registry == nil {
		registry = patterns.NewRegistry(patterns.DefaultHammerRatio)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Granularity == "" {
		opts.Granularity = models.Daily
	}
	if opts.Thresholds.RiseMode == "" {
		opts.Thresholds.RiseMode = RiseTurnover
	}
	return &Scanner{
		registry: registry,
		opts:     opts,
		logger:   logger,
	}
}

// Registry returns the registry the scanner evaluates.
func (s *Scanner) Registry() *patterns.Registry {
	return s.registry
}

// Options returns the effective options.
func (s *Scanner) Options() Options {
	return s.opts
}

// Evaluate scans one instrument's raw daily history.
// Instruments that cannot be evaluated carry Err and are never admitted.
func (s *Scanner) Evaluate(symbol string, candles []models.Candle) Evaluation {
	ev := Evaluation{Symbol: symbol}

	if len(candles) < 2 {
		ev.Err = fmt.Errorf("%w: %d raw bars", errors.ErrInsufficientHistory, len(candles))
		return ev
	}
	if err := models.ValidateSeries(symbol, candles); err != nil {
		ev.Err = err
		return ev
	}
	if err := s.checkDate(candles[len(candles)-1]); err != nil {
		ev.Err = err
		return ev
	}

	bars, err := resample.Resample(candles, s.opts.Granularity)
	if err != nil {
		ev.Err = err
		return ev
	}
	if len(bars) < 2 {
		ev.Err = fmt.Errorf("%w: %d %s bars", errors.ErrInsufficientHistory, len(bars), s.opts.Granularity)
		return ev
	}

	ev.Current = bars[len(bars)-1]
	ev.Previous = bars[len(bars)-2]
	ev.CurrentTurnover = ev.Current.Turnover()
	ev.PreviousTurnover = ev.Previous.Turnover()

	if !s.Admit(ev.Previous, ev.Current) {
		return ev
	}
	ev.Admitted = true
	ev.Patterns = s.registry.Matches(ev.Previous, ev.Current)
	return ev
}

// Admit applies the turnover, price and rise thresholds to the last two bars.
func (s *Scanner) Admit(previous, current models.Candle) bool {
	t := s.opts.Thresholds
	currentTurnover := current.Turnover()
	if currentTurnover < t.MinTurnover || current.Close < t.MinPrice {
		return false
	}
	return rises(previous, current, t)
}

// rises is false whenever the ratio against the previous bar is undefined.
func rises(previous, current models.Candle, t Thresholds) bool {
	previousTurnover := previous.Turnover()
	if previous.Volume == 0 || previousTurnover == 0 {
		return false
	}

	turnoverRise := current.Turnover() >= previousTurnover*t.RiseFactor
	volumeRise := current.Volume/previous.Volume >= t.RiseFactor

	switch t.RiseMode {
	case RiseVolume:
		return volumeRise
	case RiseAny:
		return turnoverRise || volumeRise
	default:
		return turnoverRise
	}
}

func (s *Scanner) checkDate(last models.Candle) error {
	if s.opts.AsOf.IsZero() {
		return nil
	}
	ref := s.opts.AsOf.Format(models.DateLayout)

	if s.opts.Granularity == models.Weekly {
		same, err := resample.SameWeek(ref, last.Date)
		if err != nil {
			return err
		}
		if !same {
			return fmt.Errorf("%w: last %s not in week of %s", errors.ErrStaleData, last.Date, ref)
		}
		return nil
	}
	if last.Date != ref {
		return fmt.Errorf("%w: last %s, expected %s", errors.ErrStaleData, last.Date, ref)
	}
	return nil
}

// ScanSeries evaluates in-memory histories concurrently. Entries are
// evaluated independently, so repeated symbols each keep their own candles.
func (s *Scanner) ScanSeries(ctx context.Context, series []Series) (*Result, error) {
	return s.run(ctx, len(series), func(idx int) Evaluation {
		sr := series[idx]
		return s.scanSymbol(ctx, sr.Symbol, func(context.Context, string) ([]models.Candle, error) {
			return sr.Candles, nil
		})
	})
}

// Scan fetches and evaluates every symbol with a bounded pool of workers.
// A provider failure for one symbol is recorded as a skip and does not stop
// the others. Returns ErrNoData when symbols were given but none could be
// evaluated.
func (s *Scanner) Scan(ctx context.Context, symbols []string, candleProvider CandleProvider) (*Result, error) {
	return s.run(ctx, len(symbols), func(idx int) Evaluation {
		return s.scanSymbol(ctx, symbols[idx], candleProvider)
	})
}

// run evaluates indices 0..n-1 on the worker pool and merges in index order.
func (s *Scanner) run(ctx context.Context, n int, evaluate func(idx int) Evaluation) (*Result, error) {
	result := NewResult(s.opts.Granularity)
	if n == 0 {
		return result, nil
	}

	// Each worker writes only its own slot; merging happens after the join.
	evaluations := make([]Evaluation, n)
	workChan := make(chan int, n)

	var wg sync.WaitGroup

	workers := min(s.opts.Concurrency, n)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workChan {
				evaluations[idx] = evaluate(idx)
			}
		}()
	}

	for i := 0; i < n; i++ {
		workChan <- i
	}
	close(workChan)
	wg.Wait()

	for _, ev := range evaluations {
		result.Add(ev)
	}

	s.logger.Info().
		Str("granularity", string(s.opts.Granularity)).
		Int("symbols", n).
		Int("evaluated", result.Evaluated).
		Int("admitted", result.Admitted).
		Int("triggered", result.Count()).
		Msg("Scan completed")

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if result.Evaluated == 0 {
		return result, errors.ErrNoData
	}
	return result, nil
}

func (s *Scanner) scanSymbol(ctx context.Context, symbol string, candleProvider CandleProvider) Evaluation {
	logger := logging.WithSymbol(s.logger, symbol)

	if err := ctx.Err(); err != nil {
		return Evaluation{Symbol: symbol, Err: err}
	}

	candles, err := candleProvider(ctx, symbol)
	if err != nil {
		logger.Warn().Err(err).Msg("Unable to fetch quotes")
		return Evaluation{Symbol: symbol, Err: errors.NewDataError("candles", symbol, "fetch failed", err)}
	}

	ev := s.Evaluate(symbol, candles)
	switch {
	case ev.Err != nil:
		logger.Warn().Err(ev.Err).Msg("Skipping instrument")
	case len(ev.Patterns) > 0:
		logger.Info().
			Float64("turnover", ev.CurrentTurnover).
			Strs("patterns", ev.Patterns).
			Msg("Patterns triggered")
	default:
		logger.Debug().
			Bool("admitted", ev.Admitted).
			Float64("turnover", ev.CurrentTurnover).
			Msg("No pattern")
	}
	return ev
}
