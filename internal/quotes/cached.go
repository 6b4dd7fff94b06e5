package quotes

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"wse-scanner/internal/logging"
	"wse-scanner/internal/models"
	"wse-scanner/internal/store"
)

const cacheTimeframe = string(models.Daily)

// CachedSource serves candles from the SQLite store while they are fresh and
// falls back to the wrapped source otherwise.
type CachedSource struct {
	source Source
	store  store.DataStore
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewCachedSource wraps source with store. A non-positive ttl disables cache reads.
func NewCachedSource(source Source, st store.DataStore, ttl time.Duration, logger zerolog.Logger) *CachedSource {
	return &CachedSource{
		source: source,
		store:  st,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

func syncKey(ticker string) string {
	return "candles:" + ticker
}

// Candles returns cached candles when the ticker was refreshed within ttl and
// after the last archive update. Otherwise it reads the source and refreshes
// the cache. A stale cache is served when the source fails.
//
// Only series that pass ValidateSeries are cached. The store keys bars by
// date and reads them back sorted, so an invalid series would come back
// repaired; it is returned as read instead and the cache is left untouched.
func (c *CachedSource) Candles(ctx context.Context, ticker string) ([]models.Candle, error) {
	logger := logging.WithSymbol(c.logger, ticker)

	if c.fresh(ticker) {
		cached, err := c.store.GetCandles(ctx, ticker, cacheTimeframe, "", "")
		if err == nil && len(cached) > 0 {
			logger.Debug().Int("count", len(cached)).Msg("Serving candles from cache")
			return cached, nil
		}
	}

	candles, err := c.source.Candles(ctx, ticker)
	if err != nil {
		cached, cacheErr := c.store.GetCandles(ctx, ticker, cacheTimeframe, "", "")
		if cacheErr == nil && len(cached) > 0 {
			logger.Warn().Err(err).Msg("Source failed, serving stale cache")
			return cached, nil
		}
		return nil, err
	}

	if err := models.ValidateSeries(ticker, candles); err != nil {
		logger.Warn().Err(err).Msg("Not caching invalid series")
		return candles, nil
	}
	if err := c.store.SaveCandles(ctx, ticker, cacheTimeframe, candles); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache candles")
		return candles, nil
	}
	if err := c.store.SetLastSync(syncKey(ticker), c.now()); err != nil {
		logger.Warn().Err(err).Msg("Failed to record cache time")
	}
	return candles, nil
}

func (c *CachedSource) fresh(ticker string) bool {
	if c.ttl <= 0 {
		return false
	}
	cachedAt := c.store.GetLastSync(syncKey(ticker))
	if cachedAt.IsZero() || c.now().Sub(cachedAt) > c.ttl {
		return false
	}
	// A newer archive invalidates every cached ticker.
	return !c.store.GetLastSync(SyncTypeQuotes).After(cachedAt)
}
