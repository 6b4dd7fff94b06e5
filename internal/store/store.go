// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"wse-scanner/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Candles
	SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, from, to string) ([]models.Candle, error)
	GetCandlesFreshness(ctx context.Context, symbol, timeframe string) (string, error)

	// Scan history
	RecordScan(ctx context.Context, run ScanRun) (int64, error)
	GetScanHistory(ctx context.Context, filter ScanFilter) ([]ScanRun, error)

	// Sync
	GetLastSync(dataType string) time.Time
	SetLastSync(dataType string, t time.Time) error

	// Lifecycle
	Close() error
}

// ScanRun is a persisted scan with its triggers.
type ScanRun struct {
	ID          int64
	RunAt       time.Time
	Granularity string
	AsOf        string // YYYYMMDD of the reference day, empty when the date check was off
	Evaluated   int
	Admitted    int
	Triggers    []ScanTrigger
}

// ScanTrigger is one pattern fired by one instrument in a scan.
type ScanTrigger struct {
	Pattern  string
	Symbol   string
	Turnover float64
}

// ScanFilter represents filters for querying scan history.
type ScanFilter struct {
	Symbol  string
	Pattern string
	Since   time.Time
	Limit   int
}
