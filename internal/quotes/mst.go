// Package quotes reads Warsaw Stock Exchange daily quotes from MetaStock
// text files and keeps the local archive up to date.
package quotes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"wse-scanner/internal/errors"
	"wse-scanner/internal/models"
)

// Source provides the raw daily history of an instrument, oldest first.
type Source interface {
	Candles(ctx context.Context, ticker string) ([]models.Candle, error)
}

// mstRow is one line of a .mst file.
type mstRow struct {
	Ticker string  `csv:"<TICKER>"`
	Date   string  `csv:"<DTYYYYMMDD>"`
	Open   float64 `csv:"<OPEN>"`
	High   float64 `csv:"<HIGH>"`
	Low    float64 `csv:"<LOW>"`
	Close  float64 `csv:"<CLOSE>"`
	Volume float64 `csv:"<VOL>"`
}

// MSTSource reads <ticker>.mst files from an extracted archive directory.
type MSTSource struct {
	dir string
}

// NewMSTSource creates a source over dir.
func NewMSTSource(dir string) *MSTSource {
	return &MSTSource{dir: dir}
}

// Dir returns the archive directory.
func (s *MSTSource) Dir() string {
	return s.dir
}

// Path returns the file that holds ticker's quotes.
func (s *MSTSource) Path(ticker string) string {
	return filepath.Join(s.dir, strings.ToUpper(ticker)+".mst")
}

// Candles reads ticker's full daily history.
func (s *MSTSource) Candles(ctx context.Context, ticker string) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path(ticker)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: data file %s does not exist", errors.ErrDataNotFound, path)
		}
		return nil, errors.NewDataError("quotes", ticker, "open failed", err)
	}
	defer f.Close()

	var rows []*mstRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, errors.NewDataError("quotes", ticker, fmt.Sprintf("failed to parse %s", path), err)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, r := range rows {
		candles = append(candles, models.Candle{
			Date:   strings.TrimSpace(r.Date),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	return candles, nil
}

// Tickers lists the tickers present in the archive directory.
func (s *MSTSource) Tickers() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.mst"))
	if err != nil {
		return nil, err
	}
	tickers := make([]string, 0, len(matches))
	for _, m := range matches {
		tickers = append(tickers, strings.TrimSuffix(filepath.Base(m), ".mst"))
	}
	return tickers, nil
}
