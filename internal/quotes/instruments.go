package quotes

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"wse-scanner/internal/errors"
	"wse-scanner/internal/models"
)

// LoadInstruments reads a JSON list of {"ticker", "name"} objects.
// Entries without a ticker are dropped and a missing name defaults to the ticker.
func LoadInstruments(path string) ([]models.Instrument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: instruments file %s", errors.ErrDataNotFound, path)
		}
		return nil, fmt.Errorf("reading instruments: %w", err)
	}

	var raw []models.Instrument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: instruments file %s: %v", errors.ErrInputValidation, path, err)
	}

	seen := make(map[string]struct{}, len(raw))
	instruments := make([]models.Instrument, 0, len(raw))
	for _, in := range raw {
		in.Ticker = strings.TrimSpace(in.Ticker)
		if in.Ticker == "" {
			continue
		}
		if _, ok := seen[in.Ticker]; ok {
			continue
		}
		seen[in.Ticker] = struct{}{}
		if in.Name == "" {
			in.Name = in.Ticker
		}
		instruments = append(instruments, in)
	}
	return instruments, nil
}

// Names maps tickers to display names.
func Names(instruments []models.Instrument) map[string]string {
	names := make(map[string]string, len(instruments))
	for _, in := range instruments {
		names[in.Ticker] = in.Name
	}
	return names
}

// Tickers returns the instruments' tickers in order.
func Tickers(instruments []models.Instrument) []string {
	tickers := make([]string, len(instruments))
	for i, in := range instruments {
		tickers[i] = in.Ticker
	}
	return tickers
}
