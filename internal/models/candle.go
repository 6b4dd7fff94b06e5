// Package models provides domain models for the scanner.
package models

import (
	"fmt"
	"math"
	"time"

	"wse-scanner/internal/errors"
)

// DateLayout is the layout of Candle.Date (YYYYMMDD).
const DateLayout = "20060102"

// Granularity selects the bar period a series is evaluated on.
type Granularity string

const (
	Daily  Granularity = "daily"
	Weekly Granularity = "weekly"
)

// ParseGranularity parses a granularity name.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case Daily, Weekly:
		return Granularity(s), nil
	case "":
		return Daily, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownGranularity, s)
	}
}

// Candle represents OHLCV data for one traded period (a day or an aggregated week).
type Candle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// BodyEnds is the price range between a candle's open and close.
type BodyEnds struct {
	Bottom float64
	Top    float64
}

// Instrument is an exchange-listed instrument to scan.
type Instrument struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// IsBullish reports close above open.
func (c Candle) IsBullish() bool {
	return c.Open < c.Close
}

// IsBearish reports close below open.
func (c Candle) IsBearish() bool {
	return c.Open > c.Close
}

// BodyEnds returns the bottom and top of the body.
func (c Candle) BodyEnds() BodyEnds {
	if c.Open <= c.Close {
		return BodyEnds{Bottom: c.Open, Top: c.Close}
	}
	return BodyEnds{Bottom: c.Close, Top: c.Open}
}

// BodyLen returns |open - close|.
func (c Candle) BodyLen() float64 {
	return math.Abs(c.Open - c.Close)
}

// BodyHalf returns the midpoint of the body.
func (c Candle) BodyHalf() float64 {
	return (c.Open + c.Close) / 2
}

// WickLen returns the upper shadow.
func (c Candle) WickLen() float64 {
	return c.High - c.BodyEnds().Top
}

// TailLen returns the lower shadow.
func (c Candle) TailLen() float64 {
	return c.BodyEnds().Bottom - c.Low
}

// AvgPrice returns (open+high+low+close)/4.
func (c Candle) AvgPrice() float64 {
	return (c.Open + c.High + c.Low + c.Close) / 4
}

// Turnover approximates traded value as average price times volume.
func (c Candle) Turnover() float64 {
	return c.AvgPrice() * c.Volume
}

// Time parses Date in UTC.
func (c Candle) Time() (time.Time, error) {
	t, err := time.Parse(DateLayout, c.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid candle date %q: %w", c.Date, err)
	}
	return t, nil
}

// Validate rejects non-finite fields, prices that are not positive and shadows
// that do not enclose the body.
func (c Candle) Validate(symbol string) error {
	if len(c.Date) != len(DateLayout) {
		return errors.NewDataIntegrityError(symbol, c.Date, "date must be YYYYMMDD")
	}
	if _, err := c.Time(); err != nil {
		return errors.NewDataIntegrityError(symbol, c.Date, err.Error())
	}

	fields := map[string]float64{"open": c.Open, "high": c.High, "low": c.Low, "close": c.Close, "volume": c.Volume}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewDataIntegrityError(symbol, c.Date, name+" is not finite")
		}
	}

	prices := []struct {
		name  string
		value float64
	}{{"open", c.Open}, {"high", c.High}, {"low", c.Low}, {"close", c.Close}}
	for _, p := range prices {
		if p.value <= 0 {
			return errors.NewDataIntegrityError(symbol, c.Date, fmt.Sprintf("non-positive %s %v", p.name, p.value))
		}
	}
	if c.Volume < 0 {
		return errors.NewDataIntegrityError(symbol, c.Date, "negative volume")
	}
	body := c.BodyEnds()
	if c.High < body.Top {
		return errors.NewDataIntegrityError(symbol, c.Date, fmt.Sprintf("high %v below body top %v", c.High, body.Top))
	}
	if c.Low > body.Bottom {
		return errors.NewDataIntegrityError(symbol, c.Date, fmt.Sprintf("low %v above body bottom %v", c.Low, body.Bottom))
	}
	return nil
}

// ValidateSeries checks every candle and that dates are strictly increasing.
func ValidateSeries(symbol string, candles []Candle) error {
	for i, c := range candles {
		if err := c.Validate(symbol); err != nil {
			return err
		}
		// Equal-length YYYYMMDD strings order the same as the dates they encode.
		if i > 0 && c.Date <= candles[i-1].Date {
			return errors.NewDataIntegrityError(symbol, c.Date, "dates are not strictly increasing")
		}
	}
	return nil
}
