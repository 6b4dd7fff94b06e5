// Package resample groups daily candles into coarser periods.
package resample

import (
	"fmt"
	"time"

	"wse-scanner/internal/errors"
	"wse-scanner/internal/models"
)

// WeekStart returns the Monday (YYYYMMDD) of the ISO week containing date.
func WeekStart(date string) (string, error) {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return weekStartOf(t).Format(models.DateLayout), nil
}

func weekStartOf(t time.Time) time.Time {
	// time.Weekday counts from Sunday; ISO weeks start on Monday.
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// SameWeek reports whether two dates fall in the same ISO week.
func SameWeek(a, b string) (bool, error) {
	wa, err := WeekStart(a)
	if err != nil {
		return false, err
	}
	wb, err := WeekStart(b)
	if err != nil {
		return false, err
	}
	return wa == wb, nil
}

// Resample converts an ordered daily series to the requested granularity.
// Daily returns a copy of the input. The input is never modified.
func Resample(candles []models.Candle, granularity models.Granularity) ([]models.Candle, error) {
	switch granularity {
	case models.Daily:
		out := make([]models.Candle, len(candles))
		copy(out, candles)
		return out, nil
	case models.Weekly:
		return Weekly(candles)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownGranularity, granularity)
	}
}

// Weekly folds consecutive days of one ISO week into a single candle.
// The weekly candle takes the first open, the last close and date, the extreme
// high and low, and the summed volume of the days present.
func Weekly(candles []models.Candle) ([]models.Candle, error) {
	var (
		out     []models.Candle
		week    models.Candle
		weekKey string
	)

	for i, day := range candles {
		key, err := WeekStart(day.Date)
		if err != nil {
			return nil, err
		}

		if i == 0 || key != weekKey {
			if i > 0 {
				out = append(out, week)
			}
			weekKey = key
			week = day
			continue
		}

		week = fold(week, day)
	}

	if len(candles) > 0 {
		out = append(out, week)
	}
	return out, nil
}

// fold returns a new aggregate of week extended by day.
func fold(week, day models.Candle) models.Candle {
	return models.Candle{
		Date:   day.Date,
		Open:   week.Open,
		High:   max(week.High, day.High),
		Low:    min(week.Low, day.Low),
		Close:  day.Close,
		Volume: week.Volume + day.Volume,
	}
}
