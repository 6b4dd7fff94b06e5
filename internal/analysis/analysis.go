// Package analysis provides technical analysis functionality including
// candlestick pattern detection, resampling and signal scanning.
package analysis

import (
	"wse-scanner/internal/models"
)

// PatternDirection represents the expected direction of a pattern.
type PatternDirection string

const (
	PatternBullish PatternDirection = "bullish"
	PatternBearish PatternDirection = "bearish"
	PatternNeutral PatternDirection = "neutral"
)

// PairPredicate evaluates a pattern on the two most recent bars.
// current is the most recent bar.
type PairPredicate func(previous, current models.Candle) bool

// Pattern is a named two-bar predicate.
type Pattern struct {
	Name      string
	Title     string
	Direction PatternDirection
	Match     PairPredicate
}
