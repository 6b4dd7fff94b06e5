// Package patterns provides candlestick pattern detection.
package patterns

import (
	"wse-scanner/internal/models"
)

// DefaultHammerRatio is the shadow-to-body ratio used for hammers unless overridden.
const DefaultHammerRatio = 2.0

// CandlestickDetector evaluates candlestick predicates with a configurable hammer ratio.
type CandlestickDetector struct {
	hammerRatio float64 // Shadow must exceed body * hammerRatio
}

// NewCandlestickDetector creates a detector using DefaultHammerRatio.
func NewCandlestickDetector() *CandlestickDetector {
	return NewCandlestickDetectorWithRatio(DefaultHammerRatio)
}

// NewCandlestickDetectorWithRatio creates a detector with a custom hammer ratio.
// Non-positive ratios fall back to DefaultHammerRatio.
func NewCandlestickDetectorWithRatio(ratio float64) *CandlestickDetector {
	if ratio <= 0 {
		ratio = DefaultHammerRatio
	}
	return &CandlestickDetector{hammerRatio: ratio}
}

func (d *CandlestickDetector) Name() string {
	return "CandlestickDetector"
}

// HammerRatio returns the ratio in use.
func (d *CandlestickDetector) HammerRatio() float64 {
	return d.hammerRatio
}

// IsHammer reports a long lower shadow and an upper shadow shorter than the body.
func IsHammer(c models.Candle, ratio float64) bool {
	body := c.BodyLen()
	return c.TailLen() > body*ratio && c.WickLen() < body
}

// IsInvertedHammer reports a long upper shadow and a lower shadow shorter than the body.
func IsInvertedHammer(c models.Candle, ratio float64) bool {
	body := c.BodyLen()
	return c.WickLen() > body*ratio && c.TailLen() < body
}

// HasGapUp reports that current's body starts above previous's body.
func HasGapUp(previous, current models.Candle) bool {
	return previous.BodyEnds().Top < current.BodyEnds().Bottom
}

// HasGapDown reports that current's body ends below previous's body.
func HasGapDown(previous, current models.Candle) bool {
	return previous.BodyEnds().Bottom > current.BodyEnds().Top
}

// IsEngulfed reports that current's body contains previous's body. Equal ends count.
func IsEngulfed(previous, current models.Candle) bool {
	p, c := previous.BodyEnds(), current.BodyEnds()
	return p.Top <= c.Top && p.Bottom >= c.Bottom
}

// Single-candle patterns

func (d *CandlestickDetector) IsHammer(c models.Candle) bool {
	return IsHammer(c, d.hammerRatio)
}

func (d *CandlestickDetector) IsInvertedHammer(c models.Candle) bool {
	return IsInvertedHammer(c, d.hammerRatio)
}

func (d *CandlestickDetector) IsBullishHammer(c models.Candle) bool {
	return c.IsBullish() && d.IsHammer(c)
}

func (d *CandlestickDetector) IsBearishHammer(c models.Candle) bool {
	return c.IsBearish() && d.IsHammer(c)
}

func (d *CandlestickDetector) IsBullishInvertedHammer(c models.Candle) bool {
	return c.IsBullish() && d.IsInvertedHammer(c)
}

func (d *CandlestickDetector) IsBearishInvertedHammer(c models.Candle) bool {
	return c.IsBearish() && d.IsInvertedHammer(c)
}

// Two-candle patterns. current is the most recent bar.

// IsHangingMan detects a bearish hammer gapping up after a bullish bar.
func (d *CandlestickDetector) IsHangingMan(previous, current models.Candle) bool {
	return previous.IsBullish() && d.IsBearishHammer(current) && HasGapUp(previous, current)
}

// IsShootingStar detects a bearish inverted hammer gapping up after a bullish bar.
func (d *CandlestickDetector) IsShootingStar(previous, current models.Candle) bool {
	return previous.IsBullish() && d.IsBearishInvertedHammer(current) && HasGapUp(previous, current)
}

// IsMorningStar detects a bullish hammer gapping down after a bearish bar.
func (d *CandlestickDetector) IsMorningStar(previous, current models.Candle) bool {
	return previous.IsBearish() && d.IsBullishHammer(current) && HasGapDown(previous, current)
}

func (d *CandlestickDetector) IsBullishEngulfing(previous, current models.Candle) bool {
	return previous.IsBearish() && current.IsBullish() && IsEngulfed(previous, current)
}

func (d *CandlestickDetector) IsBearishEngulfing(previous, current models.Candle) bool {
	return previous.IsBullish() && current.IsBearish() && IsEngulfed(previous, current)
}

// IsBullishHarami and IsBearishHarami share one definition; see DESIGN.md.
func (d *CandlestickDetector) IsBullishHarami(previous, current models.Candle) bool {
	return previous.IsBullish() && current.IsBullish() && IsEngulfed(previous, current)
}

func (d *CandlestickDetector) IsBearishHarami(previous, current models.Candle) bool {
	return previous.IsBullish() && current.IsBullish() && IsEngulfed(previous, current)
}

// IsBullishKicker detects a bullish bar gapping up from a bearish one, without hammer shadows.
func (d *CandlestickDetector) IsBullishKicker(previous, current models.Candle) bool {
	return previous.IsBearish() && current.IsBullish() && HasGapUp(previous, current) &&
		!(d.IsHammer(current) || d.IsInvertedHammer(current))
}

// IsBearishKicker detects a bearish bar gapping down from a bullish one, without hammer shadows.
func (d *CandlestickDetector) IsBearishKicker(previous, current models.Candle) bool {
	return previous.IsBullish() && current.IsBearish() && HasGapDown(previous, current) &&
		!(d.IsHammer(current) || d.IsInvertedHammer(current))
}
