package patterns

import (
	"wse-scanner/internal/models"
)

const (
	longBodyShadowRatio = 2.0
	longBodyMinRise     = 1.03 // Body top must be 3% above body bottom
	insideBarRatio      = 5.0
)

// IsLong reports a body dominating its shadows and spanning at least 3%.
func IsLong(c models.Candle) bool {
	body := c.BodyEnds()
	return c.BodyLen() > (c.WickLen()+c.TailLen())*longBodyShadowRatio &&
		body.Top > body.Bottom*longBodyMinRise
}

func IsLongBullish(c models.Candle) bool {
	return c.IsBullish() && IsLong(c)
}

func IsLongBearish(c models.Candle) bool {
	return c.IsBearish() && IsLong(c)
}

// Engulfs reports that outer's body strictly contains inner's body and is more
// than ratio times longer.
func Engulfs(outer, inner models.Candle, ratio float64) bool {
	o, i := outer.BodyEnds(), inner.BodyEnds()
	return i.Top < o.Top && i.Bottom > o.Bottom && inner.BodyLen()*ratio < outer.BodyLen()
}

func (d *CandlestickDetector) IsBullishGap(previous, current models.Candle) bool {
	return IsLongBullish(current) && HasGapUp(previous, current)
}

func (d *CandlestickDetector) IsBearishGap(previous, current models.Candle) bool {
	return IsLongBearish(current) && HasGapDown(previous, current)
}

// IsPiercing detects a long bullish bar opening below the previous low and
// closing in the upper half of the previous body.
func (d *CandlestickDetector) IsPiercing(previous, current models.Candle) bool {
	return IsLongBullish(current) &&
		current.Open < previous.Low &&
		current.Close > previous.BodyHalf() &&
		current.Close < previous.Open
}

// IsDarkCloudCover mirrors IsPiercing for tops.
func (d *CandlestickDetector) IsDarkCloudCover(previous, current models.Candle) bool {
	return IsLongBearish(current) &&
		current.Open > previous.High &&
		current.Close < previous.BodyHalf() &&
		current.Close > previous.Open
}

// IsInsideBar reports a bar whose range and body sit well inside the previous bar.
func (d *CandlestickDetector) IsInsideBar(previous, current models.Candle) bool {
	return current.High < previous.High && current.Low > previous.Low && Engulfs(previous, current, insideBarRatio)
}

func (d *CandlestickDetector) IsBullishInsideBar(previous, current models.Candle) bool {
	return IsLongBearish(previous) && d.IsInsideBar(previous, current)
}

func (d *CandlestickDetector) IsBearishInsideBar(previous, current models.Candle) bool {
	return IsLongBullish(previous) && d.IsInsideBar(previous, current)
}

// IsBullishSmash detects a bullish bar closing above an inverted hammer's high.
func (d *CandlestickDetector) IsBullishSmash(previous, current models.Candle) bool {
	return current.IsBullish() && d.IsInvertedHammer(previous) && current.Close > previous.High
}

// IsBearishSmash detects a bearish bar closing below a hammer's low.
func (d *CandlestickDetector) IsBearishSmash(previous, current models.Candle) bool {
	return current.IsBearish() && d.IsHammer(previous) && current.Close < previous.Low
}
