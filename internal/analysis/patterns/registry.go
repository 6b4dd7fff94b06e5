package patterns

import (
	"fmt"

	"wse-scanner/internal/analysis"
	"wse-scanner/internal/errors"
	"wse-scanner/internal/models"
)

// Pattern names reported by the scanner.
const (
	Hammer                = "hammer"
	InvertedHammer        = "invertedHammer"
	BullishHammer         = "bullishHammer"
	BearishHammer         = "bearishHammer"
	BullishInvertedHammer = "bullishInvertedHammer"
	BearishInvertedHammer = "bearishInvertedHammer"
	HangingMan            = "hangingMan"
	ShootingStar          = "shootingStar"
	MorningStar           = "morningStar"
	BullishEngulfing      = "bullishEngulfing"
	BearishEngulfing      = "bearishEngulfing"
	BullishHarami         = "bullishHarami"
	BearishHarami         = "bearishHarami"
	BullishKicker         = "bullishKicker"
	BearishKicker         = "bearishKicker"

	BullishGap       = "bullishGap"
	BearishGap       = "bearishGap"
	Piercing         = "piercing"
	DarkCloudCover   = "darkCloudCover"
	BullishInsideBar = "bullishInsideBar"
	BearishInsideBar = "bearishInsideBar"
	BullishSmash     = "bullishSmash"
	BearishSmash     = "bearishSmash"
)

// Registry is an ordered, enumerable set of named two-bar patterns.
type Registry struct {
	patterns []analysis.Pattern
	index    map[string]int
}

// NewEmptyRegistry creates a registry with no patterns.
func NewEmptyRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// NewRegistry creates the standard registry of fifteen patterns.
func NewRegistry(hammerRatio float64) *Registry {
	r := NewEmptyRegistry()
	for _, p := range standardPatterns(NewCandlestickDetectorWithRatio(hammerRatio)) {
		r.mustRegister(p)
	}
	return r
}

// NewExtendedRegistry creates the standard registry plus gap, piercing,
// dark cloud cover, inside bar and smash patterns.
func NewExtendedRegistry(hammerRatio float64) *Registry {
	d := NewCandlestickDetectorWithRatio(hammerRatio)
	r := NewEmptyRegistry()
	for _, p := range standardPatterns(d) {
		r.mustRegister(p)
	}
	for _, p := range extendedPatterns(d) {
		r.mustRegister(p)
	}
	return r
}

// Register adds a pattern. Names must be unique.
func (r *Registry) Register(p analysis.Pattern) error {
	if p.Name == "" || p.Match == nil {
		return errors.NewValidationError("pattern", p.Name, "name and predicate are required")
	}
	if _, ok := r.index[p.Name]; ok {
		return fmt.Errorf("%w: %s", errors.ErrDuplicatePattern, p.Name)
	}
	r.index[p.Name] = len(r.patterns)
	r.patterns = append(r.patterns, p)
	return nil
}

func (r *Registry) mustRegister(p analysis.Pattern) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// All returns the registered patterns in registration order.
func (r *Registry) All() []analysis.Pattern {
	out := make([]analysis.Pattern, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.patterns))
	for i, p := range r.patterns {
		names[i] = p.Name
	}
	return names
}

// Len returns the number of registered patterns.
func (r *Registry) Len() int {
	return len(r.patterns)
}

// Lookup finds a pattern by name.
func (r *Registry) Lookup(name string) (analysis.Pattern, bool) {
	i, ok := r.index[name]
	if !ok {
		return analysis.Pattern{}, false
	}
	return r.patterns[i], true
}

// Matches returns the names of all patterns that fire for the bar pair.
func (r *Registry) Matches(previous, current models.Candle) []string {
	var names []string
	for _, p := range r.patterns {
		if p.Match(previous, current) {
			names = append(names, p.Name)
		}
	}
	return names
}

// single adapts a one-bar predicate to the pair signature.
func single(fn func(models.Candle) bool) analysis.PairPredicate {
	return func(_, current models.Candle) bool {
		return fn(current)
	}
}

func standardPatterns(d *CandlestickDetector) []analysis.Pattern {
	return []analysis.Pattern{
		{Name: Hammer, Title: "Hammer", Direction: analysis.PatternNeutral, Match: single(d.IsHammer)},
		{Name: InvertedHammer, Title: "Inverted Hammer", Direction: analysis.PatternNeutral, Match: single(d.IsInvertedHammer)},
		{Name: BullishHammer, Title: "Bullish Hammer", Direction: analysis.PatternBullish, Match: single(d.IsBullishHammer)},
		{Name: BearishHammer, Title: "Bearish Hammer", Direction: analysis.PatternBearish, Match: single(d.IsBearishHammer)},
		{Name: BullishInvertedHammer, Title: "Bullish Inverted Hammer", Direction: analysis.PatternBullish, Match: single(d.IsBullishInvertedHammer)},
		{Name: BearishInvertedHammer, Title: "Bearish Inverted Hammer", Direction: analysis.PatternBearish, Match: single(d.IsBearishInvertedHammer)},
		{Name: HangingMan, Title: "Hanging Man", Direction: analysis.PatternBearish, Match: d.IsHangingMan},
		{Name: ShootingStar, Title: "Shooting Star", Direction: analysis.PatternBearish, Match: d.IsShootingStar},
		{Name: MorningStar, Title: "Morning Star", Direction: analysis.PatternBullish, Match: d.IsMorningStar},
		{Name: BullishEngulfing, Title: "Bullish Engulfing", Direction: analysis.PatternBullish, Match: d.IsBullishEngulfing},
		{Name: BearishEngulfing, Title: "Bearish Engulfing", Direction: analysis.PatternBearish, Match: d.IsBearishEngulfing},
		{Name: BullishHarami, Title: "Bullish Harami", Direction: analysis.PatternBullish, Match: d.IsBullishHarami},
		{Name: BearishHarami, Title: "Bearish Harami", Direction: analysis.PatternBearish, Match: d.IsBearishHarami},
		{Name: BullishKicker, Title: "Bullish Kicker", Direction: analysis.PatternBullish, Match: d.IsBullishKicker},
		{Name: BearishKicker, Title: "Bearish Kicker", Direction: analysis.PatternBearish, Match: d.IsBearishKicker},
	}
}

func extendedPatterns(d *CandlestickDetector) []analysis.Pattern {
	return []analysis.Pattern{
		{Name: BullishGap, Title: "Bullish Gap", Direction: analysis.PatternBullish, Match: d.IsBullishGap},
		{Name: BearishGap, Title: "Bearish Gap", Direction: analysis.PatternBearish, Match: d.IsBearishGap},
		{Name: Piercing, Title: "Piercing Pattern", Direction: analysis.PatternBullish, Match: d.IsPiercing},
		{Name: DarkCloudCover, Title: "Dark Cloud Cover", Direction: analysis.PatternBearish, Match: d.IsDarkCloudCover},
		{Name: BullishInsideBar, Title: "Bullish Inside Bar", Direction: analysis.PatternBullish, Match: d.IsBullishInsideBar},
		{Name: BearishInsideBar, Title: "Bearish Inside Bar", Direction: analysis.PatternBearish, Match: d.IsBearishInsideBar},
		{Name: BullishSmash, Title: "Bullish Smash", Direction: analysis.PatternBullish, Match: d.IsBullishSmash},
		{Name: BearishSmash, Title: "Bearish Smash", Direction: analysis.PatternBearish, Match: d.IsBearishSmash},
	}
}
