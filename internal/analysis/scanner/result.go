package scanner

import (
	"sort"

	"wse-scanner/internal/models"
)

// Trigger is one instrument that fired a pattern.
type Trigger struct {
	Symbol   string  `json:"symbol"`
	Turnover float64 `json:"turnover"`
}

// Skip records an instrument that could not be evaluated.
type Skip struct {
	Symbol string
	Err    error
}

// Result holds the triggered instruments per pattern for one scan.
type Result struct {
	Granularity models.Granularity
	Triggered   map[string][]Trigger
	Skipped     []Skip
	Evaluated   int // instruments that reached the admission filter
	Admitted    int
}

// NewResult creates an empty result.
func NewResult(granularity models.Granularity) *Result {
	return &Result{
		Granularity: granularity,
		Triggered:   make(map[string][]Trigger),
	}
}

// Add merges one instrument's evaluation.
func (r *Result) Add(ev Evaluation) {
	if ev.Err != nil {
		r.Skipped = append(r.Skipped, Skip{Symbol: ev.Symbol, Err: ev.Err})
		return
	}
	r.Evaluated++
	if !ev.Admitted {
		return
	}
	r.Admitted++
	for _, name := range ev.Patterns {
		r.Triggered[name] = append(r.Triggered[name], Trigger{Symbol: ev.Symbol, Turnover: ev.CurrentTurnover})
	}
}

// Ranked returns a copy of the pattern's triggers sorted by turnover, highest first.
func (r *Result) Ranked(pattern string) []Trigger {
	out := make([]Trigger, len(r.Triggered[pattern]))
	copy(out, r.Triggered[pattern])
	SortByTurnover(out)
	return out
}

// Top returns at most n of the highest-turnover triggers for the pattern.
func (r *Result) Top(pattern string, n int) []Trigger {
	ranked := r.Ranked(pattern)
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Count returns the total number of triggers across patterns.
func (r *Result) Count() int {
	n := 0
	for _, t := range r.Triggered {
		n += len(t)
	}
	return n
}

// Symbols returns the distinct triggered symbols.
func (r *Result) Symbols() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, triggers := range r.Triggered {
		for _, t := range triggers {
			if _, ok := seen[t.Symbol]; ok {
				continue
			}
			seen[t.Symbol] = struct{}{}
			out = append(out, t.Symbol)
		}
	}
	sort.Strings(out)
	return out
}

// SortByTurnover sorts triggers by turnover in descending order, ties by symbol.
func SortByTurnover(triggers []Trigger) {
	sort.SliceStable(triggers, func(i, j int) bool {
		if triggers[i].Turnover != triggers[j].Turnover {
			return triggers[i].Turnover > triggers[j].Turnover
		}
		return triggers[i].Symbol < triggers[j].Symbol
	})
}
