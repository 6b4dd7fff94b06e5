package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wse-scanner/internal/errors"
	"wse-scanner/internal/models"
)

func TestResultAdd(t *testing.T) {
	r := NewResult(models.Daily)

	r.Add(Evaluation{Symbol: "A", Admitted: true, CurrentTurnover: 200, Patterns: []string{"hammer", "bullishHammer"}})
	r.Add(Evaluation{Symbol: "B", Admitted: false, CurrentTurnover: 900})
	r.Add(Evaluation{Symbol: "C", Err: errors.ErrInsufficientHistory})
	r.Add(Evaluation{Symbol: "D", Admitted: true, CurrentTurnover: 500, Patterns: []string{"hammer"}})

	assert.Equal(t, 3, r.Evaluated)
	assert.Equal(t, 2, r.Admitted)
	assert.Equal(t, 3, r.Count())
	assert.Len(t, r.Skipped, 1)
	assert.Equal(t, []string{"A", "D"}, r.Symbols())

	assert.Equal(t, []Trigger{{"D", 500}, {"A", 200}}, r.Ranked("hammer"))
	assert.Equal(t, []Trigger{{"D", 500}}, r.Top("hammer", 1))
	assert.Empty(t, r.Ranked("shootingStar"))
}

func TestSortByTurnoverTies(t *testing.T) {
	triggers := []Trigger{{"ZZZ", 10}, {"AAA", 10}, {"MMM", 30}}
	SortByTurnover(triggers)

	assert.Equal(t, []Trigger{{"MMM", 30}, {"AAA", 10}, {"ZZZ", 10}}, triggers)
}

func TestRankedDoesNotReorderResult(t *testing.T) {
	r := NewResult(models.Weekly)
	r.Add(Evaluation{Symbol: "A", Admitted: true, CurrentTurnover: 1, Patterns: []string{"hammer"}})
	r.Add(Evaluation{Symbol: "B", Admitted: true, CurrentTurnover: 2, Patterns: []string{"hammer"}})

	_ = r.Ranked("hammer")
	assert.Equal(t, "A", r.Triggered["hammer"][0].Symbol)
}
