package containers

import (
	"math"
	"sort"
)

//Match pairs one population row with one peripheral row that joins onto it.
//NumericalValue and CategoricalValue are scratch fields that are overwritten before every
//candidate column is tried. NaN/Inf and negative categories denote null.
type Match struct {
	PopulationRow    int
	PeripheralRow    int
	Value            float64 // value to be aggregated, fixed for the lifetime of the arena
	NumericalValue   float64
	CategoricalValue int
	Activated        bool
}

//IsNullNumerical tells whether the numerical scratch value is unusable for a threshold.
func (m *Match) IsNullNumerical() bool {
	return math.IsNaN(m.NumericalValue) || math.IsInf(m.NumericalValue, 0)
}

//IsNullCategorical tells whether the categorical scratch value is null.
func (m *Match) IsNullCategorical() bool {
	return m.CategoricalValue < 0
}

//MatchArena owns all matches of one tree. Nodes refer to matches through indices into the arena.
//The arena is sorted by (PopulationRow, Value, PeripheralRow) so that the neighbours of a match
//in the arena are its neighbours in the order statistics of its population row.
type MatchArena struct {
	Matches []Match
}

//NewMatchArena sorts the matches and wraps them. NaN values are moved behind all numbers of
//their population row.
func NewMatchArena(matches []Match) *MatchArena {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := &matches[i], &matches[j]
		if a.PopulationRow != b.PopulationRow {
			return a.PopulationRow < b.PopulationRow
		}
		aNaN, bNaN := math.IsNaN(a.Value), math.IsNaN(b.Value)
		if aNaN != bNaN {
			return bNaN
		}
		if !aNaN && a.Value != b.Value {
			return a.Value < b.Value
		}
		return a.PeripheralRow < b.PeripheralRow
	})
	return &MatchArena{Matches: matches}
}

//Len is the number of matches in the arena.
func (a *MatchArena) Len() int {
	return len(a.Matches)
}

//At returns a pointer to the match with arena index ix.
func (a *MatchArena) At(ix int) *Match {
	return &a.Matches[ix]
}

//Indices returns a fresh index slice covering the whole arena in arena order.
func (a *MatchArena) Indices() []int {
	ixs := make([]int, len(a.Matches))
	for i := range ixs {
		ixs[i] = i
	}
	return ixs
}

//ResetActivation marks every match as deactivated.
func (a *MatchArena) ResetActivation() {
	for i := range a.Matches {
		a.Matches[i].Activated = false
	}
}

//Partition reorders ixs in place so that all indices satisfying pred come first
//and returns the number of those indices. The relative order is not preserved.
func (a *MatchArena) Partition(ixs []int, pred func(m *Match) bool) int {
	i, j := 0, len(ixs)-1
	for {
		for i <= j && pred(&a.Matches[ixs[i]]) {
			i++
		}
		for i <= j && !pred(&a.Matches[ixs[j]]) {
			j--
		}
		if i >= j {
			return i
		}
		ixs[i], ixs[j] = ixs[j], ixs[i]
		i++
		j--
	}
}

//SeparateNullValues moves the matches with a null numerical scratch value either to the
//beginning or to the end of ixs and returns the separator.
func (a *MatchArena) SeparateNullValues(ixs []int, nullsToBeginning bool) int {
	if nullsToBeginning {
		return a.Partition(ixs, func(m *Match) bool { return m.IsNullNumerical() })
	}
	return a.Partition(ixs, func(m *Match) bool { return !m.IsNullNumerical() })
}
