package binning

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/reducer"
	"golang.org/x/sync/errgroup"
)

func numericalArena(values []float64) (*containers.MatchArena, []int, int) {
	matches := make([]containers.Match, len(values))
	for i, v := range values {
		matches[i] = containers.Match{PopulationRow: i % 3, PeripheralRow: i, NumericalValue: v}
	}
	arena := containers.NewMatchArena(matches)
	ixs := arena.Indices()
	nanBegin := arena.SeparateNullValues(ixs, false)
	return arena, ixs, nanBegin
}

func requireBinned(t *testing.T, arena *containers.MatchArena, b Bins, lower func(k int) float64) {
	t.Helper()
	for k := 0; k < b.NumBins(); k++ {
		for _, ix := range b.Ixs[b.Indptr[k]:b.Indptr[k+1]] {
			v := arena.At(ix).NumericalValue
			require.LessOrEqual(t, v, b.CriticalValues[k], "bin %d", k)
			if k > 0 {
				require.Greater(t, v, lower(k), "bin %d", k)
			}
		}
	}
	for _, ix := range b.Nulls() {
		require.True(t, arena.At(ix).IsNullNumerical())
	}
}

func TestMinMax(t *testing.T) {
	values := []int{4, -2, 7, 3}
	get := func(ix int) int { return values[ix] }

	min, max, ok := MinMax[int](reducer.Local{}, []int{0, 1, 2, 3}, get)
	require.True(t, ok)
	require.Equal(t, -2, min)
	require.Equal(t, 7, max)

	_, _, ok = MinMax[int](reducer.Local{}, nil, get)
	require.False(t, ok)
}

func TestMinMaxWithEmptyShard(t *testing.T) {
	g := reducer.NewGroup(2)
	values := []float64{1.5, -0.5}
	var mins, maxs [2]float64

	var eg errgroup.Group
	for rank := 0; rank < 2; rank++ {
		rank := rank
		eg.Go(func() error {
			var ixs []int
			if rank == 1 {
				ixs = []int{0, 1}
			}
			min, max, ok := MinMax(g.Member(rank), ixs, func(ix int) float64 { return values[ix] })
			require.True(t, ok)
			mins[rank], maxs[rank] = min, max
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	require.Equal(t, [2]float64{-0.5, -0.5}, mins)
	require.Equal(t, [2]float64{1.5, 1.5}, maxs)
}

func TestNumBins(t *testing.T) {
	require.Equal(t, 10, NumBins(reducer.Local{}, 1, 100))
	require.Equal(t, 5, NumBins(reducer.Local{}, 0.5, 100))
	require.Equal(t, 1, NumBins(reducer.Local{}, 1, 0))
}

func TestNumerical(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	values := make([]float64, 200)
	for i := range values {
		values[i] = rng.NormFloat64()
		if i%17 == 0 {
			values[i] = math.NaN()
		}
	}
	values[3] = math.Inf(1)
	arena, ixs, nanBegin := numericalArena(values)
	min, max, ok := MinMax(reducer.Local{}, ixs[:nanBegin], func(ix int) float64 { return arena.At(ix).NumericalValue })
	require.True(t, ok)

	b := Numerical(min, max, 12, ixs, nanBegin, func(ix int) float64 { return arena.At(ix).NumericalValue })
	require.Equal(t, 13, b.NumBins())
	require.Equal(t, nanBegin, b.NonNull())
	require.Len(t, b.Ixs, len(ixs))
	require.Equal(t, max, b.CriticalValues[12])
	require.Equal(t, min, b.CriticalValues[0])
	requireBinned(t, arena, b, func(k int) float64 { return b.CriticalValues[k-1] })
	require.ElementsMatch(t, ixs, b.Ixs)
}

func TestNumericalSingleValue(t *testing.T) {
	arena, ixs, nanBegin := numericalArena([]float64{2, 2, math.NaN()})
	b := Numerical(2, 2, 3, ixs, nanBegin, func(ix int) float64 { return arena.At(ix).NumericalValue })
	require.Equal(t, 0, b.NumBins())
	require.Equal(t, 0, b.NonNull())
}

func TestDiscrete(t *testing.T) {
	values := []float64{0, 1, 1, 2, 5, 5, 3, math.NaN()}
	arena, ixs, nanBegin := numericalArena(values)
	value := func(ix int) float64 { return arena.At(ix).NumericalValue }

	b := Discrete(0, 5, 10, ixs, nanBegin, value)
	require.Equal(t, []float64{0, 1, 2, 3, 4, 5}, b.CriticalValues)
	require.Equal(t, []int{0, 1, 3, 4, 5, 5, 7}, b.Indptr)
	requireBinned(t, arena, b, func(k int) float64 { return b.CriticalValues[k-1] })

	b = Discrete(0, 5, 2, ixs, nanBegin, value)
	require.Equal(t, []float64{0, 3, 6}, b.CriticalValues)
	require.Equal(t, []int{0, 1, 5, 7}, b.Indptr)
}

func TestWindow(t *testing.T) {
	values := []float64{0, 0.5, 1, 2.5, 3, 7, math.NaN()}
	arena, ixs, nanBegin := numericalArena(values)
	value := func(ix int) float64 { return arena.At(ix).NumericalValue }

	b, ok := Window(0, 7, 2, ixs, nanBegin, value)
	require.True(t, ok)
	require.Equal(t, []float64{1, 3, 5, 7}, b.CriticalValues)
	require.Equal(t, []int{0, 3, 5, 5, 6}, b.Indptr)
	requireBinned(t, arena, b, func(k int) float64 { return b.CriticalValues[k] - 2 })

	_, ok = Window(0, 7, 1e-6, ixs, nanBegin, value)
	require.False(t, ok)
}

func TestCategorical(t *testing.T) {
	categories := []int{3, 1, -1, 3, 4, 1, -1, 3}
	matches := make([]containers.Match, len(categories))
	for i, c := range categories {
		matches[i] = containers.Match{PopulationRow: 0, PeripheralRow: i, CategoricalValue: c}
	}
	arena := containers.NewMatchArena(matches)
	ixs := arena.Indices()
	nanBegin := arena.Partition(ixs, func(m *containers.Match) bool { return !m.IsNullCategorical() })
	value := func(ix int) int { return arena.At(ix).CategoricalValue }

	index, found := Categorical(reducer.Local{}, ixs, nanBegin, value)
	require.Equal(t, []int{1, 3, 4}, found)
	require.Equal(t, 4, index.Size())
	require.Len(t, index.Range(1), 2)
	require.Len(t, index.Range(2), 0)
	require.Len(t, index.Range(3), 3)
	require.Len(t, index.Range(4), 1)
	require.Len(t, index.All(), len(categories))
	for _, ix := range index.All()[6:] {
		require.True(t, arena.At(ix).IsNullCategorical())
	}

	allNull := []int{ixs[6], ixs[7]}
	index, found = Categorical(reducer.Local{}, allNull, 0, value)
	require.Empty(t, found)
	require.Equal(t, 0, index.Size())
	require.Len(t, index.All(), 2)
}

func TestCategoricalAcrossShards(t *testing.T) {
	g := reducer.NewGroup(2)
	shards := [][]int{{5, 7}, {7, 9, 9}}
	var found [2][]int

	var eg errgroup.Group
	for rank := range shards {
		rank := rank
		eg.Go(func() error {
			values := shards[rank]
			ixs := []int{0, 1}
			if len(values) == 3 {
				ixs = append(ixs, 2)
			}
			_, found[rank] = Categorical(g.Member(rank), ixs, len(ixs), func(ix int) int { return values[ix] })
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	require.Equal(t, []int{5, 7, 9}, found[0])
	require.Equal(t, found[0], found[1])
}

func TestWordBinning(t *testing.T) {
	text := containers.NewTextColumn(containers.Column{Name: "comment"}, []string{"a", "b", "c", "d"},
		[][]int{{0, 2}, {1}, {2, 3}, {}})
	// match i refers to text row rows[i]
	rows := []int{0, 1, 2, 3, 2, 0}
	ixs := []int{0, 1, 2, 3, 4, 5}
	rownum := func(ix int) int { return rows[ix] }

	require.Equal(t, []int{0, 1, 2, 3}, Words(reducer.Local{}, text, ixs, rownum))
	require.Equal(t, []int{1}, Words(reducer.Local{}, text, []int{1, 3}, rownum))

	wi := Rownum(text, ixs, rownum)
	require.ElementsMatch(t, []int{0, 5, 2, 4}, wi.Range(2))
	require.ElementsMatch(t, []int{1}, wi.Range(1))
	require.Len(t, wi.All(), 6)

	index := FirstWord(text, []int{2, 0, 1}, ixs, rownum)
	require.ElementsMatch(t, []int{0, 2, 4, 5}, index.Range(2))
	require.Empty(t, index.Range(0))
	require.ElementsMatch(t, []int{1}, index.Range(1))
	require.Equal(t, []int{3}, index.All()[5:])
}
