package containers

import (
	"math"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMatchArenaOrder(t *testing.T) {
	arena := NewMatchArena([]Match{
		{PopulationRow: 1, PeripheralRow: 0, Value: 3},
		{PopulationRow: 0, PeripheralRow: 1, Value: math.NaN()},
		{PopulationRow: 0, PeripheralRow: 2, Value: 5},
		{PopulationRow: 0, PeripheralRow: 3, Value: -1},
		{PopulationRow: 1, PeripheralRow: 4, Value: 3},
	})
	var got [][2]int
	for _, m := range arena.Matches {
		got = append(got, [2]int{m.PopulationRow, m.PeripheralRow})
	}
	want := [][2]int{{0, 3}, {0, 2}, {0, 1}, {1, 0}, {1, 4}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected arena order (-want +got):\n%s", diff)
	}
}

func TestPartition(t *testing.T) {
	var matches []Match
	for i := 0; i < 50; i++ {
		matches = append(matches, Match{PopulationRow: i % 7, PeripheralRow: i, NumericalValue: float64(i % 11)})
	}
	arena := NewMatchArena(matches)
	ixs := arena.Indices()
	sep := arena.Partition(ixs, func(m *Match) bool { return m.NumericalValue <= 4 })

	for i, ix := range ixs {
		require.Equal(t, i < sep, arena.At(ix).NumericalValue <= 4, "position %d", i)
	}
	sorted := append([]int(nil), ixs...)
	sort.Ints(sorted)
	require.Equal(t, arena.Indices(), sorted)
}

func TestSeparateNullValues(t *testing.T) {
	arena := NewMatchArena([]Match{
		{PeripheralRow: 0, NumericalValue: 1},
		{PeripheralRow: 1, NumericalValue: math.NaN()},
		{PeripheralRow: 2, NumericalValue: math.Inf(1)},
		{PeripheralRow: 3, NumericalValue: 2},
	})

	ixs := arena.Indices()
	sep := arena.SeparateNullValues(ixs, true)
	require.Equal(t, 2, sep)
	for _, ix := range ixs[:sep] {
		require.True(t, arena.At(ix).IsNullNumerical())
	}

	ixs = arena.Indices()
	sep = arena.SeparateNullValues(ixs, false)
	require.Equal(t, 2, sep)
	for _, ix := range ixs[sep:] {
		require.True(t, arena.At(ix).IsNullNumerical())
	}
}

func TestCategoryIndex(t *testing.T) {
	bins := []int{4, 0, 2, 1, 3, 5}
	ci := NewCategoryIndex(bins, []int{0, 2, 2, 5}, 3)

	require.Equal(t, 3, ci.Size())
	require.Equal(t, []int{4, 0}, ci.Range(3))
	require.Empty(t, ci.Range(4))
	require.Equal(t, []int{2, 1, 3}, ci.Range(5))
	require.Nil(t, ci.Range(6))
	require.Nil(t, ci.Range(2))
	require.Equal(t, bins, ci.All())

	require.Equal(t, 0, NewCategoryIndex(nil, nil, 0).Size())
}

func TestTextColumn(t *testing.T) {
	tc := NewTextColumn(Column{Name: "comment"}, []string{"a", "b", "c", "d"}, [][]int{
		{2, 0, 2},
		{},
		{3, 1},
		{0},
	})

	require.Equal(t, 4, tc.NumRows())
	require.Equal(t, []int{0, 2}, tc.Range(0))
	require.True(t, tc.Contains(2, 3))
	require.False(t, tc.Contains(1, 0))

	ri := tc.RowIndex()
	require.Equal(t, []int{0, 3}, ri.Rows(0))
	require.Equal(t, []int{2}, ri.Rows(1))
	require.Empty(t, ri.Rows(5))

	// matches 10, 11 belong to text row 0, match 12 to row 2, matches 13, 14 to row 3
	wi := NewWordIndex([]int{10, 11, 12, 13, 14}, []int{0, 2, 2, 3, 5}, ri)
	require.Equal(t, []int{10, 11, 13, 14}, wi.Range(0))
	require.Equal(t, []int{12}, wi.Range(3))
	require.Equal(t, []int{10, 11}, wi.Range(2))
}

func TestTextColumnOutOfVocabulary(t *testing.T) {
	require.Panics(t, func() {
		NewTextColumn(Column{Name: "comment"}, []string{"a"}, [][]int{{1}})
	})
}

func makeFrames() (*DataFrame, *DataFrame) {
	population := NewDataFrame("population", 3).
		AddJoinKey(Column{Name: "id"}, []int{0, 1, -1}).
		AddTimeStamp(Column{Name: "ts", Unit: "time stamp"}, []float64{10, 10, 10})
	peripheral := NewDataFrame("peripheral", 4).
		AddJoinKey(Column{Name: "id"}, []int{0, 0, 1, 1}).
		AddTimeStamp(Column{Name: "ts", Unit: "time stamp"}, []float64{5, 11, 10, math.NaN()}).
		AddNumerical(Column{Name: "x"}, []float64{1, 2, 3, 4})
	return population, peripheral
}

func TestJoinerMatches(t *testing.T) {
	population, peripheral := makeFrames()

	matches := NewJoiner(population, peripheral, NewJoinSpec(0, 0)).All()
	require.Len(t, matches, 4)

	matches = NewJoiner(population, peripheral, NewJoinSpec(0, 0).WithTimeStamps(0, 0)).All()
	var got [][2]int
	for _, m := range matches {
		got = append(got, [2]int{m.PopulationRow, m.PeripheralRow})
		require.True(t, math.IsNaN(m.NumericalValue))
		require.True(t, m.IsNullCategorical())
	}
	require.Equal(t, [][2]int{{0, 0}, {1, 2}}, got)
}

func TestDataFrameColumns(t *testing.T) {
	_, peripheral := makeFrames()
	peripheral.AddNumerical(Column{Name: "y", Unit: "money, comparison only"}, []float64{5, 6, 7, 8})

	require.Equal(t, 2, peripheral.NumNumericals())
	require.Equal(t, 7.0, peripheral.Numerical(2, 1))
	require.Equal(t, 3.0, peripheral.Numerical(2, 0))
	require.True(t, peripheral.NumericalColumns[1].ComparisonOnly())
	require.True(t, peripheral.TimeStampColumns[0].IsTimeStamp())
	require.True(t, math.IsNaN(peripheral.TimeStamp(0, 3)))

	require.Panics(t, func() {
		peripheral.AddCategorical(Column{Name: "short"}, []int{1})
	})
}

func TestReadDataFrame(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, WriteNpy(fs, "num.npy", mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})))
	require.NoError(t, WriteNpy(fs, "cat.npy", mat.NewDense(3, 1, []float64{0, math.NaN(), 2})))

	df, err := ReadDataFrame(fs, DataFrameSpec{
		Name: "peripheral",
		Numerical: MatrixSpec{
			FileName: "num.npy",
			Columns:  []Column{{Name: "a"}, {Name: "b"}},
		},
		Categorical: MatrixSpec{
			FileName: "cat.npy",
			Columns:  []Column{{Name: "c"}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 3, df.NumRows())
	require.Equal(t, 4.0, df.Numerical(1, 1))
	require.Equal(t, []int{0, -1, 2}, df.Categoricals[0])

	_, err = ReadDataFrame(fs, DataFrameSpec{
		Name:      "broken",
		Numerical: MatrixSpec{FileName: "num.npy", Columns: []Column{{Name: "a"}}},
	})
	require.Error(t, err)

	_, err = ReadDataFrame(fs, DataFrameSpec{
		Name:      "missing",
		Numerical: MatrixSpec{FileName: "absent.npy", Columns: []Column{{Name: "a"}}},
	})
	require.Error(t, err)
}
