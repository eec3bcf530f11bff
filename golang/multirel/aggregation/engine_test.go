package aggregation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"github.com/tarstars/relational_features/golang/multirel/containers"
)

//mirror is a criterion that keeps its own copy of the predictions and records them at every stage.
type mirror struct {
	yhat, committed []float64
	stages          [][]float64
	counts          [][2]int
	evaluated       int
	value           float64
}

func newMirror(numRows int) *mirror {
	return &mirror{yhat: make([]float64, numRows), committed: make([]float64, numRows)}
}

func (m *mirror) InitYhat(yhat []float64, rows []int) {
	for i := range m.yhat {
		m.yhat[i] = 0
	}
	for _, r := range rows {
		m.yhat[r] = yhat[r]
	}
}

func (m *mirror) SetStorageSize(int) {}

func (m *mirror) ResetStorageSize() {
	m.stages = nil
	m.counts = nil
}

func (m *mirror) StoreCurrentStage(numSmaller, numGreater int) {
	m.stages = append(m.stages, append([]float64(nil), m.yhat...))
	m.counts = append(m.counts, [2]int{numSmaller, numGreater})
}

func (m *mirror) UpdateSamples(rows []int, newValues, oldValues []float64) {
	for _, r := range rows {
		if m.yhat[r] != oldValues[r] {
			panic("criterion and engine disagree on the old value")
		}
		m.yhat[r] = newValues[r]
	}
}

func (m *mirror) Commit()                  { copy(m.committed, m.yhat) }
func (m *mirror) RevertToCommit()          { copy(m.yhat, m.committed) }
func (m *mirror) Evaluate()                { m.evaluated = len(m.stages) }
func (m *mirror) FindMaximum() int         { return 0 }
func (m *mirror) ValuesStored(int) float64 { return 0 }
func (m *mirror) Value() float64           { return m.value }
func (m *mirror) Argsort(begin, end int) []int {
	ixs := make([]int, end-begin)
	for i := range ixs {
		ixs[i] = i
	}
	return ixs
}
func (m *mirror) StorageIx() int { return len(m.stages) }

const numTestRows = 7

func randomArena(rng *rand.Rand, numMatches int) *containers.MatchArena {
	matches := make([]containers.Match, numMatches)
	for i := range matches {
		matches[i] = containers.Match{
			PopulationRow:    rng.Intn(numTestRows),
			PeripheralRow:    i,
			Value:            float64(rng.Intn(6)) - 1.5,
			NumericalValue:   float64(rng.Intn(10)),
			CategoricalValue: rng.Intn(4) - 1,
		}
	}
	return containers.NewMatchArena(matches)
}

func newTestEngine(kind Kind, arena *containers.MatchArena) (*Engine, *mirror) {
	crit := newMirror(numTestRows)
	return NewEngine(kind, arena, numTestRows, crit), crit
}

//batch recomputes the aggregation of every row from the activation flags.
func batch(kind Kind, arena *containers.MatchArena) []float64 {
	values := make([][]float64, numTestRows)
	for _, m := range arena.Matches {
		if m.Activated {
			values[m.PopulationRow] = append(values[m.PopulationRow], m.Value)
		}
	}
	result := make([]float64, numTestRows)
	for row := range result {
		result[row] = Aggregate(kind, values[row])
	}
	return result
}

func requireMatchesBatch(t *testing.T, e *Engine, step int) {
	t.Helper()
	want := batch(e.kind, e.arena)
	for row, v := range e.Yhat() {
		require.InDelta(t, want[row], v, 1e-6, "%v, row %d, step %d", e.kind, row, step)
	}
}

func TestIncrementalEqualsBatch(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			arena := randomArena(rng, 80)
			e, _ := newTestEngine(kind, arena)

			for step := 0; step < 2000; step++ {
				ix := rng.Intn(arena.Len())
				if arena.At(ix).Activated {
					e.Deactivate(ix)
				} else {
					e.Activate(ix)
				}
				if step%7 == 0 {
					requireMatchesBatch(t, e, step)
				}
				if step%50 == 0 {
					e.Commit()
				}
			}
			requireMatchesBatch(t, e, -1)
		})
	}
}

func TestDispersionOfFewActivatedMatches(t *testing.T) {
	for _, values := range [][]float64{
		{0.1, 0.2, 0.3},
		{1000.1, 1000.7, 1000.3},
		{0.3, 1.7, 2.9, 11.1},
		{0.1, 0.1, 0.1, 0.1},
	} {
		for _, kind := range []Kind{Var, Stddev, Skewness} {
			t.Run(kind.String(), func(t *testing.T) {
				matches := make([]containers.Match, len(values))
				for i, v := range values {
					matches[i] = containers.Match{PeripheralRow: i, Value: v}
				}
				arena := containers.NewMatchArena(matches)
				e, _ := newTestEngine(kind, arena)
				for ix := range arena.Matches {
					e.Activate(ix)
				}
				requireMatchesBatch(t, e, 0)

				for ix := arena.Len() - 1; ix >= 1; ix-- {
					e.Deactivate(ix)
					requireMatchesBatch(t, e, arena.Len()-ix)
					if kind != Skewness {
						require.GreaterOrEqual(t, e.Yhat()[0], 0.0)
					}
				}
				require.Equal(t, 0.0, e.Yhat()[0], "%v of %v", kind, values[:1])

				e.Deactivate(0)
				require.Equal(t, 0.0, e.Yhat()[0])
			})
		}
	}
}

type snapshot struct {
	Live, Committed moments
	YhatStored      []float64
	Flags           []bool
}

func takeSnapshot(e *Engine) snapshot {
	clone := func(m moments) moments {
		c := func(s []float64) []float64 { return append([]float64(nil), s...) }
		return moments{
			sum:        c(m.sum),
			sumSquared: c(m.sumSquared),
			sumCubed:   c(m.sumCubed),
			count:      c(m.count),
			extremal:   append([]int(nil), m.extremal...),
			yhat:       c(m.yhat),
		}
	}
	flags := make([]bool, e.arena.Len())
	for i, m := range e.arena.Matches {
		flags[i] = m.Activated
	}
	return snapshot{
		Live:       clone(e.live),
		Committed:  clone(e.committed),
		YhatStored: append([]float64(nil), e.yhatStored...),
		Flags:      flags,
	}
}

func TestRevertIsInverse(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(7))
			arena := randomArena(rng, 60)
			e, _ := newTestEngine(kind, arena)

			for round := 0; round < 30; round++ {
				for i := 0; i < 20; i++ {
					ix := rng.Intn(arena.Len())
					if arena.At(ix).Activated {
						e.Deactivate(ix)
					} else {
						e.Activate(ix)
					}
				}
				e.Commit()
				require.False(t, e.Pending())
				before := takeSnapshot(e)

				for i := 0; i < 40; i++ {
					ix := rng.Intn(arena.Len())
					if arena.At(ix).Activated {
						e.Deactivate(ix)
					} else {
						e.Activate(ix)
					}
				}
				e.RevertToCommit()

				after := takeSnapshot(e)
				if diff := cmp.Diff(before, after, cmp.AllowUnexported(moments{}), cmpopts.EquateEmpty()); diff != "" {
					t.Fatalf("round %d: revert is not an inverse (-before +after):\n%s", round, diff)
				}
			}
		})
	}
}

func TestActivateTwicePanics(t *testing.T) {
	arena := containers.NewMatchArena([]containers.Match{{Value: 1}})
	e, _ := newTestEngine(Sum, arena)
	e.Activate(0)
	require.Panics(t, func() { e.Activate(0) })
	e.Deactivate(0)
	require.Panics(t, func() { e.Deactivate(0) })
}

func TestReset(t *testing.T) {
	arena := randomArena(rand.New(rand.NewSource(3)), 20)
	e, _ := newTestEngine(Median, arena)
	e.ActivateAll(arena.Indices())
	e.Commit()
	e.Reset()
	for row := 0; row < numTestRows; row++ {
		require.Equal(t, 0.0, e.Yhat()[row])
		require.Equal(t, 0.0, e.CommittedYhat()[row])
		require.Equal(t, 0.0, e.Count(row))
	}
	require.False(t, e.Pending())
	for ix := range arena.Matches {
		require.False(t, arena.At(ix).Activated)
	}

	e.ActivateAll(arena.Indices())
	requireMatchesBatch(t, e, arena.Len())
}

func TestKindNames(t *testing.T) {
	for _, kind := range Kinds() {
		parsed, err := ParseKind(kind.String())
		require.NoError(t, err)
		require.Equal(t, kind, parsed)
	}
	parsed, err := ParseKind("count_distinct")
	require.NoError(t, err)
	require.Equal(t, CountDistinct, parsed)
	_, err = ParseKind("first")
	require.Error(t, err)
	require.Equal(t, "COUNT( DISTINCT t2.x )", CountDistinct.SQLExpression("t2.x"))
	require.Equal(t, "AVG( t2.x )", Avg.SQLExpression("t2.x"))

	text, err := Skewness.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "SKEWNESS", string(text))
	var kind Kind
	require.NoError(t, kind.UnmarshalText([]byte("count minus count distinct")))
	require.Equal(t, CountMinusCountDistinct, kind)
	_, err = Kind(len(Kinds())).MarshalText()
	require.Error(t, err)
}

func TestAggregate(t *testing.T) {
	values := []float64{3, 1, 2, 2}
	require.Equal(t, 8.0, Aggregate(Sum, values))
	require.Equal(t, 2.0, Aggregate(Avg, values))
	require.Equal(t, 4.0, Aggregate(Count, values))
	require.Equal(t, 3.0, Aggregate(CountDistinct, values))
	require.Equal(t, 1.0, Aggregate(CountMinusCountDistinct, values))
	require.Equal(t, 3.0, Aggregate(Max, values))
	require.Equal(t, 1.0, Aggregate(Min, values))
	require.Equal(t, 2.0, Aggregate(Median, values))
	require.InDelta(t, 0.5, Aggregate(Var, values), 1e-12)
	require.InDelta(t, math.Sqrt(0.5), Aggregate(Stddev, values), 1e-12)
	require.Equal(t, 0.0, Aggregate(Skewness, []float64{1, 1}))
	require.Equal(t, 0.0, Aggregate(Max, nil))
}
