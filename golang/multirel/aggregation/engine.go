package aggregation

import (
	"log"
	"math"

	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/criterion"
)

//moments holds the per row statistics of one aggregation. Only the slices the kind needs are allocated.
type moments struct {
	sum        []float64
	sumSquared []float64
	sumCubed   []float64
	count      []float64
	extremal   []int
	yhat       []float64
}

func newMoments(kind Kind, numRows int) moments {
	m := moments{yhat: make([]float64, numRows)}
	if kind.needsSum() {
		m.sum = make([]float64, numRows)
	}
	if kind.needsSumSquared() {
		m.sumSquared = make([]float64, numRows)
	}
	if kind.needsSumCubed() {
		m.sumCubed = make([]float64, numRows)
	}
	if kind.needsCount() {
		m.count = make([]float64, numRows)
	}
	if kind.needsExtremal() {
		m.extremal = make([]int, numRows)
		for i := range m.extremal {
			m.extremal[i] = -1
		}
	}
	return m
}

//copyRow copies the statistics of one row from src to dst.
func (dst *moments) copyRow(src *moments, row int) {
	if dst.sum != nil {
		dst.sum[row] = src.sum[row]
	}
	if dst.sumSquared != nil {
		dst.sumSquared[row] = src.sumSquared[row]
	}
	if dst.sumCubed != nil {
		dst.sumCubed[row] = src.sumCubed[row]
	}
	if dst.count != nil {
		dst.count[row] = src.count[row]
	}
	if dst.extremal != nil {
		dst.extremal[row] = src.extremal[row]
	}
	dst.yhat[row] = src.yhat[row]
}

func (m *moments) zero() {
	for _, s := range [][]float64{m.sum, m.sumSquared, m.sumCubed, m.count, m.yhat} {
		for i := range s {
			s[i] = 0
		}
	}
	for i := range m.extremal {
		m.extremal[i] = -1
	}
}

//Engine maintains the aggregation of every population row over the activated matches incrementally.
//Changes since the last Commit can be rolled back exactly by RevertToCommit.
type Engine struct {
	kind      Kind
	arena     *containers.MatchArena
	criterion criterion.Criterion

	live       moments
	committed  moments
	yhatStored []float64
	center     []float64

	tx transaction
}

//NewEngine creates the engine of one tree. The matches of the arena must have their values to be
//aggregated set and must not be activated.
func NewEngine(kind Kind, arena *containers.MatchArena, numRows int, crit criterion.Criterion) *Engine {
	e := &Engine{
		kind:       kind,
		arena:      arena,
		criterion:  crit,
		live:       newMoments(kind, numRows),
		committed:  newMoments(kind, numRows),
		yhatStored: make([]float64, numRows),
		tx:         newTransaction(numRows),
	}
	if kind.needsSumSquared() {
		e.center = centers(arena, numRows)
	}
	return e
}

//centers returns the midpoint of the finite values of every row. The dispersion kinds sum powers of
//the deviations from it.
func centers(arena *containers.MatchArena, numRows int) []float64 {
	lo := make([]float64, numRows)
	hi := make([]float64, numRows)
	seen := make([]bool, numRows)
	for _, m := range arena.Matches {
		v, row := m.Value, m.PopulationRow
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if !seen[row] {
			lo[row], hi[row], seen[row] = v, v, true
			continue
		}
		lo[row] = math.Min(lo[row], v)
		hi[row] = math.Max(hi[row], v)
	}
	for row := range lo {
		lo[row] = (lo[row] + hi[row]) / 2
	}
	return lo
}

//Kind returns the aggregation kind.
func (e *Engine) Kind() Kind {
	return e.kind
}

//Arena returns the matches the engine works on.
func (e *Engine) Arena() *containers.MatchArena {
	return e.arena
}

//Criterion returns the optimization criterion the engine reports to.
func (e *Engine) Criterion() criterion.Criterion {
	return e.criterion
}

//Yhat returns the live aggregations. The slice must not be modified.
func (e *Engine) Yhat() []float64 {
	return e.live.yhat
}

//CommittedYhat returns the aggregations as of the last commit.
func (e *Engine) CommittedYhat() []float64 {
	return e.committed.yhat
}

//Count returns the number of activated matches of a row for the kinds that track it.
func (e *Engine) Count(row int) float64 {
	if e.live.count == nil {
		log.Panicf("%v does not track counts", e.kind)
	}
	return e.live.count[row]
}

//Pending tells whether anything changed since the last commit.
func (e *Engine) Pending() bool {
	return !e.tx.empty()
}

//Commit makes all changes since the last commit permanent.
func (e *Engine) Commit() {
	for _, row := range e.tx.stored.members {
		e.committed.copyRow(&e.live, row)
		e.yhatStored[row] = e.live.yhat[row]
	}
	e.tx.clear()
}

//RevertToCommit undoes all changes since the last commit, activation flags included.
func (e *Engine) RevertToCommit() {
	for _, ix := range e.tx.altered {
		m := e.arena.At(ix)
		m.Activated = !m.Activated
	}
	for _, row := range e.tx.stored.members {
		e.live.copyRow(&e.committed, row)
		e.yhatStored[row] = e.committed.yhat[row]
	}
	e.tx.clear()
}

//Reset zeroes all statistics, live and committed, and deactivates every match.
func (e *Engine) Reset() {
	e.arena.ResetActivation()
	e.live.zero()
	e.committed.zero()
	for i := range e.yhatStored {
		e.yhatStored[i] = 0
	}
	e.tx.clear()
}

//UpdateCriterionAndClearCurrent reports the rows touched since the last report and stores a stage.
func (e *Engine) UpdateCriterionAndClearCurrent(numSmaller, numGreater int) {
	rows := e.tx.current.members
	e.criterion.UpdateSamples(rows, e.live.yhat, e.yhatStored)
	for _, row := range rows {
		e.yhatStored[row] = e.live.yhat[row]
	}
	e.tx.current.clear()
	e.criterion.StoreCurrentStage(numSmaller, numGreater)
}

//Rollback reverts both the engine and its criterion to the last commit.
func (e *Engine) Rollback() {
	e.RevertToCommit()
	e.criterion.RevertToCommit()
}

//Activate includes the match in the aggregation of its row.
func (e *Engine) Activate(ix int) {
	m := e.arena.At(ix)
	if m.Activated {
		log.Panicf("match %d is already activated", ix)
	}
	m.Activated = true
	e.tx.altered = append(e.tx.altered, ix)
	e.tx.touch(m.PopulationRow)
	e.activate(ix, m)
}

//Deactivate removes the match from the aggregation of its row.
func (e *Engine) Deactivate(ix int) {
	m := e.arena.At(ix)
	if !m.Activated {
		log.Panicf("match %d is not activated", ix)
	}
	m.Activated = false
	e.tx.altered = append(e.tx.altered, ix)
	e.tx.touch(m.PopulationRow)
	e.deactivate(ix, m)
}

func (e *Engine) toggle(ix int, on bool) {
	if on {
		e.Activate(ix)
	} else {
		e.Deactivate(ix)
	}
}

func (e *Engine) activate(ix int, m *containers.Match) {
	row, v := m.PopulationRow, m.Value
	s := &e.live
	switch e.kind {
	case Sum:
		s.yhat[row] += v
	case Count:
		s.yhat[row]++
	case Avg:
		s.sum[row] += v
		s.count[row]++
		s.yhat[row] = s.sum[row] / s.count[row]
	case Var, Stddev, Skewness:
		d := v - e.center[row]
		s.sum[row] += d
		s.sumSquared[row] += d * d
		if s.sumCubed != nil {
			s.sumCubed[row] += d * d * d
		}
		s.count[row]++
		e.updateDispersion(row)
	case Max:
		s.count[row]++
		if s.count[row] < 1.5 || ix > s.extremal[row] {
			s.extremal[row] = ix
			s.yhat[row] = v
		}
	case Min:
		s.count[row]++
		if s.count[row] < 1.5 || ix < s.extremal[row] {
			s.extremal[row] = ix
			s.yhat[row] = v
		}
	case Median:
		e.activateMedian(ix, row)
	case CountDistinct:
		if !e.hasActivatedTwin(ix) {
			s.yhat[row]++
		}
	case CountMinusCountDistinct:
		if e.hasActivatedTwin(ix) {
			s.yhat[row]++
		}
	default:
		log.Panicf("unknown aggregation %v", e.kind)
	}
}

func (e *Engine) deactivate(ix int, m *containers.Match) {
	row, v := m.PopulationRow, m.Value
	s := &e.live
	switch e.kind {
	case Sum:
		s.yhat[row] -= v
	case Count:
		if s.yhat[row] < 0.5 {
			log.Panicf("count of row %d would become negative", row)
		}
		s.yhat[row]--
	case Avg:
		e.decrementCount(row)
		s.sum[row] -= v
		if s.count[row] > 0.5 {
			s.yhat[row] = s.sum[row] / s.count[row]
		} else {
			s.yhat[row] = 0
		}
	case Var, Stddev, Skewness:
		e.decrementCount(row)
		d := v - e.center[row]
		s.sum[row] -= d
		s.sumSquared[row] -= d * d
		if s.sumCubed != nil {
			s.sumCubed[row] -= d * d * d
		}
		e.updateDispersion(row)
	case Max:
		e.decrementCount(row)
		if s.count[row] < 0.5 {
			s.extremal[row] = -1
			s.yhat[row] = 0
			return
		}
		if ix == s.extremal[row] {
			next := e.findNextSmaller(ix)
			s.extremal[row] = next
			s.yhat[row] = e.arena.At(next).Value
		}
	case Min:
		e.decrementCount(row)
		if s.count[row] < 0.5 {
			s.extremal[row] = -1
			s.yhat[row] = 0
			return
		}
		if ix == s.extremal[row] {
			next := e.findNextGreater(ix)
			s.extremal[row] = next
			s.yhat[row] = e.arena.At(next).Value
		}
	case Median:
		e.deactivateMedian(ix, row)
	case CountDistinct:
		if !e.hasActivatedTwin(ix) {
			s.yhat[row]--
		}
	case CountMinusCountDistinct:
		if e.hasActivatedTwin(ix) {
			s.yhat[row]--
		}
	default:
		log.Panicf("unknown aggregation %v", e.kind)
	}
}

func (e *Engine) decrementCount(row int) {
	if e.live.count[row] < 0.5 {
		log.Panicf("count of row %d would become negative", row)
	}
	e.live.count[row]--
}

func (e *Engine) updateDispersion(row int) {
	s := &e.live
	n := s.count[row]
	if n <= 1 {
		s.yhat[row] = 0
		return
	}
	deviation := s.sum[row] / n
	variance := s.sumSquared[row]/n - deviation*deviation
	thirdMoment := 0.0
	if e.kind == Skewness {
		thirdMoment = s.sumCubed[row]/n - 3*deviation*variance - deviation*deviation*deviation
	}
	s.yhat[row] = dispersion(e.kind, n, e.center[row]+deviation, variance, thirdMoment)
}

//hasActivatedTwin tells whether another activated match of the same row has the same value.
//Equal values are adjacent in the arena.
func (e *Engine) hasActivatedTwin(ix int) bool {
	m := e.arena.At(ix)
	for j := ix - 1; j >= 0; j-- {
		other := e.arena.At(j)
		if other.PopulationRow != m.PopulationRow || other.Value != m.Value {
			break
		}
		if other.Activated {
			return true
		}
	}
	for j := ix + 1; j < e.arena.Len(); j++ {
		other := e.arena.At(j)
		if other.PopulationRow != m.PopulationRow || other.Value != m.Value {
			break
		}
		if other.Activated {
			return true
		}
	}
	return false
}

//findNextGreater returns the next activated match of the same row above ix in arena order.
func (e *Engine) findNextGreater(ix int) int {
	row := e.arena.At(ix).PopulationRow
	for j := ix + 1; j < e.arena.Len(); j++ {
		m := e.arena.At(j)
		if m.PopulationRow != row {
			break
		}
		if m.Activated {
			return j
		}
	}
	log.Panicf("no activated match of row %d above %d", row, ix)
	return -1
}

//findNextSmaller returns the next activated match of the same row below ix in arena order.
func (e *Engine) findNextSmaller(ix int) int {
	row := e.arena.At(ix).PopulationRow
	for j := ix - 1; j >= 0; j-- {
		m := e.arena.At(j)
		if m.PopulationRow != row {
			break
		}
		if m.Activated {
			return j
		}
	}
	log.Panicf("no activated match of row %d below %d", row, ix)
	return -1
}

//The median pointer refers to the upper one of the two middle matches when the count is even.
func (e *Engine) activateMedian(ix, row int) {
	s := &e.live
	s.count[row]++
	if s.count[row] < 1.5 {
		s.extremal[row] = ix
		s.yhat[row] = e.arena.At(ix).Value
		return
	}
	ptr := s.extremal[row]
	if int(s.count[row])%2 == 0 {
		greater, smaller := ptr, ptr
		if ix > ptr {
			greater = e.findNextGreater(ptr)
			s.extremal[row] = greater
		} else {
			smaller = e.findNextSmaller(ptr)
		}
		s.yhat[row] = (e.arena.At(greater).Value + e.arena.At(smaller).Value) / 2
		return
	}
	if ix < ptr {
		ptr = e.findNextSmaller(ptr)
		s.extremal[row] = ptr
	}
	s.yhat[row] = e.arena.At(ptr).Value
}

func (e *Engine) deactivateMedian(ix, row int) {
	s := &e.live
	e.decrementCount(row)
	if s.count[row] < 0.5 {
		s.extremal[row] = -1
		s.yhat[row] = 0
		return
	}
	ptr := s.extremal[row]
	if int(s.count[row])%2 == 0 {
		greater, smaller := ptr, ptr
		switch {
		case ix < ptr:
			greater = e.findNextGreater(ptr)
			s.extremal[row] = greater
		case ix > ptr:
			smaller = e.findNextSmaller(ptr)
		default:
			greater = e.findNextGreater(ptr)
			smaller = e.findNextSmaller(ptr)
			s.extremal[row] = greater
		}
		s.yhat[row] = (e.arena.At(greater).Value + e.arena.At(smaller).Value) / 2
		return
	}
	if ix >= ptr {
		ptr = e.findNextSmaller(ptr)
		s.extremal[row] = ptr
	}
	s.yhat[row] = e.arena.At(ptr).Value
}
