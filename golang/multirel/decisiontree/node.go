package decisiontree

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/tarstars/relational_features/golang/multirel/aggregation"
	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/criterion"
	"github.com/tarstars/relational_features/golang/multirel/descriptors"
	"github.com/tarstars/relational_features/golang/multirel/helpers"
	"github.com/tarstars/relational_features/golang/multirel/metrics"
	"github.com/tarstars/relational_features/golang/multirel/reducer"
)

//minImprovement is added to the regularization a split has to beat.
const minImprovement = 1e-7

//Node is a node of a relational decision tree. The matches of an activated node take part in the
//aggregation. A node with a split hands the matches for which the condition holds to Smaller and
//the rest to Greater; a node with a split but without children is a leaf that activates one side.
type Node struct {
	IsActivated  bool
	Depth        int
	Split        *descriptors.Split
	Greater      *Node
	Smaller      *Node
	Improvement  float64
	InitialValue float64
}

func newNode(isActivated bool, depth int) *Node {
	return &Node{
		IsActivated:  isActivated,
		Depth:        depth,
		Improvement:  math.NaN(),
		InitialValue: math.NaN(),
	}
}

//fitContext is everything the nodes of one tree share while it is fitted on one shard.
type fitContext struct {
	cols       *Columns
	arena      *containers.MatchArena
	engine     *aggregation.Engine
	crit       criterion.Criterion
	reducer    reducer.Reducer
	params     descriptors.TreeParams
	skip       func() bool
	logger     *zap.Logger
	candidates []descriptors.Split
}

func (ctx *fitContext) skipCondition() bool {
	return ctx.skip != nil && ctx.skip()
}

func (ctx *fitContext) propose(splits ...descriptors.Split) {
	ctx.candidates = append(ctx.candidates, splits...)
	if len(splits) > 0 {
		metrics.CandidatesEvaluated.WithLabelValues(splits[0].DataUsed.String()).Add(float64(len(splits)))
	}
}

//fitAsRoot activates all matches, records the initial value of the criterion and grows the tree.
func (n *Node) fitAsRoot(ctx *fitContext, ixs []int) {
	ctx.engine.ActivateAll(ixs)
	ctx.engine.Commit()
	ctx.crit.Commit()
	n.InitialValue = ctx.crit.Value()
	if ctx.params.MaxLength > 0 {
		n.fit(ctx, ixs)
	}
}

//fit searches the best split of the matches ixs and adopts it when it improves the criterion
//by more than the regularization.
func (n *Node) fit(ctx *fitContext, ixs []int) {
	sampleSize := ctx.reducer.SumInt(len(ixs))
	if sampleSize == 0 || sampleSize < 2*ctx.params.MinNumSamples {
		return
	}
	metrics.NodesFitted.Inc()

	ctx.crit.ResetStorageSize()
	ctx.candidates = ctx.candidates[:0]
	n.tryConditions(ctx, ixs)
	if ctx.crit.StorageIx() == 0 {
		return
	}
	helpers.Assert(len(ctx.candidates) == ctx.crit.StorageIx(),
		"%d candidate splits for %d stored stages", len(ctx.candidates), ctx.crit.StorageIx())

	ix := ctx.crit.FindMaximum()
	if ctx.params.CheckShards {
		helpers.Assert(ctx.reducer.MaxInt(ix) == ix && ctx.reducer.MinInt(ix) == ix,
			"shards disagree on the best split %d", ix)
	}
	best := ctx.crit.ValuesStored(ix)
	if !(best > ctx.crit.Value()+ctx.params.Regularization+minImprovement) {
		ctx.logger.Debug("no split improves the node",
			zap.Int("depth", n.Depth),
			zap.Int("samples", sampleSize),
			zap.Float64("best", best),
			zap.Float64("value", ctx.crit.Value()),
		)
		return
	}

	n.Split = ctx.candidates[ix].DeepCopy()
	n.setSamples(ctx, ixs)
	sep := n.partition(ctx.cols, ctx.arena, ixs)
	n.commit(ctx, ixs, sep)
	ctx.logger.Debug("split committed",
		zap.Int("depth", n.Depth),
		zap.Stringer("data_used", n.Split.DataUsed),
		zap.Int("column", n.Split.ColumnUsed),
		zap.Float64("critical_value", n.Split.CriticalValue),
		zap.Ints("categories", n.Split.CategoriesUsed),
		zap.Float64("improvement", n.Improvement),
	)

	if n.Depth < ctx.params.MaxLength {
		n.spawn(ctx, ixs, sep)
	}
}

func (n *Node) setSamples(ctx *fitContext, ixs []int) {
	for _, ix := range ixs {
		ctx.cols.SetScratch(n.Split, ctx.arena.At(ix))
	}
}

//isSmaller evaluates the condition of the split on the scratch values of the match. Null numbers
//go to the side the node deactivates.
func (n *Node) isSmaller(cols *Columns, m *containers.Match) bool {
	s := n.Split
	switch {
	case s.DataUsed.IsCategorical():
		return slices.Contains(s.CategoriesUsed, m.CategoricalValue)
	case s.DataUsed.IsText():
		text := cols.Text(s.DataUsed, s.ColumnUsed)
		for _, w := range s.CategoriesUsed {
			if text.Contains(m.CategoricalValue, w) {
				return true
			}
		}
		return false
	case s.DataUsed == descriptors.TimeStampsWindow:
		v := m.NumericalValue
		return s.CriticalValue-cols.DeltaT < v && v <= s.CriticalValue
	}
	if m.IsNullNumerical() {
		return n.greaterActivated()
	}
	return m.NumericalValue <= s.CriticalValue
}

func (n *Node) greaterActivated() bool {
	return n.Split.ApplyFromAbove != n.IsActivated
}

//partition moves the matches of the smaller side to the front of ixs and returns their number.
func (n *Node) partition(cols *Columns, arena *containers.MatchArena, ixs []int) int {
	return arena.Partition(ixs, func(m *containers.Match) bool {
		return n.isSmaller(cols, m)
	})
}

//commit applies the split to the aggregation and makes it permanent.
func (n *Node) commit(ctx *fitContext, ixs []int, sep int) {
	old := ctx.crit.Value()
	n.update(ctx.engine, ixs, sep)
	ctx.engine.Commit()
	ctx.crit.Commit()
	n.Improvement = ctx.crit.Value() - old
	metrics.SplitsCommitted.Inc()
}

func (n *Node) update(engine *aggregation.Engine, ixs []int, sep int) {
	switch {
	case n.Split.ApplyFromAbove && n.IsActivated:
		engine.DeactivatePartitionFromAbove(ixs, sep)
	case n.Split.ApplyFromAbove:
		engine.ActivatePartitionFromAbove(ixs, sep)
	case n.IsActivated:
		engine.DeactivatePartitionFromBelow(ixs, sep)
	default:
		engine.ActivatePartitionFromBelow(ixs, sep)
	}
}

func (n *Node) spawn(ctx *fitContext, ixs []int, sep int) {
	greaterActivated := n.greaterActivated()
	n.Greater = newNode(greaterActivated, n.Depth+1)
	n.Smaller = newNode(!greaterActivated, n.Depth+1)
	n.Greater.fit(ctx, ixs[sep:])
	n.Smaller.fit(ctx, ixs[:sep])
}

//Transform tells whether the subtree rooted at n activates the match. It only writes the scratch
//fields of the match.
func (n *Node) Transform(cols *Columns, m *containers.Match) bool {
	if n.Split == nil {
		return n.IsActivated
	}
	cols.SetScratch(n.Split, m)
	isGreater := !n.isSmaller(cols, m)
	if n.Greater == nil {
		return isGreater == n.greaterActivated()
	}
	if isGreater {
		return n.Greater.Transform(cols, m)
	}
	return n.Smaller.Transform(cols, m)
}

//NumNodes counts the nodes of the subtree.
func (n *Node) NumNodes() int {
	count := 1
	if n.Greater != nil {
		count += n.Greater.NumNodes() + n.Smaller.NumNodes()
	}
	return count
}

//AddSubfeatures inserts the subfeatures the splits of the subtree use.
func (n *Node) AddSubfeatures(subfeatures map[int]struct{}) {
	if n.Split == nil {
		return
	}
	if n.Split.DataUsed == descriptors.XSubfeature {
		subfeatures[n.Split.ColumnUsed] = struct{}{}
	}
	if n.Greater != nil {
		n.Greater.AddSubfeatures(subfeatures)
		n.Smaller.AddSubfeatures(subfeatures)
	}
}

type nodeJSON struct {
	IsActivated  bool     `json:"act_"`
	Imposes      bool     `json:"imp_"`
	Improvement  *float64 `json:"improvement_,omitempty"`
	InitialValue *float64 `json:"initial_value_,omitempty"`
	*descriptors.Split
	Greater *Node `json:"sub1_,omitempty"`
	Smaller *Node `json:"sub2_,omitempty"`
}

func optional(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		IsActivated:  n.IsActivated,
		Imposes:      n.Split != nil,
		Improvement:  optional(n.Improvement),
		InitialValue: optional(n.InitialValue),
		Split:        n.Split,
		Greater:      n.Greater,
		Smaller:      n.Smaller,
	})
}

//UnmarshalJSON restores a subtree. Depths are relative to the node, see setDepth.
func (n *Node) UnmarshalJSON(b []byte) error {
	var obj nodeJSON
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*n = Node{
		IsActivated:  obj.IsActivated,
		Improvement:  orNaN(obj.Improvement),
		InitialValue: orNaN(obj.InitialValue),
	}
	if !obj.Imposes {
		return nil
	}
	if obj.Split == nil {
		return fmt.Errorf("node imposes a condition but has no split")
	}
	n.Split = obj.Split
	if (obj.Greater == nil) != (obj.Smaller == nil) {
		return fmt.Errorf("node must have either both sub1_ and sub2_ or none of them")
	}
	n.Greater, n.Smaller = obj.Greater, obj.Smaller
	return nil
}

func (n *Node) setDepth(depth int) {
	n.Depth = depth
	if n.Greater != nil {
		n.Greater.setDepth(depth + 1)
		n.Smaller.setDepth(depth + 1)
	}
}
