package decisiontree

import (
	"go.uber.org/zap"

	"github.com/tarstars/relational_features/golang/multirel/aggregation"
	"github.com/tarstars/relational_features/golang/multirel/binning"
	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/descriptors"
	"github.com/tarstars/relational_features/golang/multirel/helpers"
)

//tryConditions stores one criterion stage per candidate split of the node. Every shard tries the
//same columns in the same order, whether it holds any of the matches or not.
func (n *Node) tryConditions(ctx *fitContext, ixs []int) {
	pop, per := ctx.cols.Input.Population, ctx.cols.Input.Peripheral
	sameUnits := ctx.cols.SameUnits

	for i := range sameUnits.Categorical {
		if ctx.skipCondition() {
			continue
		}
		n.tryCategorical(ctx, descriptors.SameUnitCategorical, i, ixs)
	}
	for i, pair := range sameUnits.Discrete {
		if ctx.skipCondition() {
			continue
		}
		dataUsed := descriptors.SameUnitDiscrete
		if pair.Column(pop, per).IsTimeStamp() {
			dataUsed = descriptors.SameUnitDiscreteTs
		}
		n.tryNumerical(ctx, dataUsed, i, ixs, true)
	}
	for i, pair := range sameUnits.Numerical {
		if ctx.skipCondition() {
			continue
		}
		dataUsed := descriptors.SameUnitNumerical
		if pair.Column(pop, per).IsTimeStamp() {
			dataUsed = descriptors.SameUnitNumericalTs
		}
		n.tryNumerical(ctx, dataUsed, i, ixs, false)
	}

	n.tryTable(ctx, per, descriptors.XPeripCategorical, descriptors.XPeripDiscrete,
		descriptors.XPeripNumerical, descriptors.XPeripText, ixs)
	n.tryTable(ctx, pop, descriptors.XPopulCategorical, descriptors.XPopulDiscrete,
		descriptors.XPopulNumerical, descriptors.XPopulText, ixs)

	for i := range ctx.cols.Input.Subfeatures {
		if ctx.skipCondition() {
			continue
		}
		n.tryNumerical(ctx, descriptors.XSubfeature, i, ixs, false)
	}

	if ctx.params.DeltaT > 0 {
		n.tryWindow(ctx, ixs)
	}
}

func (n *Node) tryTable(ctx *fitContext, df *containers.DataFrame, categorical, discrete, numerical, text descriptors.DataUsed, ixs []int) {
	for j, col := range df.CategoricalColumns {
		if col.ComparisonOnly() || ctx.skipCondition() {
			continue
		}
		n.tryCategorical(ctx, categorical, j, ixs)
	}
	for j, col := range df.DiscreteColumns {
		if col.ComparisonOnly() || ctx.skipCondition() {
			continue
		}
		n.tryNumerical(ctx, discrete, j, ixs, true)
	}
	for j, col := range df.NumericalColumns {
		if col.ComparisonOnly() || ctx.skipCondition() {
			continue
		}
		n.tryNumerical(ctx, numerical, j, ixs, false)
	}
	for j, col := range df.Text {
		if col.ComparisonOnly() || ctx.skipCondition() {
			continue
		}
		n.tryText(ctx, text, j, ixs)
	}
}

func numericalValue(arena *containers.MatchArena) func(ix int) float64 {
	return func(ix int) float64 { return arena.At(ix).NumericalValue }
}

func categoricalValue(arena *containers.MatchArena) func(ix int) int {
	return func(ix int) int { return arena.At(ix).CategoricalValue }
}

//tryNumerical sweeps the thresholds of a numerical or discrete column, first from above and
//then from below. The critical value of a stage is the upper boundary of the highest bin on the
//smaller side.
func (n *Node) tryNumerical(ctx *fitContext, dataUsed descriptors.DataUsed, col int, ixs []int, discrete bool) {
	arena := ctx.arena
	for _, ix := range ixs {
		m := arena.At(ix)
		m.NumericalValue = ctx.cols.Numerical(dataUsed, col, m)
	}
	nanBegin := arena.SeparateNullValues(ixs, false)
	value := numericalValue(arena)

	min, max, ok := binning.MinMax(ctx.reducer, ixs[:nanBegin], value)
	if !ok {
		return
	}
	numBins := binning.NumBins(ctx.reducer, ctx.params.GridFactor, nanBegin)
	var bins binning.Bins
	if discrete {
		bins = binning.Discrete(min, max, numBins, ixs, nanBegin, value)
	} else {
		bins = binning.Numerical(min, max, numBins, ixs, nanBegin, value)
	}
	numStages := bins.NumBins()
	if numStages == 0 {
		return
	}

	proposeThresholds(ctx, true, helpers.Descending(numStages), bins.CriticalValues, col, dataUsed)
	proposeThresholds(ctx, false, helpers.Ascending(numStages), bins.CriticalValues, col, dataUsed)

	engine := ctx.engine
	if n.IsActivated {
		engine.DeactivateMatchesWithNullValues(bins.Nulls())
		engine.DeactivateFromAbove(bins.Indptr, bins.Ixs)
	} else {
		engine.ActivateFromAbove(bins.Indptr, bins.Ixs)
	}
	engine.Rollback()

	if n.IsActivated {
		engine.DeactivateMatchesWithNullValues(bins.Nulls())
		engine.DeactivateFromBelow(bins.Indptr, bins.Ixs)
	} else {
		engine.ActivateFromBelow(bins.Indptr, bins.Ixs)
	}
	engine.Rollback()
}

func proposeThresholds(ctx *fitContext, app bool, order helpers.IntIterable, criticalValues []float64, col int, dataUsed descriptors.DataUsed) {
	for order.HasNext() {
		ctx.propose(descriptors.NewNumericalSplit(app, criticalValues[order.GetNext()], col, dataUsed))
	}
}

//tryWindow tries every time window of width DeltaT, first keeping the matches outside the window
//on the greater side and then the matches inside it on the smaller side.
func (n *Node) tryWindow(ctx *fitContext, ixs []int) {
	arena := ctx.arena
	for _, ix := range ixs {
		m := arena.At(ix)
		m.NumericalValue = ctx.cols.timeStampDiff(m)
	}
	nanBegin := arena.SeparateNullValues(ixs, false)
	value := numericalValue(arena)

	min, max, ok := binning.MinMax(ctx.reducer, ixs[:nanBegin], value)
	if !ok {
		return
	}
	bins, ok := binning.Window(min, max, ctx.params.DeltaT, ixs, nanBegin, value)
	if !ok {
		ctx.logger.Debug("too many time windows",
			zap.Float64("min", min),
			zap.Float64("max", max),
			zap.Float64("delta_t", ctx.params.DeltaT),
		)
		return
	}
	numStages := bins.NumBins()
	if numStages == 0 {
		return
	}

	proposeThresholds(ctx, true, helpers.Ascending(numStages), bins.CriticalValues, 0, descriptors.TimeStampsWindow)
	proposeThresholds(ctx, false, helpers.Ascending(numStages), bins.CriticalValues, 0, descriptors.TimeStampsWindow)

	if n.IsActivated {
		ctx.engine.DeactivateOutsideWindow(bins.Indptr, bins.Ixs)
		ctx.engine.DeactivateInWindow(bins.Indptr, bins.Ixs)
	} else {
		ctx.engine.ActivateOutsideWindow(bins.Indptr, bins.Ixs)
		ctx.engine.ActivateInWindow(bins.Indptr, bins.Ixs)
	}
}

//categorySweep abstracts over category indices and word indices.
type categorySweep struct {
	containing    func(on bool, groups []int, revert aggregation.Revert)
	notContaining func(on bool, groups []int, revert aggregation.Revert)
}

func (n *Node) sweep(groups []int, revert aggregation.Revert, s categorySweep) {
	on := !n.IsActivated
	s.containing(on, groups, revert)
	s.notContaining(on, groups, revert)
}

func proposeSets(ctx *fitContext, dataUsed descriptors.DataUsed, col int, containing, notContaining []int, prefixes bool) {
	for i, c := range containing {
		set := []int{c}
		if prefixes {
			set = append([]int(nil), containing[:i+1]...)
		}
		ctx.propose(descriptors.NewCategoricalSplit(false, set, col, dataUsed))
	}
	for i, c := range notContaining {
		set := []int{c}
		if prefixes {
			set = append([]int(nil), notContaining[:i+1]...)
		}
		ctx.propose(descriptors.NewCategoricalSplit(true, set, col, dataUsed))
	}
}

//rankIndividual orders the groups by the stages their individual candidates just stored, for
//containing and for not containing candidates separately.
func rankIndividual(ctx *fitContext, groups []int) (containing, notContaining []int) {
	end := ctx.crit.StorageIx()
	num := len(groups)
	permute := func(order []int) []int {
		sorted := make([]int, len(order))
		for i, o := range order {
			sorted[i] = groups[o]
		}
		return sorted
	}
	containing = permute(ctx.crit.Argsort(end-2*num, end-num))
	notContaining = permute(ctx.crit.Argsort(end-num, end))
	return containing, notContaining
}

func combineSets(ctx *fitContext, numGroups int) bool {
	return ctx.params.AllowSets && numGroups >= 3
}

//tryCategorical tries every category on its own and, when sets are allowed, the best prefixes of
//the categories ranked by their individual scores.
func (n *Node) tryCategorical(ctx *fitContext, dataUsed descriptors.DataUsed, col int, ixs []int) {
	arena := ctx.arena
	for _, ix := range ixs {
		m := arena.At(ix)
		m.CategoricalValue = ctx.cols.Categorical(dataUsed, col, m)
	}
	nanBegin := arena.Partition(ixs, func(m *containers.Match) bool { return !m.IsNullCategorical() })
	index, categories := binning.Categorical(ctx.reducer, ixs, nanBegin, categoricalValue(arena))
	if len(categories) == 0 {
		return
	}

	s := categorySweep{
		containing: func(on bool, groups []int, revert aggregation.Revert) {
			if on {
				ctx.engine.ActivateContainingCategories(groups, revert, index)
			} else {
				ctx.engine.DeactivateContainingCategories(groups, revert, index)
			}
		},
		notContaining: func(on bool, groups []int, revert aggregation.Revert) {
			if on {
				ctx.engine.ActivateNotContainingCategories(groups, revert, index)
			} else {
				ctx.engine.DeactivateNotContainingCategories(groups, revert, index)
			}
		},
	}

	proposeSets(ctx, dataUsed, col, categories, categories, false)
	n.sweep(categories, aggregation.AfterEachCategory, s)

	if !combineSets(ctx, len(categories)) {
		return
	}
	containing, notContaining := rankIndividual(ctx, categories)
	proposeSets(ctx, dataUsed, col, containing, notContaining, true)
	on := !n.IsActivated
	s.containing(on, containing, aggregation.AfterAllCategories)
	s.notContaining(on, notContaining, aggregation.AfterAllCategories)
}

//tryText works like tryCategorical with the words of a text column in place of categories.
//A split on a set of words keeps the matches whose text contains any of them on the smaller side.
func (n *Node) tryText(ctx *fitContext, dataUsed descriptors.DataUsed, col int, ixs []int) {
	arena := ctx.arena
	for _, ix := range ixs {
		m := arena.At(ix)
		m.CategoricalValue = ctx.cols.Categorical(dataUsed, col, m)
	}
	text := ctx.cols.Text(dataUsed, col)
	rownum := categoricalValue(arena)
	words := binning.Words(ctx.reducer, text, ixs, rownum)
	if len(words) == 0 {
		return
	}
	index := binning.Rownum(text, ixs, rownum)

	proposeSets(ctx, dataUsed, col, words, words, false)
	n.sweep(words, aggregation.AfterEachCategory, categorySweep{
		containing: func(on bool, groups []int, revert aggregation.Revert) {
			if on {
				ctx.engine.ActivateContainingWords(groups, revert, index)
			} else {
				ctx.engine.DeactivateContainingWords(groups, revert, index)
			}
		},
		notContaining: func(on bool, groups []int, revert aggregation.Revert) {
			if on {
				ctx.engine.ActivateNotContainingWords(groups, revert, index)
			} else {
				ctx.engine.DeactivateNotContainingWords(groups, revert, index)
			}
		},
	})

	if !combineSets(ctx, len(words)) {
		return
	}
	containing, notContaining := rankIndividual(ctx, words)
	proposeSets(ctx, dataUsed, col, containing, notContaining, true)

	byContaining := binning.FirstWord(text, containing, ixs, rownum)
	byNotContaining := binning.FirstWord(text, notContaining, ixs, rownum)
	if n.IsActivated {
		ctx.engine.DeactivateContainingCategories(containing, aggregation.AfterAllCategories, byContaining)
		ctx.engine.DeactivateNotContainingCategories(notContaining, aggregation.AfterAllCategories, byNotContaining)
	} else {
		ctx.engine.ActivateContainingCategories(containing, aggregation.AfterAllCategories, byContaining)
		ctx.engine.ActivateNotContainingCategories(notContaining, aggregation.AfterAllCategories, byNotContaining)
	}
}
