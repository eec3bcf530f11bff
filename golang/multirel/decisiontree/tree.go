package decisiontree

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tarstars/relational_features/golang/multirel/aggregation"
	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/criterion"
	"github.com/tarstars/relational_features/golang/multirel/descriptors"
	"github.com/tarstars/relational_features/golang/multirel/metrics"
	"github.com/tarstars/relational_features/golang/multirel/reducer"
)

//transformChunk is the number of population rows one goroutine of Transform handles at a time.
const transformChunk = 256

//Tree is a relational decision tree computing one aggregation of one column over the matches its
//root activates.
type Tree struct {
	Aggregation          aggregation.Kind                 `json:"aggregation_"`
	ColumnToBeAggregated descriptors.ColumnToBeAggregated `json:"column_to_be_aggregated_"`
	Join                 containers.JoinSpec              `json:"join_"`
	Params               descriptors.TreeParams           `json:"params_"`
	SameUnits            descriptors.SameUnits            `json:"same_units_"`
	Root                 *Node                            `json:"root_"`

	skipCondition func() bool
	logger        *zap.Logger
	yhat          []float64
	value         float64
}

type Option func(*Tree)

//WithLogger sets the logger fit decisions are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tree) {
		t.logger = logger
	}
}

//WithSkipCondition installs a hook consulted before every candidate column. Columns it returns
//true for are not tried. All shards must get the same answers.
func WithSkipCondition(skip func() bool) Option {
	return func(t *Tree) {
		t.skipCondition = skip
	}
}

//NewTree creates an unfitted tree.
func NewTree(kind aggregation.Kind, column descriptors.ColumnToBeAggregated, join containers.JoinSpec,
	params descriptors.TreeParams, sameUnits descriptors.SameUnits, opts ...Option) *Tree {
	t := &Tree{
		Aggregation:          kind,
		ColumnToBeAggregated: column,
		Join:                 join,
		Params:               params,
		SameUnits:            sameUnits,
		logger:               zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

//SetLogger replaces the logger, used for trees restored from JSON.
func (t *Tree) SetLogger(logger *zap.Logger) {
	t.logger = logger
}

type treeJSON Tree

func (t *Tree) UnmarshalJSON(b []byte) error {
	var obj treeJSON
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Root == nil {
		return fmt.Errorf("tree without root_")
	}
	*t = Tree(obj)
	t.Root.setDepth(1)
	t.logger = zap.NewNop()
	return nil
}

func (t *Tree) columns(input Input) *Columns {
	return &Columns{Input: input, SameUnits: t.SameUnits, Join: t.Join, DeltaT: t.Params.DeltaT}
}

//check validates the references of the tree against the input.
func (t *Tree) check(cols *Columns) error {
	if err := cols.checkJoin(); err != nil {
		return err
	}
	if err := cols.check(t.ColumnToBeAggregated.DataUsed, t.ColumnToBeAggregated.ColumnUsed); err != nil {
		return fmt.Errorf("column to be aggregated: %w", err)
	}
	if t.ColumnToBeAggregated.DataUsed.IsText() || t.ColumnToBeAggregated.DataUsed == descriptors.TimeStampsWindow {
		return fmt.Errorf("%v cannot be aggregated", t.ColumnToBeAggregated.DataUsed)
	}
	pop, per := cols.Input.Population, cols.Input.Peripheral
	for _, pairs := range [][]descriptors.SameUnitPair{t.SameUnits.Categorical, t.SameUnits.Discrete, t.SameUnits.Numerical} {
		for _, pair := range pairs {
			if err := cols.check(pair.First.DataUsed, pair.First.ColumnUsed); err != nil {
				return fmt.Errorf("same unit pair: %w", err)
			}
			if err := cols.check(pair.Second.DataUsed, pair.Second.ColumnUsed); err != nil {
				return fmt.Errorf("same unit pair: %w", err)
			}
		}
	}
	if t.Join.PopulationTimeStamp >= len(pop.TimeStampColumns) || t.Join.PeripheralTimeStamp >= len(per.TimeStampColumns) ||
		t.Join.UpperTimeStamp >= len(per.TimeStampColumns) {
		return fmt.Errorf("time stamp column out of range")
	}
	return nil
}

//newFitContext joins the input and prepares the aggregation of the column to be aggregated.
func (t *Tree) newFitContext(input Input, crit criterion.Criterion, r reducer.Reducer) (*fitContext, error) {
	if err := t.Params.Validate(); err != nil {
		return nil, err
	}
	cols := t.columns(input)
	if err := t.check(cols); err != nil {
		return nil, err
	}

	matches := containers.NewJoiner(input.Population, input.Peripheral, t.Join).All()
	arena := containers.NewMatchArena(cols.withValues(matches, t.ColumnToBeAggregated, t.Aggregation))
	return &fitContext{
		cols:    cols,
		arena:   arena,
		engine:  aggregation.NewEngine(t.Aggregation, arena, input.Population.NumRows(), crit),
		crit:    crit,
		reducer: r,
		params:  t.Params,
		skip:    t.skipCondition,
		logger:  t.logger,
	}, nil
}

//Fit grows the tree on the data of one shard. All shards fitting the same tree call Fit together,
//each with its member of the same reducer group and a criterion built on its own targets.
func (t *Tree) Fit(input Input, crit criterion.Criterion, r reducer.Reducer) error {
	ctx, err := t.newFitContext(input, crit, r)
	if err != nil {
		return fmt.Errorf("fit tree: %w", err)
	}
	arena := ctx.arena

	t.Root = newNode(true, 1)
	t.Root.fitAsRoot(ctx, arena.Indices())
	t.yhat = append([]float64(nil), ctx.engine.CommittedYhat()...)
	t.value = crit.Value()
	metrics.TreesFitted.WithLabelValues(t.Aggregation.String()).Inc()

	t.logger.Info("tree fitted",
		zap.Stringer("aggregation", t.Aggregation),
		zap.Stringer("column_data_used", t.ColumnToBeAggregated.DataUsed),
		zap.Int("column", t.ColumnToBeAggregated.ColumnUsed),
		zap.Int("matches", arena.Len()),
		zap.Int("nodes", t.Root.NumNodes()),
		zap.Float64("initial_value", t.Root.InitialValue),
		zap.Float64("value", t.value),
	)
	return nil
}

//Value is the criterion value after fitting.
func (t *Tree) Value() float64 {
	return t.value
}

//Transform applies the tree to every population row of the input. Rows without activated matches
//get 0.
func (t *Tree) Transform(input Input) ([]float64, error) {
	if t.Root == nil {
		return nil, fmt.Errorf("transform: tree is not fitted")
	}
	cols := t.columns(input)
	if err := t.check(cols); err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	joiner := containers.NewJoiner(input.Population, input.Peripheral, t.Join)
	nrows := input.Population.NumRows()
	result := make([]float64, nrows)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for begin := 0; begin < nrows; begin += transformChunk {
		end := min(begin+transformChunk, nrows)
		g.Go(func() error {
			var matches []containers.Match
			var values []float64
			for row := begin; row < end; row++ {
				matches = joiner.Row(row, matches[:0])
				values = values[:0]
				for i := range matches {
					m := &matches[i]
					v := cols.ValueToBeAggregated(t.ColumnToBeAggregated, m)
					if t.Aggregation.NeedsValue() && isNull(v) {
						continue
					}
					if t.Root.Transform(cols, m) {
						values = append(values, v)
					}
				}
				result[row] = aggregation.Aggregate(t.Aggregation, values)
			}
			return nil
		})
	}
	return result, g.Wait()
}

//ColumnImportances credits the initial value of the criterion to the column to be aggregated and
//the improvements of the splits to the columns they use.
func (t *Tree) ColumnImportances(input Input) map[string]float64 {
	importances := make(map[string]float64)
	if t.Root == nil {
		return importances
	}
	cols := t.columns(input)
	cols.credit(importances, t.ColumnToBeAggregated.DataUsed, t.ColumnToBeAggregated.ColumnUsed, t.Root.InitialValue)
	t.Root.ColumnImportances(cols, importances)
	return importances
}

//Subfeatures returns the ascending subfeatures the tree needs.
func (t *Tree) Subfeatures() []int {
	used := make(map[int]struct{})
	if t.ColumnToBeAggregated.DataUsed == descriptors.XSubfeature {
		used[t.ColumnToBeAggregated.ColumnUsed] = struct{}{}
	}
	if t.Root != nil {
		t.Root.AddSubfeatures(used)
	}
	subfeatures := make([]int, 0, len(used))
	for s := range used {
		subfeatures = append(subfeatures, s)
	}
	sort.Ints(subfeatures)
	return subfeatures
}

//ToSQL renders the feature the tree computes as an SQL query.
func (t *Tree) ToSQL(input Input, featureName string) string {
	cols := t.columns(input)
	pop, per := input.Population, input.Peripheral

	column := "*"
	if t.ColumnToBeAggregated.DataUsed != descriptors.NotApplicable {
		column = cols.SQLName(t.ColumnToBeAggregated.DataUsed, t.ColumnToBeAggregated.ColumnUsed)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s AS \"%s\"\n", t.Aggregation.SQLExpression(column), featureName)
	fmt.Fprintf(&sb, "FROM \"%s\" %s\n", pop.Name, populationAlias)
	fmt.Fprintf(&sb, "LEFT JOIN \"%s\" %s\n", per.Name, peripheralAlias)
	fmt.Fprintf(&sb, "ON %s = %s\n",
		quote(populationAlias, pop.JoinKeyColumns[t.Join.PopulationKey].Name),
		quote(peripheralAlias, per.JoinKeyColumns[t.Join.PeripheralKey].Name))
	if t.Join.PopulationTimeStamp >= 0 && t.Join.PeripheralTimeStamp >= 0 {
		popTs := quote(populationAlias, pop.TimeStampColumns[t.Join.PopulationTimeStamp].Name)
		fmt.Fprintf(&sb, "AND %s <= %s\n",
			quote(peripheralAlias, per.TimeStampColumns[t.Join.PeripheralTimeStamp].Name), popTs)
		if t.Join.UpperTimeStamp >= 0 {
			upper := quote(peripheralAlias, per.TimeStampColumns[t.Join.UpperTimeStamp].Name)
			fmt.Fprintf(&sb, "AND ( %s > %s OR %s IS NULL )\n", upper, popTs, upper)
		}
	}

	var conditions []string
	if t.Root != nil {
		conditions = t.Root.ToSQL(cols, "", nil)
	}
	for i, condition := range conditions {
		keyword := "OR"
		if i == 0 {
			keyword = "WHERE"
		}
		fmt.Fprintf(&sb, "%s ( %s )\n", keyword, condition)
	}
	fmt.Fprintf(&sb, "GROUP BY %s.rowid;\n", populationAlias)
	return sb.String()
}
