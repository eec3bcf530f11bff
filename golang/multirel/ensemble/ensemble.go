package ensemble

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/tarstars/relational_features/golang/multirel/criterion"
	"github.com/tarstars/relational_features/golang/multirel/decisiontree"
	"github.com/tarstars/relational_features/golang/multirel/descriptors"
	"github.com/tarstars/relational_features/golang/multirel/reducer"
)

//Ensemble is the model class: every tree computes one feature of the population table.
type Ensemble struct {
	Trees      []*decisiontree.Tree `json:"trees_"`
	NumTargets int                  `json:"num_targets_"`

	logger *zap.Logger
}

//Fit fits one tree per candidate and keeps the NumFeatures trees with the best criterion values,
//all of them when NumFeatures is 0. Candidates are fitted concurrently, each with its own criterion.
func Fit(ctx context.Context, input decisiontree.Input, targets *mat.Dense, params Params, logger *zap.Logger) (*Ensemble, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("fit ensemble: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if h, _ := targets.Dims(); h != input.Population.NumRows() {
		return nil, fmt.Errorf("fit ensemble: %d targets for %d population rows", h, input.Population.NumRows())
	}
	_, numTargets := targets.Dims()

	sameUnits := descriptors.FindSameUnits(input.Population, input.Peripheral)
	candidates := Candidates(input, sameUnits, params.Join, params.Aggregations)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("fit ensemble: the peripheral table has no column to aggregate")
	}
	logger.Info("fitting candidate trees",
		zap.Int("candidates", len(candidates)),
		zap.Int("threads", params.numThreads()),
	)

	trees := make([]*decisiontree.Tree, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(params.numThreads())
	for i, c := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tree := decisiontree.NewTree(c.Aggregation, c.Column, params.Join, params.Tree, sameUnits,
				decisiontree.WithLogger(logger.With(zap.Int("candidate", i))))
			crit := criterion.NewRSquared(targets, params.Tree.MinNumSamples, reducer.Local{})
			if err := tree.Fit(input, crit, reducer.Local{}); err != nil {
				return fmt.Errorf("candidate %d (%v of %v %d): %w", i, c.Aggregation, c.Column.DataUsed, c.Column.ColumnUsed, err)
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit ensemble: %w", err)
	}

	trees = best(trees, params.NumFeatures)
	for i, tree := range trees {
		logger.Info("feature selected",
			zap.Int("feature", i),
			zap.Stringer("aggregation", tree.Aggregation),
			zap.Stringer("data_used", tree.ColumnToBeAggregated.DataUsed),
			zap.Int("column", tree.ColumnToBeAggregated.ColumnUsed),
			zap.Float64("value", tree.Value()),
		)
	}
	return &Ensemble{Trees: trees, NumTargets: numTargets, logger: logger}, nil
}

func sortKey(v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

//best returns the n trees with the highest values. Ties keep the candidate order.
func best(trees []*decisiontree.Tree, n int) []*decisiontree.Tree {
	sorted := append([]*decisiontree.Tree(nil), trees...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sortKey(sorted[i].Value()) > sortKey(sorted[j].Value())
	})
	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

func (e *Ensemble) log() *zap.Logger {
	if e.logger == nil {
		return zap.NewNop()
	}
	return e.logger
}

//SetLogger replaces the logger of the ensemble and its trees.
func (e *Ensemble) SetLogger(logger *zap.Logger) {
	e.logger = logger
	for i, tree := range e.Trees {
		tree.SetLogger(logger.With(zap.Int("feature", i)))
	}
}

//Transform computes the features, one column per tree.
func (e *Ensemble) Transform(input decisiontree.Input) (*mat.Dense, error) {
	nrows := input.Population.NumRows()
	if nrows == 0 || len(e.Trees) == 0 {
		return nil, fmt.Errorf("transform: %d population rows and %d trees", nrows, len(e.Trees))
	}
	features := mat.NewDense(nrows, len(e.Trees), nil)
	for i, tree := range e.Trees {
		feature, err := tree.Transform(input)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		features.SetCol(i, feature)
	}
	e.log().Debug("features computed", zap.Int("rows", nrows), zap.Int("features", len(e.Trees)))
	return features, nil
}

//ColumnImportances sums the importances of all trees and normalizes them to 1.
func (e *Ensemble) ColumnImportances(input decisiontree.Input) map[string]float64 {
	importances := make(map[string]float64)
	total := 0.0
	for _, tree := range e.Trees {
		for name, v := range tree.ColumnImportances(input) {
			importances[name] += v
			total += v
		}
	}
	if total > 0 {
		for name := range importances {
			importances[name] /= total
		}
	}
	return importances
}

//FeatureName is the name of a feature in the SQL code.
func FeatureName(prefix string, feature int) string {
	return fmt.Sprintf("%s_%d", prefix, feature+1)
}

//ToSQL returns one query per feature.
func (e *Ensemble) ToSQL(input decisiontree.Input, prefix string) []string {
	queries := make([]string, len(e.Trees))
	for i, tree := range e.Trees {
		queries[i] = tree.ToSQL(input, FeatureName(prefix, i))
	}
	return queries
}

//Subfeatures lists the subfeatures any of the trees needs.
func (e *Ensemble) Subfeatures() []int {
	used := make(map[int]struct{})
	for _, tree := range e.Trees {
		for _, s := range tree.Subfeatures() {
			used[s] = struct{}{}
		}
	}
	subfeatures := make([]int, 0, len(used))
	for s := range used {
		subfeatures = append(subfeatures, s)
	}
	sort.Ints(subfeatures)
	return subfeatures
}
