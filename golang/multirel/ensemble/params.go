package ensemble

import (
	"fmt"
	"runtime"

	"github.com/tarstars/relational_features/golang/multirel/aggregation"
	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/decisiontree"
	"github.com/tarstars/relational_features/golang/multirel/descriptors"
)

//Params collect arguments required to fit an ensemble.
type Params struct {
	Tree         descriptors.TreeParams `json:"tree" mapstructure:"tree"`
	Aggregations []aggregation.Kind     `json:"aggregations" mapstructure:"aggregations"`
	Join         containers.JoinSpec    `json:"join" mapstructure:"join"`
	NumFeatures  int                    `json:"num_features" mapstructure:"num_features"`
	NumThreads   int                    `json:"num_threads" mapstructure:"num_threads"`
}

//DefaultParams fit one tree per aggregation and column with the default tree hyperparameters.
func DefaultParams(join containers.JoinSpec) Params {
	return Params{
		Tree:         descriptors.DefaultTreeParams(),
		Aggregations: aggregation.Kinds(),
		Join:         join,
	}
}

func (p Params) numThreads() int {
	if p.NumThreads <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return p.NumThreads
}

func (p Params) validate() error {
	if err := p.Tree.Validate(); err != nil {
		return err
	}
	if len(p.Aggregations) == 0 {
		return fmt.Errorf("no aggregations given")
	}
	if p.NumFeatures < 0 {
		return fmt.Errorf("num_features must be non-negative, got %d", p.NumFeatures)
	}
	return nil
}

//Candidate is one aggregation of one column. Every candidate is fitted as a separate tree.
type Candidate struct {
	Aggregation aggregation.Kind
	Column      descriptors.ColumnToBeAggregated
}

func column(dataUsed descriptors.DataUsed, col int) descriptors.ColumnToBeAggregated {
	return descriptors.ColumnToBeAggregated{ColumnUsed: col, DataUsed: dataUsed}
}

func appendColumns(columns []descriptors.ColumnToBeAggregated, cols []containers.Column, dataUsed descriptors.DataUsed) []descriptors.ColumnToBeAggregated {
	for i, c := range cols {
		if c.ComparisonOnly() {
			continue
		}
		columns = append(columns, column(dataUsed, i))
	}
	return columns
}

func appendPairs(columns []descriptors.ColumnToBeAggregated, pairs []descriptors.SameUnitPair, dataUsed descriptors.DataUsed) []descriptors.ColumnToBeAggregated {
	for i := range pairs {
		columns = append(columns, column(dataUsed, i))
	}
	return columns
}

//Candidates lists the aggregations the ensemble tries. Count needs no column, the distinct counts
//also work on categories, the other aggregations work on numbers only.
func Candidates(input decisiontree.Input, sameUnits descriptors.SameUnits, join containers.JoinSpec, kinds []aggregation.Kind) []Candidate {
	per := input.Peripheral

	var numbers []descriptors.ColumnToBeAggregated
	numbers = appendColumns(numbers, per.NumericalColumns, descriptors.XPeripNumerical)
	numbers = appendColumns(numbers, per.DiscreteColumns, descriptors.XPeripDiscrete)
	numbers = appendPairs(numbers, sameUnits.Numerical, descriptors.SameUnitNumerical)
	numbers = appendPairs(numbers, sameUnits.Discrete, descriptors.SameUnitDiscrete)
	for i := range input.Subfeatures {
		numbers = append(numbers, column(descriptors.XSubfeature, i))
	}
	if join.PopulationTimeStamp >= 0 && join.PeripheralTimeStamp >= 0 {
		numbers = append(numbers, column(descriptors.TimeStampsDiff, 0))
	}
	categories := appendColumns(nil, per.CategoricalColumns, descriptors.XPeripCategorical)

	var candidates []Candidate
	for _, kind := range kinds {
		switch kind {
		case aggregation.Count:
			candidates = append(candidates, Candidate{kind, column(descriptors.NotApplicable, 0)})
			continue
		case aggregation.CountDistinct, aggregation.CountMinusCountDistinct:
			for _, c := range categories {
				candidates = append(candidates, Candidate{kind, c})
			}
		}
		for _, c := range numbers {
			candidates = append(candidates, Candidate{kind, c})
		}
	}
	return candidates
}
