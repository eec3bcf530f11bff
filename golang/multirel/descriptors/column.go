package descriptors

import (
	"github.com/tarstars/relational_features/golang/multirel/containers"
)

//ColumnToBeAggregated points at the column whose values an aggregation works on. For the same unit
//tags ColumnUsed indexes the corresponding list of SameUnits.
type ColumnToBeAggregated struct {
	ColumnUsed int      `json:"ix_column_used" mapstructure:"ix_column_used"`
	DataUsed   DataUsed `json:"data_used" mapstructure:"data_used"`
}

//SameUnitPair is a pair of columns with identical units. Values are compared as second - first.
type SameUnitPair struct {
	First  ColumnToBeAggregated `json:"first"`
	Second ColumnToBeAggregated `json:"second"`
}

//SameUnits lists the pairs of columns that may be compared with each other.
type SameUnits struct {
	Categorical []SameUnitPair `json:"same_units_categorical_"`
	Discrete    []SameUnitPair `json:"same_units_discrete_"`
	Numerical   []SameUnitPair `json:"same_units_numerical_"`
}

func pairColumns(populationCols, peripheralCols []containers.Column, popul, perip DataUsed) []SameUnitPair {
	var pairs []SameUnitPair
	for i, pc := range populationCols {
		if pc.Unit == "" {
			continue
		}
		for j, qc := range peripheralCols {
			if pc.Unit == qc.Unit {
				pairs = append(pairs, SameUnitPair{
					First:  ColumnToBeAggregated{ColumnUsed: i, DataUsed: popul},
					Second: ColumnToBeAggregated{ColumnUsed: j, DataUsed: perip},
				})
			}
		}
	}
	for i, qc := range peripheralCols {
		if qc.Unit == "" {
			continue
		}
		for j := i + 1; j < len(peripheralCols); j++ {
			if qc.Unit == peripheralCols[j].Unit {
				pairs = append(pairs, SameUnitPair{
					First:  ColumnToBeAggregated{ColumnUsed: i, DataUsed: perip},
					Second: ColumnToBeAggregated{ColumnUsed: j, DataUsed: perip},
				})
			}
		}
	}
	return pairs
}

//FindSameUnits pairs population with peripheral columns and peripheral columns with each other
//whenever their non-empty units are identical.
func FindSameUnits(population, peripheral *containers.DataFrame) SameUnits {
	return SameUnits{
		Categorical: pairColumns(population.CategoricalColumns, peripheral.CategoricalColumns, XPopulCategorical, XPeripCategorical),
		Discrete:    pairColumns(population.DiscreteColumns, peripheral.DiscreteColumns, XPopulDiscrete, XPeripDiscrete),
		Numerical:   pairColumns(population.NumericalColumns, peripheral.NumericalColumns, XPopulNumerical, XPeripNumerical),
	}
}

//Column returns the description of the column a same unit entry starts with.
func (su SameUnitPair) Column(population, peripheral *containers.DataFrame) containers.Column {
	switch su.First.DataUsed {
	case XPopulCategorical:
		return population.CategoricalColumns[su.First.ColumnUsed]
	case XPeripCategorical:
		return peripheral.CategoricalColumns[su.First.ColumnUsed]
	case XPopulDiscrete:
		return population.DiscreteColumns[su.First.ColumnUsed]
	case XPeripDiscrete:
		return peripheral.DiscreteColumns[su.First.ColumnUsed]
	case XPopulNumerical:
		return population.NumericalColumns[su.First.ColumnUsed]
	default:
		return peripheral.NumericalColumns[su.First.ColumnUsed]
	}
}
