package decisiontree

import (
	"fmt"
	"math"

	"github.com/tarstars/relational_features/golang/multirel/aggregation"
	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/descriptors"
	"github.com/tarstars/relational_features/golang/multirel/helpers"
)

//Input bundles the tables a tree is fitted on or applied to. Subfeatures[i][r] is the value of
//subfeature i for peripheral row r.
type Input struct {
	Population  *containers.DataFrame
	Peripheral  *containers.DataFrame
	Subfeatures [][]float64
}

//Columns resolves the values splits and aggregations refer to for the matches of one input.
type Columns struct {
	Input     Input
	SameUnits descriptors.SameUnits
	Join      containers.JoinSpec
	DeltaT    float64
}

func (c *Columns) timeStampDiff(m *containers.Match) float64 {
	return c.Input.Population.TimeStamp(m.PopulationRow, c.Join.PopulationTimeStamp) -
		c.Input.Peripheral.TimeStamp(m.PeripheralRow, c.Join.PeripheralTimeStamp)
}

//Numerical returns the value of a numerical, discrete, subfeature, same unit or time stamp column.
//Same unit values are second - first.
func (c *Columns) Numerical(dataUsed descriptors.DataUsed, col int, m *containers.Match) float64 {
	pop, per := c.Input.Population, c.Input.Peripheral
	switch dataUsed {
	case descriptors.XPeripNumerical:
		return per.Numerical(m.PeripheralRow, col)
	case descriptors.XPeripDiscrete:
		return per.Discrete(m.PeripheralRow, col)
	case descriptors.XPopulNumerical:
		return pop.Numerical(m.PopulationRow, col)
	case descriptors.XPopulDiscrete:
		return pop.Discrete(m.PopulationRow, col)
	case descriptors.XSubfeature:
		return c.Input.Subfeatures[col][m.PeripheralRow]
	case descriptors.SameUnitNumerical, descriptors.SameUnitNumericalTs:
		pair := c.SameUnits.Numerical[col]
		return c.Numerical(pair.Second.DataUsed, pair.Second.ColumnUsed, m) -
			c.Numerical(pair.First.DataUsed, pair.First.ColumnUsed, m)
	case descriptors.SameUnitDiscrete, descriptors.SameUnitDiscreteTs:
		pair := c.SameUnits.Discrete[col]
		return c.Numerical(pair.Second.DataUsed, pair.Second.ColumnUsed, m) -
			c.Numerical(pair.First.DataUsed, pair.First.ColumnUsed, m)
	case descriptors.TimeStampsDiff, descriptors.TimeStampsWindow:
		return c.timeStampDiff(m)
	}
	helpers.Panicf("%v is not a numerical column", dataUsed)
	return 0
}

//Categorical returns the category of a categorical column or the row of a text column. A same unit
//category is 0 when both categories are equal and non-null and null otherwise.
func (c *Columns) Categorical(dataUsed descriptors.DataUsed, col int, m *containers.Match) int {
	switch dataUsed {
	case descriptors.XPeripCategorical:
		return c.Input.Peripheral.Categorical(m.PeripheralRow, col)
	case descriptors.XPopulCategorical:
		return c.Input.Population.Categorical(m.PopulationRow, col)
	case descriptors.SameUnitCategorical:
		pair := c.SameUnits.Categorical[col]
		first := c.Categorical(pair.First.DataUsed, pair.First.ColumnUsed, m)
		second := c.Categorical(pair.Second.DataUsed, pair.Second.ColumnUsed, m)
		if first >= 0 && first == second {
			return 0
		}
		return -1
	case descriptors.XPeripText:
		return m.PeripheralRow
	case descriptors.XPopulText:
		return m.PopulationRow
	}
	helpers.Panicf("%v is not a categorical column", dataUsed)
	return 0
}

//Text returns the text column a word split refers to.
func (c *Columns) Text(dataUsed descriptors.DataUsed, col int) *containers.TextColumn {
	if dataUsed == descriptors.XPopulText {
		return c.Input.Population.Text[col]
	}
	return c.Input.Peripheral.Text[col]
}

//SetScratch writes the value the split is evaluated on into the scratch fields of the match.
func (c *Columns) SetScratch(split *descriptors.Split, m *containers.Match) {
	if split.DataUsed.IsCategorical() || split.DataUsed.IsText() {
		m.CategoricalValue = c.Categorical(split.DataUsed, split.ColumnUsed, m)
		return
	}
	m.NumericalValue = c.Numerical(split.DataUsed, split.ColumnUsed, m)
}

//ValueToBeAggregated returns the value of the column an aggregation works on, NaN for null.
func (c *Columns) ValueToBeAggregated(col descriptors.ColumnToBeAggregated, m *containers.Match) float64 {
	switch col.DataUsed {
	case descriptors.NotApplicable:
		return 0
	case descriptors.XPeripCategorical, descriptors.XPopulCategorical:
		v := c.Categorical(col.DataUsed, col.ColumnUsed, m)
		if v < 0 {
			return math.NaN()
		}
		return float64(v)
	}
	return c.Numerical(col.DataUsed, col.ColumnUsed, m)
}

//withValues sets the value to be aggregated of every match and drops the matches whose value is
//null unless the aggregation ignores values.
func (c *Columns) withValues(matches []containers.Match, col descriptors.ColumnToBeAggregated, kind aggregation.Kind) []containers.Match {
	kept := matches[:0]
	for _, m := range matches {
		m.Value = c.ValueToBeAggregated(col, &m)
		if kind.NeedsValue() && isNull(m.Value) {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

func isNull(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

//check reports column references that do not exist in the input.
func (c *Columns) check(dataUsed descriptors.DataUsed, col int) error {
	pop, per := c.Input.Population, c.Input.Peripheral
	var n int
	switch dataUsed {
	case descriptors.NotApplicable, descriptors.TimeStampsDiff, descriptors.TimeStampsWindow:
		return nil
	case descriptors.XPeripNumerical:
		n = per.NumNumericals()
	case descriptors.XPeripDiscrete:
		n = per.NumDiscretes()
	case descriptors.XPeripCategorical:
		n = per.NumCategoricals()
	case descriptors.XPeripText:
		n = per.NumText()
	case descriptors.XPopulNumerical:
		n = pop.NumNumericals()
	case descriptors.XPopulDiscrete:
		n = pop.NumDiscretes()
	case descriptors.XPopulCategorical:
		n = pop.NumCategoricals()
	case descriptors.XPopulText:
		n = pop.NumText()
	case descriptors.XSubfeature:
		n = len(c.Input.Subfeatures)
		if col >= 0 && col < n && len(c.Input.Subfeatures[col]) != per.NumRows() {
			return fmt.Errorf("subfeature %d has %d rows, peripheral table has %d", col, len(c.Input.Subfeatures[col]), per.NumRows())
		}
	case descriptors.SameUnitCategorical:
		n = len(c.SameUnits.Categorical)
	case descriptors.SameUnitDiscrete, descriptors.SameUnitDiscreteTs:
		n = len(c.SameUnits.Discrete)
	case descriptors.SameUnitNumerical, descriptors.SameUnitNumericalTs:
		n = len(c.SameUnits.Numerical)
	default:
		return fmt.Errorf("unknown data used %v", dataUsed)
	}
	if col < 0 || col >= n {
		return fmt.Errorf("%v column %d out of range [0, %d)", dataUsed, col, n)
	}
	return nil
}

func (c *Columns) checkJoin() error {
	pop, per := c.Input.Population, c.Input.Peripheral
	if pop == nil || per == nil {
		return fmt.Errorf("population and peripheral tables are required")
	}
	if c.Join.PopulationKey < 0 || c.Join.PopulationKey >= len(pop.JoinKeys) {
		return fmt.Errorf("population join key %d out of range [0, %d)", c.Join.PopulationKey, len(pop.JoinKeys))
	}
	if c.Join.PeripheralKey < 0 || c.Join.PeripheralKey >= len(per.JoinKeys) {
		return fmt.Errorf("peripheral join key %d out of range [0, %d)", c.Join.PeripheralKey, len(per.JoinKeys))
	}
	return nil
}
