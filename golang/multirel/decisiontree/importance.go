package decisiontree

import (
	"fmt"
	"math"

	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/descriptors"
)

func qualified(df *containers.DataFrame, name string) string {
	return fmt.Sprintf("%s.%s", df.Name, name)
}

//columnNames returns the qualified names of the columns a tag refers to. Same unit and time stamp
//tags refer to two columns.
func (c *Columns) columnNames(dataUsed descriptors.DataUsed, col int) []string {
	pop, per := c.Input.Population, c.Input.Peripheral
	switch dataUsed {
	case descriptors.XPeripNumerical:
		return []string{qualified(per, per.NumericalColumns[col].Name)}
	case descriptors.XPeripDiscrete:
		return []string{qualified(per, per.DiscreteColumns[col].Name)}
	case descriptors.XPeripCategorical:
		return []string{qualified(per, per.CategoricalColumns[col].Name)}
	case descriptors.XPeripText:
		return []string{qualified(per, per.Text[col].Name)}
	case descriptors.XPopulNumerical:
		return []string{qualified(pop, pop.NumericalColumns[col].Name)}
	case descriptors.XPopulDiscrete:
		return []string{qualified(pop, pop.DiscreteColumns[col].Name)}
	case descriptors.XPopulCategorical:
		return []string{qualified(pop, pop.CategoricalColumns[col].Name)}
	case descriptors.XPopulText:
		return []string{qualified(pop, pop.Text[col].Name)}
	case descriptors.XSubfeature:
		return []string{fmt.Sprintf("subfeature_%d", col)}
	case descriptors.SameUnitCategorical:
		return c.pairNames(c.SameUnits.Categorical[col])
	case descriptors.SameUnitDiscrete, descriptors.SameUnitDiscreteTs:
		return c.pairNames(c.SameUnits.Discrete[col])
	case descriptors.SameUnitNumerical, descriptors.SameUnitNumericalTs:
		return c.pairNames(c.SameUnits.Numerical[col])
	case descriptors.TimeStampsDiff, descriptors.TimeStampsWindow:
		if c.Join.PopulationTimeStamp < 0 || c.Join.PeripheralTimeStamp < 0 {
			return nil
		}
		return []string{
			qualified(pop, pop.TimeStampColumns[c.Join.PopulationTimeStamp].Name),
			qualified(per, per.TimeStampColumns[c.Join.PeripheralTimeStamp].Name),
		}
	}
	return nil
}

func (c *Columns) pairNames(pair descriptors.SameUnitPair) []string {
	return append(c.columnNames(pair.First.DataUsed, pair.First.ColumnUsed),
		c.columnNames(pair.Second.DataUsed, pair.Second.ColumnUsed)...)
}

//credit shares value equally among the columns a tag refers to.
func (c *Columns) credit(importances map[string]float64, dataUsed descriptors.DataUsed, col int, value float64) {
	if math.IsNaN(value) {
		return
	}
	names := c.columnNames(dataUsed, col)
	for _, name := range names {
		importances[name] += value / float64(len(names))
	}
}

//ColumnImportances credits the improvement of every split of the subtree to the column it uses.
func (n *Node) ColumnImportances(c *Columns, importances map[string]float64) {
	if n.Split == nil {
		return
	}
	c.credit(importances, n.Split.DataUsed, n.Split.ColumnUsed, n.Improvement)
	if n.Greater != nil {
		n.Greater.ColumnImportances(c, importances)
		n.Smaller.ColumnImportances(c, importances)
	}
}
