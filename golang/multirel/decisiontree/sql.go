package decisiontree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/descriptors"
	"github.com/tarstars/relational_features/golang/multirel/helpers"
)

const (
	populationAlias = "t1"
	peripheralAlias = "t2"
)

func quote(alias, name string) string {
	return fmt.Sprintf(`%s."%s"`, alias, strings.ReplaceAll(name, `"`, `""`))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (c *Columns) timeStampDiffSQL() string {
	pop, per := c.Input.Population, c.Input.Peripheral
	if c.Join.PopulationTimeStamp < 0 || c.Join.PeripheralTimeStamp < 0 {
		return "NULL"
	}
	return fmt.Sprintf("( %s - %s )",
		quote(populationAlias, pop.TimeStampColumns[c.Join.PopulationTimeStamp].Name),
		quote(peripheralAlias, per.TimeStampColumns[c.Join.PeripheralTimeStamp].Name))
}

//SQLName renders a column as an SQL expression. Same unit columns are rendered as second - first.
func (c *Columns) SQLName(dataUsed descriptors.DataUsed, col int) string {
	pop, per := c.Input.Population, c.Input.Peripheral
	switch dataUsed {
	case descriptors.XPeripNumerical:
		return quote(peripheralAlias, per.NumericalColumns[col].Name)
	case descriptors.XPeripDiscrete:
		return quote(peripheralAlias, per.DiscreteColumns[col].Name)
	case descriptors.XPeripCategorical:
		return quote(peripheralAlias, per.CategoricalColumns[col].Name)
	case descriptors.XPeripText:
		return quote(peripheralAlias, per.Text[col].Name)
	case descriptors.XPopulNumerical:
		return quote(populationAlias, pop.NumericalColumns[col].Name)
	case descriptors.XPopulDiscrete:
		return quote(populationAlias, pop.DiscreteColumns[col].Name)
	case descriptors.XPopulCategorical:
		return quote(populationAlias, pop.CategoricalColumns[col].Name)
	case descriptors.XPopulText:
		return quote(populationAlias, pop.Text[col].Name)
	case descriptors.XSubfeature:
		return quote(peripheralAlias, fmt.Sprintf("subfeature_%d", col))
	case descriptors.SameUnitNumerical, descriptors.SameUnitNumericalTs:
		return c.differenceSQL(c.SameUnits.Numerical[col])
	case descriptors.SameUnitDiscrete, descriptors.SameUnitDiscreteTs:
		return c.differenceSQL(c.SameUnits.Discrete[col])
	case descriptors.TimeStampsDiff, descriptors.TimeStampsWindow:
		return c.timeStampDiffSQL()
	}
	helpers.Panicf("%v has no SQL name", dataUsed)
	return ""
}

func (c *Columns) differenceSQL(pair descriptors.SameUnitPair) string {
	return fmt.Sprintf("( %s - %s )",
		c.SQLName(pair.Second.DataUsed, pair.Second.ColumnUsed),
		c.SQLName(pair.First.DataUsed, pair.First.ColumnUsed))
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

func likePatterns(name string, text *containers.TextColumn, words []int, negate bool) string {
	op, glue := "LIKE", " OR "
	if negate {
		op, glue = "NOT LIKE", " AND "
	}
	parts := make([]string, len(words))
	for i, w := range words {
		word := strings.ReplaceAll(text.Vocabulary[w], "'", "''")
		parts[i] = fmt.Sprintf("%s %s '%%%s%%'", name, op, word)
	}
	return "( " + strings.Join(parts, glue) + " )"
}

//conditionSQL renders one side of the split. The side null values are routed to during fit gets
//an IS NULL clause.
func (n *Node) conditionSQL(c *Columns, greater bool) string {
	s := n.Split
	switch {
	case s.DataUsed == descriptors.SameUnitCategorical:
		pair := c.SameUnits.Categorical[s.ColumnUsed]
		first := sqlCategoricalName(c, pair.First)
		second := sqlCategoricalName(c, pair.Second)
		if greater {
			return fmt.Sprintf("( %s != %s OR %s IS NULL OR %s IS NULL )", first, second, first, second)
		}
		return fmt.Sprintf("( %s = %s )", first, second)

	case s.DataUsed.IsCategorical():
		name := c.SQLName(s.DataUsed, s.ColumnUsed)
		if greater {
			return fmt.Sprintf("( %s NOT IN ( %s ) OR %s IS NULL )", name, joinInts(s.CategoriesUsed), name)
		}
		return fmt.Sprintf("( %s IN ( %s ) )", name, joinInts(s.CategoriesUsed))

	case s.DataUsed.IsText():
		return likePatterns(c.SQLName(s.DataUsed, s.ColumnUsed), c.Text(s.DataUsed, s.ColumnUsed), s.CategoriesUsed, greater)

	case s.DataUsed == descriptors.TimeStampsWindow:
		diff := c.timeStampDiffSQL()
		lower := formatFloat(s.CriticalValue - c.DeltaT)
		upper := formatFloat(s.CriticalValue)
		if greater {
			return fmt.Sprintf("( %s <= %s OR %s > %s OR %s IS NULL )", diff, lower, diff, upper, diff)
		}
		return fmt.Sprintf("( %s > %s AND %s <= %s )", diff, lower, diff, upper)
	}

	name := c.SQLName(s.DataUsed, s.ColumnUsed)
	op := "<="
	if greater {
		op = ">"
	}
	nullsHere := greater != n.greaterActivated()
	if nullsHere {
		return fmt.Sprintf("( %s %s %s OR %s IS NULL )", name, op, formatFloat(s.CriticalValue), name)
	}
	return fmt.Sprintf("( %s %s %s )", name, op, formatFloat(s.CriticalValue))
}

func sqlCategoricalName(c *Columns, col descriptors.ColumnToBeAggregated) string {
	return c.SQLName(col.DataUsed, col.ColumnUsed)
}

func appendCondition(prefix, condition string) string {
	if prefix == "" {
		return condition
	}
	return prefix + " AND " + condition
}

//ToSQL appends one condition per activated leaf of the subtree. prefix holds the conditions of
//the path leading to n.
func (n *Node) ToSQL(c *Columns, prefix string, conditions []string) []string {
	if n.Split == nil {
		if n.IsActivated && prefix != "" {
			conditions = append(conditions, prefix)
		}
		return conditions
	}
	greater := appendCondition(prefix, n.conditionSQL(c, true))
	smaller := appendCondition(prefix, n.conditionSQL(c, false))
	if n.Greater == nil {
		if n.greaterActivated() {
			return append(conditions, greater)
		}
		return append(conditions, smaller)
	}
	conditions = n.Greater.ToSQL(c, greater, conditions)
	return n.Smaller.ToSQL(c, smaller, conditions)
}
