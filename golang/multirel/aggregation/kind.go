package aggregation

import (
	"fmt"
	"strings"
)

//Kind selects the aggregation a tree computes over the activated matches of a population row.
type Kind int

const (
	//Sum adds the values of the activated matches.
	Sum Kind = iota
	//Avg is the mean of the activated values, 0 without any.
	Avg
	//Count is the number of activated matches.
	Count
	//CountDistinct is the number of different activated values.
	CountDistinct
	//CountMinusCountDistinct is the number of activated values that repeat an earlier one.
	CountMinusCountDistinct
	//Max is the greatest activated value, 0 without any.
	Max
	//Min is the smallest activated value, 0 without any.
	Min
	//Median is the middle activated value, the mean of the two middle ones for an even count.
	Median
	//Stddev is the population standard deviation, 0 for fewer than two values.
	Stddev
	//Var is the population variance, 0 for fewer than two values.
	Var
	//Skewness is the third standardized moment, 0 for fewer than two values or no spread.
	Skewness
)

var kindNames = [...]string{
	"SUM",
	"AVG",
	"COUNT",
	"COUNT DISTINCT",
	"COUNT MINUS COUNT DISTINCT",
	"MAX",
	"MIN",
	"MEDIAN",
	"STDDEV",
	"VAR",
	"SKEWNESS",
}

//Kinds lists every supported aggregation.
func Kinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

//ParseKind accepts the SQL style names, case insensitive, with blanks or underscores.
func ParseKind(s string) (Kind, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", " "))
	for i, name := range kindNames {
		if name == normalized {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown aggregation %q", s)
}

//MarshalText writes the SQL style name.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown aggregation %d", int(k))
	}
	return []byte(k.String()), nil
}

//UnmarshalText accepts every spelling ParseKind does.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

//SQLExpression renders the aggregation of a column.
func (k Kind) SQLExpression(column string) string {
	switch k {
	case Count:
		return "COUNT( * )"
	case CountDistinct:
		return fmt.Sprintf("COUNT( DISTINCT %s )", column)
	case CountMinusCountDistinct:
		return fmt.Sprintf("COUNT( %s ) - COUNT( DISTINCT %s )", column, column)
	default:
		return fmt.Sprintf("%s( %s )", k, column)
	}
}

//NeedsValue tells whether the aggregation looks at the value to be aggregated at all.
func (k Kind) NeedsValue() bool {
	return k != Count
}

func (k Kind) needsCount() bool {
	switch k {
	case Avg, Max, Min, Median, Stddev, Var, Skewness:
		return true
	}
	return false
}

func (k Kind) needsSum() bool {
	switch k {
	case Avg, Stddev, Var, Skewness:
		return true
	}
	return false
}

func (k Kind) needsSumSquared() bool {
	switch k {
	case Stddev, Var, Skewness:
		return true
	}
	return false
}

func (k Kind) needsSumCubed() bool {
	return k == Skewness
}

func (k Kind) needsExtremal() bool {
	switch k {
	case Max, Min, Median:
		return true
	}
	return false
}
