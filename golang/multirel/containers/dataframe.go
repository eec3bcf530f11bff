package containers

import (
	"log"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

//Column describes one column of a data frame.
type Column struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

//ComparisonOnly tells whether the column may only be used inside same-unit comparisons.
func (c Column) ComparisonOnly() bool {
	return strings.Contains(c.Unit, "comparison only")
}

//IsTimeStamp tells whether the unit marks the column as a time stamp.
func (c Column) IsTimeStamp() bool {
	return strings.Contains(c.Unit, "time stamp") && !strings.Contains(c.Name, "$ROWID")
}

//DataFrame is one table of the relational data set. Numerical, discrete and time stamp columns
//are stored as rows x columns matrices, categorical and join key columns as one slice per column.
type DataFrame struct {
	Name string

	Numericals       *mat.Dense
	NumericalColumns []Column

	Discretes       *mat.Dense
	DiscreteColumns []Column

	Categoricals       [][]int
	CategoricalColumns []Column

	JoinKeys       [][]int
	JoinKeyColumns []Column

	TimeStamps       *mat.Dense
	TimeStampColumns []Column

	Text []*TextColumn

	nrows int
}

//NewDataFrame creates an empty data frame with nrows rows. Columns are added with the Add* methods.
func NewDataFrame(name string, nrows int) *DataFrame {
	return &DataFrame{Name: name, nrows: nrows}
}

//NumRows returns the number of rows of the data frame.
func (df *DataFrame) NumRows() int {
	return df.nrows
}

func (df *DataFrame) checkLength(kind string, n int) {
	if n != df.nrows {
		log.Panicf("%s column of %s has %d rows, expected %d", kind, df.Name, n, df.nrows)
	}
}

func appendColumn(m *mat.Dense, values []float64) *mat.Dense {
	if m == nil {
		return mat.NewDense(len(values), 1, append([]float64(nil), values...))
	}
	h, w := m.Dims()
	grown := mat.NewDense(h, w+1, nil)
	grown.Slice(0, h, 0, w).(*mat.Dense).Copy(m)
	grown.SetCol(w, values)
	return grown
}

//AddNumerical appends a numerical column.
func (df *DataFrame) AddNumerical(col Column, values []float64) *DataFrame {
	df.checkLength("numerical", len(values))
	df.Numericals = appendColumn(df.Numericals, values)
	df.NumericalColumns = append(df.NumericalColumns, col)
	return df
}

//AddDiscrete appends a discrete (integer valued, stored as float) column.
func (df *DataFrame) AddDiscrete(col Column, values []float64) *DataFrame {
	df.checkLength("discrete", len(values))
	df.Discretes = appendColumn(df.Discretes, values)
	df.DiscreteColumns = append(df.DiscreteColumns, col)
	return df
}

//AddCategorical appends a categorical column. Negative values are null.
func (df *DataFrame) AddCategorical(col Column, values []int) *DataFrame {
	df.checkLength("categorical", len(values))
	df.Categoricals = append(df.Categoricals, values)
	df.CategoricalColumns = append(df.CategoricalColumns, col)
	return df
}

//AddJoinKey appends a join key column.
func (df *DataFrame) AddJoinKey(col Column, values []int) *DataFrame {
	df.checkLength("join key", len(values))
	df.JoinKeys = append(df.JoinKeys, values)
	df.JoinKeyColumns = append(df.JoinKeyColumns, col)
	return df
}

//AddTimeStamp appends a time stamp column.
func (df *DataFrame) AddTimeStamp(col Column, values []float64) *DataFrame {
	df.checkLength("time stamp", len(values))
	df.TimeStamps = appendColumn(df.TimeStamps, values)
	df.TimeStampColumns = append(df.TimeStampColumns, col)
	return df
}

//AddText appends a tokenised text column.
func (df *DataFrame) AddText(text *TextColumn) *DataFrame {
	df.checkLength("text", text.NumRows())
	df.Text = append(df.Text, text)
	return df
}

func (df *DataFrame) NumNumericals() int   { return len(df.NumericalColumns) }
func (df *DataFrame) NumDiscretes() int    { return len(df.DiscreteColumns) }
func (df *DataFrame) NumCategoricals() int { return len(df.CategoricalColumns) }
func (df *DataFrame) NumText() int         { return len(df.Text) }

//Numerical returns the value of a numerical column.
func (df *DataFrame) Numerical(row, col int) float64 {
	return df.Numericals.At(row, col)
}

//Discrete returns the value of a discrete column.
func (df *DataFrame) Discrete(row, col int) float64 {
	return df.Discretes.At(row, col)
}

//Categorical returns the value of a categorical column.
func (df *DataFrame) Categorical(row, col int) int {
	return df.Categoricals[col][row]
}

//TimeStamp returns the value of a time stamp column, NaN when the frame has no such column.
func (df *DataFrame) TimeStamp(row, col int) float64 {
	if df.TimeStamps == nil || col < 0 || col >= len(df.TimeStampColumns) {
		return math.NaN()
	}
	return df.TimeStamps.At(row, col)
}
