package descriptors

import (
	"encoding/json"
	"fmt"
)

//DataUsed tells which kind of column a split or a value to be aggregated refers to.
//The integer values are the persisted encoding.
type DataUsed int

const (
	SameUnitCategorical DataUsed = iota
	SameUnitDiscrete
	SameUnitDiscreteTs
	SameUnitNumerical
	SameUnitNumericalTs
	XPeripCategorical
	XPeripDiscrete
	XPeripNumerical
	XPeripText
	XPopulCategorical
	XPopulDiscrete
	XPopulNumerical
	XPopulText
	XSubfeature
	TimeStampsDiff
	TimeStampsWindow
	NotApplicable
)

var dataUsedNames = [...]string{
	"same_unit_categorical",
	"same_unit_discrete",
	"same_unit_discrete_ts",
	"same_unit_numerical",
	"same_unit_numerical_ts",
	"x_perip_categorical",
	"x_perip_discrete",
	"x_perip_numerical",
	"x_perip_text",
	"x_popul_categorical",
	"x_popul_discrete",
	"x_popul_numerical",
	"x_popul_text",
	"x_subfeature",
	"time_stamps_diff",
	"time_stamps_window",
	"not_applicable",
}

func (d DataUsed) String() string {
	if d < 0 || int(d) >= len(dataUsedNames) {
		return fmt.Sprintf("DataUsed(%d)", int(d))
	}
	return dataUsedNames[d]
}

//Valid tells whether d is one of the known tags.
func (d DataUsed) Valid() bool {
	return d >= 0 && int(d) < len(dataUsedNames)
}

//IsCategorical tells whether splits on d are category sets.
func (d DataUsed) IsCategorical() bool {
	return d == SameUnitCategorical || d == XPeripCategorical || d == XPopulCategorical
}

//IsText tells whether splits on d are word sets.
func (d DataUsed) IsText() bool {
	return d == XPeripText || d == XPopulText
}

//UnmarshalJSON accepts the integer encoding only and rejects unknown tags.
func (d *DataUsed) UnmarshalJSON(b []byte) error {
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("data used: %w", err)
	}
	if !DataUsed(v).Valid() {
		return fmt.Errorf("unknown data used tag %d", v)
	}
	*d = DataUsed(v)
	return nil
}
