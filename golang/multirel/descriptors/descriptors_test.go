package descriptors

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tarstars/relational_features/golang/multirel/containers"
)

func TestDataUsedNames(t *testing.T) {
	require.Equal(t, "same_unit_categorical", SameUnitCategorical.String())
	require.Equal(t, "time_stamps_window", TimeStampsWindow.String())
	require.Equal(t, 16, int(NotApplicable))
	require.Equal(t, "DataUsed(17)", DataUsed(17).String())
	require.True(t, XPopulText.IsText())
	require.True(t, SameUnitCategorical.IsCategorical())
	require.False(t, XPeripNumerical.IsCategorical())
}

func TestDataUsedJSON(t *testing.T) {
	var s Split
	require.NoError(t, json.Unmarshal([]byte(`{"app_":true,"categories_used_":[1,2],"column_used_":3,"critical_value_":0.5,"data_used_":5}`), &s))
	require.Equal(t, XPeripCategorical, s.DataUsed)
	require.Equal(t, []int{1, 2}, s.CategoriesUsed)

	require.Error(t, json.Unmarshal([]byte(`{"data_used_":99}`), &s))
}

func TestSplitDeepCopy(t *testing.T) {
	s := NewCategoricalSplit(true, []int{1, 2, 3}, 0, XPeripCategorical)
	c := s.DeepCopy()
	s.CategoriesUsed[0] = 100
	require.Equal(t, []int{1, 2, 3}, c.CategoriesUsed)
	require.Nil(t, NewNumericalSplit(false, 1, 0, XPeripNumerical).DeepCopy().CategoriesUsed)
}

func TestFindSameUnits(t *testing.T) {
	population := containers.NewDataFrame("population", 1).
		AddNumerical(containers.Column{Name: "price", Unit: "money"}, []float64{1}).
		AddNumerical(containers.Column{Name: "age"}, []float64{1})
	peripheral := containers.NewDataFrame("peripheral", 1).
		AddNumerical(containers.Column{Name: "cost", Unit: "money"}, []float64{1}).
		AddNumerical(containers.Column{Name: "weight"}, []float64{1}).
		AddNumerical(containers.Column{Name: "tax", Unit: "money"}, []float64{1}).
		AddCategorical(containers.Column{Name: "city"}, []int{1})

	su := FindSameUnits(population, peripheral)
	require.Empty(t, su.Categorical)
	require.Empty(t, su.Discrete)
	require.Equal(t, []SameUnitPair{
		{First: ColumnToBeAggregated{0, XPopulNumerical}, Second: ColumnToBeAggregated{0, XPeripNumerical}},
		{First: ColumnToBeAggregated{0, XPopulNumerical}, Second: ColumnToBeAggregated{2, XPeripNumerical}},
		{First: ColumnToBeAggregated{0, XPeripNumerical}, Second: ColumnToBeAggregated{2, XPeripNumerical}},
	}, su.Numerical)
	require.Equal(t, "price", su.Numerical[0].Column(population, peripheral).Name)
	require.Equal(t, "cost", su.Numerical[2].Column(population, peripheral).Name)
}

func TestTreeParamsValidate(t *testing.T) {
	require.NoError(t, DefaultTreeParams().Validate())
	p := DefaultTreeParams()
	p.GridFactor = 0
	require.Error(t, p.Validate())
}
