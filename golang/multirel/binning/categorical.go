package binning

import (
	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/reducer"
)

//Categorical bins ixs[:nanBegin] by category in ascending order, the nulls ixs[nanBegin:] trail
//behind the last category. The returned categories are those present on at least one shard.
func Categorical(r reducer.Reducer, ixs []int, nanBegin int, value func(int) int) (containers.CategoryIndex, []int) {
	min, max, ok := MinMax(r, ixs[:nanBegin], value)
	if !ok {
		return containers.NewCategoryIndex(ixs, nil, 0), nil
	}
	b := fill(max-min+1, ixs, nanBegin, func(ix int) int { return value(ix) - min })

	included := make([]int8, max-min+1)
	for k := range included {
		if b.Indptr[k+1] > b.Indptr[k] {
			included[k] = 1
		}
	}
	r.MaxInt8s(included)
	var categories []int
	for k, inc := range included {
		if inc == 1 {
			categories = append(categories, min+k)
		}
	}
	return containers.NewCategoryIndex(b.Ixs, b.Indptr, min), categories
}
