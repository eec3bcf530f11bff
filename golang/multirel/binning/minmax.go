package binning

import (
	"github.com/tarstars/relational_features/golang/multirel/reducer"
	"golang.org/x/exp/constraints"
)

//Number is anything a column value can be binned by.
type Number interface {
	constraints.Integer | constraints.Float
}

//MinMax finds the global minimum and maximum of value over ixs on all shards. A shard without
//local data still takes part in the reduction. ok is false when no shard has any value.
func MinMax[T Number](r reducer.Reducer, ixs []int, value func(ix int) T) (min, max T, ok bool) {
	lo, hi := reducer.EmptyMin, reducer.EmptyMax
	for _, ix := range ixs {
		v := float64(value(ix))
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	lo = r.MinFloat(lo)
	hi = r.MaxFloat(hi)
	if lo > hi {
		return min, max, false
	}
	return T(lo), T(hi), true
}
