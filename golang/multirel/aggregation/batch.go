package aggregation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

//Aggregate computes the aggregation of values from scratch. It is used to apply fitted trees and
//yields the same numbers as the incremental engine. Empty inputs and undefined results give 0.
func Aggregate(kind Kind, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var result float64
	switch kind {
	case Sum:
		result = floats.Sum(values)
	case Count:
		result = float64(len(values))
	case Avg:
		result = stat.Mean(values, nil)
	case Var, Stddev, Skewness:
		mean := stat.Mean(values, nil)
		thirdMoment := 0.0
		if kind == Skewness {
			thirdMoment = stat.Moment(3, values, nil)
		}
		result = dispersion(kind, float64(len(values)), mean, stat.Moment(2, values, nil), thirdMoment)
	case Max:
		result = floats.Max(values)
	case Min:
		result = floats.Min(values)
	case Median:
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		n := len(sorted)
		if n%2 == 1 {
			result = sorted[n/2]
		} else {
			result = (sorted[n/2-1] + sorted[n/2]) / 2
		}
	case CountDistinct, CountMinusCountDistinct:
		distinct := make(map[float64]struct{}, len(values))
		for _, v := range values {
			distinct[v] = struct{}{}
		}
		result = float64(len(distinct))
		if kind == CountMinusCountDistinct {
			result = float64(len(values)) - result
		}
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}
	return result
}

//varianceTolerance is the relative rounding error of a variance computed from power sums.
const varianceTolerance = 1e-10

//dispersion computes Var, Stddev or Skewness of n values from their mean and central moments.
//Fewer than two values, or a variance within rounding error of zero, give 0.
func dispersion(kind Kind, n, mean, variance, thirdMoment float64) float64 {
	if n <= 1 || variance <= varianceTolerance*math.Max(1, mean*mean) {
		return 0
	}
	switch kind {
	case Var:
		return variance
	case Stddev:
		return math.Sqrt(variance)
	case Skewness:
		return thirdMoment / (variance * math.Sqrt(variance))
	}
	return 0
}
