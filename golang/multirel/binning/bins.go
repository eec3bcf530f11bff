package binning

import (
	"math"

	"github.com/tarstars/relational_features/golang/multirel/helpers"
	"github.com/tarstars/relational_features/golang/multirel/reducer"
)

//MaxWindowBins limits the number of time windows tried for one node.
const MaxWindowBins = 1000000

//Bins holds matches binned in ascending order of a numerical value.
//Bin k is Ixs[Indptr[k]:Indptr[k+1]], its upper boundary is CriticalValues[k] and the matches
//behind the last bin have null values. An empty Indptr means there is nothing to try.
type Bins struct {
	Ixs            []int
	Indptr         []int
	CriticalValues []float64
}

//NumBins is the number of bins.
func (b Bins) NumBins() int {
	if len(b.Indptr) == 0 {
		return 0
	}
	return len(b.Indptr) - 1
}

//NonNull is the number of matches in the bins.
func (b Bins) NonNull() int {
	if len(b.Indptr) == 0 {
		return 0
	}
	return b.Indptr[len(b.Indptr)-1]
}

//Nulls returns the matches behind the last bin.
func (b Bins) Nulls() []int {
	return b.Ixs[b.NonNull():]
}

//NumBins derives the number of bins from the global number of non-null samples.
func NumBins(r reducer.Reducer, gridFactor float64, localNonNull int) int {
	n := r.SumInt(localNonNull)
	numBins := int(gridFactor * math.Sqrt(float64(n)))
	if numBins < 1 {
		return 1
	}
	return numBins
}

//fill distributes ixs[:nanBegin] to the bins returned by locate in counting sort order and
//appends the nulls.
func fill(numBins int, ixs []int, nanBegin int, locate func(ix int) int) Bins {
	indptr := make([]int, numBins+1)
	where := make([]int, nanBegin)
	for i, ix := range ixs[:nanBegin] {
		k := locate(ix)
		helpers.Assert(k >= 0 && k < numBins, "bin %d out of range [0, %d)", k, numBins)
		where[i] = k
		indptr[k+1]++
	}
	for k := 1; k <= numBins; k++ {
		indptr[k] += indptr[k-1]
	}
	bins := make([]int, len(ixs))
	counts := make([]int, numBins)
	for i, ix := range ixs[:nanBegin] {
		k := where[i]
		bins[indptr[k]+counts[k]] = ix
		counts[k]++
	}
	copy(bins[nanBegin:], ixs[nanBegin:])
	return Bins{Ixs: bins, Indptr: indptr}
}

//byThresholds bins by ascending upper boundaries: bin 0 takes v <= t[0] and bin k takes
//t[k-1] < v <= t[k]. guess only has to be close.
func byThresholds(thresholds []float64, ixs []int, nanBegin int, value func(int) float64, guess func(float64) int) Bins {
	last := len(thresholds) - 1
	b := fill(len(thresholds), ixs, nanBegin, func(ix int) int {
		v := value(ix)
		k := guess(v)
		if k < 0 {
			k = 0
		}
		if k > last {
			k = last
		}
		for k > 0 && v <= thresholds[k-1] {
			k--
		}
		for k < last && v > thresholds[k] {
			k++
		}
		return k
	})
	b.CriticalValues = thresholds
	return b
}

//Numerical bins ixs[:nanBegin] into numBins+1 bins of equal width between the global min and max.
//Bin 0 holds the values equal to min, the last boundary is exactly max. ixs[nanBegin:] are nulls.
func Numerical(min, max float64, numBins int, ixs []int, nanBegin int, value func(int) float64) Bins {
	if min >= max || numBins <= 0 {
		return Bins{Ixs: ixs}
	}
	step := (max - min) / float64(numBins)
	thresholds := make([]float64, numBins+1)
	for k := range thresholds {
		thresholds[k] = min + float64(k)*step
	}
	thresholds[numBins] = max
	return byThresholds(thresholds, ixs, nanBegin, value, func(v float64) int {
		return int(math.Ceil((v - min) / step))
	})
}

//Discrete bins integer valued columns. It uses unit steps from floor(min) when the range is small
//enough and integer steps of equal width otherwise.
func Discrete(min, max float64, numBins int, ixs []int, nanBegin int, value func(int) float64) Bins {
	if min >= max || numBins <= 0 {
		return Bins{Ixs: ixs}
	}
	lo, hi := math.Floor(min), math.Ceil(max)
	step := 1.0
	if hi-lo+1 > float64(numBins) {
		step = math.Ceil((hi - lo) / float64(numBins))
	}
	count := int(math.Ceil((hi-lo)/step)) + 1
	thresholds := make([]float64, count)
	for k := range thresholds {
		thresholds[k] = lo + float64(k)*step
	}
	return byThresholds(thresholds, ixs, nanBegin, value, func(v float64) int {
		return int(math.Ceil((v - lo) / step))
	})
}

//Window bins time stamp differences into windows of width dt. Window k is
//(CriticalValues[k]-dt, CriticalValues[k]], the topmost window ends at max.
//ok is false when there would be more than MaxWindowBins windows.
func Window(min, max, dt float64, ixs []int, nanBegin int, value func(int) float64) (b Bins, ok bool) {
	helpers.Assert(dt > 0, "window width must be positive, got %v", dt)
	if min >= max {
		return Bins{Ixs: ixs}, true
	}
	span := (max - min) / dt
	if span+1 > MaxWindowBins {
		return Bins{}, false
	}
	numBins := int(span) + 1
	thresholds := make([]float64, numBins)
	for k := range thresholds {
		thresholds[k] = max - float64(numBins-1-k)*dt
	}
	inWindow := func(v float64, k int) bool {
		return k >= 0 && k < numBins && thresholds[k]-dt < v && v <= thresholds[k]
	}
	b = fill(numBins, ixs, nanBegin, func(ix int) int {
		v := value(ix)
		k := numBins - 1 - int((max-v)/dt)
		switch {
		case inWindow(v, k):
		case inWindow(v, k-1):
			k--
		case inWindow(v, k+1):
			k++
		}
		if k < 0 {
			k = 0
		}
		return k
	})
	b.CriticalValues = thresholds
	return b, true
}
