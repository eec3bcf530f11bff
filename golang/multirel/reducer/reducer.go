package reducer

import "math"

//Reducer is the collective reduction capability shared by all shards that fit the same tree.
//Every shard must issue the same sequence of calls, even when its local data is empty.
type Reducer interface {
	SumInt(v int) int
	SumFloats(v []float64)
	MinFloat(v float64) float64
	MaxFloat(v float64) float64
	MinInt(v int) int
	MaxInt(v int) int
	MaxInt8s(v []int8)
}

//Local is the reducer of a single shard: every reduction is the identity.
type Local struct{}

func (Local) SumInt(v int) int           { return v }
func (Local) SumFloats([]float64)        {}
func (Local) MinFloat(v float64) float64 { return v }
func (Local) MaxFloat(v float64) float64 { return v }
func (Local) MinInt(v int) int           { return v }
func (Local) MaxInt(v int) int           { return v }
func (Local) MaxInt8s([]int8)            {}

//Empty values a shard without local data contributes to min and max reductions.
var (
	EmptyMin = math.Inf(1)
	EmptyMax = math.Inf(-1)
)
