package criterion

import (
	"log"
	"sort"

	"github.com/tarstars/relational_features/golang/multirel/reducer"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

const minStorageCapacity = 16

//RSquared is the sum over all targets of the squared correlation between the predictions and the target.
//It is tracked through the sufficient statistics sum(yhat), sum(yhat^2) and sum(yc*yhat) per target,
//yc being the centred target. Stages whose partitions hold fewer than MinNumSamples samples score 0.
type RSquared struct {
	minNumSamples int
	reducer       reducer.Reducer

	yCentered     *mat.Dense
	sumSquaredYc  []float64
	numRowsGlobal float64
	numTargets    int
	statsWidth    int
	stageWidth    int

	current   []float64
	committed []float64

	storage      *tensor.Dense
	storageIx    int
	reducedIx    int
	valuesStored []float64
	maxIx        int
	value        float64
}

//NewRSquared centres the targets (population rows x targets) with the global means. All shards
//must create their criterion together.
func NewRSquared(targets *mat.Dense, minNumSamples int, r reducer.Reducer) *RSquared {
	h, nt := targets.Dims()
	if nt == 0 {
		log.Panicf("at least one target is needed")
	}
	numRows := float64(r.SumInt(h))

	means := make([]float64, nt)
	for j := 0; j < nt; j++ {
		means[j] = floats.Sum(mat.Col(nil, j, targets))
	}
	r.SumFloats(means)
	if numRows > 0 {
		floats.Scale(1/numRows, means)
	}

	yc := mat.NewDense(max(h, 1), nt, nil)
	sumSquared := make([]float64, nt)
	for i := 0; i < h; i++ {
		for j := 0; j < nt; j++ {
			v := targets.At(i, j) - means[j]
			yc.Set(i, j, v)
			sumSquared[j] += v * v
		}
	}
	r.SumFloats(sumSquared)

	c := &RSquared{
		minNumSamples: minNumSamples,
		reducer:       r,
		yCentered:     yc,
		sumSquaredYc:  sumSquared,
		numRowsGlobal: numRows,
		numTargets:    nt,
		statsWidth:    2 + nt,
		stageWidth:    2 + nt + 2,
	}
	c.current = make([]float64, c.statsWidth)
	c.committed = make([]float64, c.statsWidth)
	c.SetStorageSize(minStorageCapacity)
	return c
}

func (c *RSquared) capacity() int {
	if c.storage == nil {
		return 0
	}
	return c.storage.Shape()[0]
}

func (c *RSquared) data() []float64 {
	return c.storage.Data().([]float64)
}

//SetStorageSize makes sure at least n stages fit without reallocation.
func (c *RSquared) SetStorageSize(n int) {
	if n <= c.capacity() {
		return
	}
	grown := tensor.New(tensor.WithShape(n, c.stageWidth), tensor.Of(tensor.Float64))
	if c.storage != nil {
		copy(grown.Data().([]float64), c.data()[:c.storageIx*c.stageWidth])
	}
	c.storage = grown
}

func (c *RSquared) ResetStorageSize() {
	c.storageIx = 0
	c.reducedIx = 0
	c.valuesStored = c.valuesStored[:0]
	c.maxIx = 0
}

func (c *RSquared) StorageIx() int {
	return c.storageIx
}

func (c *RSquared) InitYhat(yhat []float64, rows []int) {
	for i := range c.current {
		c.current[i] = 0
	}
	for _, row := range rows {
		v := yhat[row]
		c.current[0] += v
		c.current[1] += v * v
		for j := 0; j < c.numTargets; j++ {
			c.current[2+j] += c.yCentered.At(row, j) * v
		}
	}
}

func (c *RSquared) UpdateSamples(rows []int, newValues, oldValues []float64) {
	for _, row := range rows {
		n, o := newValues[row], oldValues[row]
		d := n - o
		c.current[0] += d
		c.current[1] += n*n - o*o
		for j := 0; j < c.numTargets; j++ {
			c.current[2+j] += c.yCentered.At(row, j) * d
		}
	}
}

func (c *RSquared) StoreCurrentStage(numSmaller, numGreater int) {
	if c.storageIx >= c.capacity() {
		c.SetStorageSize(max(2*c.capacity(), minStorageCapacity))
	}
	stage := c.data()[c.storageIx*c.stageWidth : (c.storageIx+1)*c.stageWidth]
	copy(stage, c.current)
	stage[c.statsWidth] = float64(numSmaller)
	stage[c.statsWidth+1] = float64(numGreater)
	c.storageIx++
}

//Evaluate reduces the stages stored since the last call over all shards and scores them.
func (c *RSquared) Evaluate() {
	if c.reducedIx == c.storageIx {
		return
	}
	block := c.data()[c.reducedIx*c.stageWidth : c.storageIx*c.stageWidth]
	c.reducer.SumFloats(block)
	for i := c.reducedIx; i < c.storageIx; i++ {
		stage := c.data()[i*c.stageWidth : (i+1)*c.stageWidth]
		numSmaller, numGreater := stage[c.statsWidth], stage[c.statsWidth+1]
		if numSmaller < float64(c.minNumSamples) || numGreater < float64(c.minNumSamples) {
			c.valuesStored = append(c.valuesStored, 0)
			continue
		}
		c.valuesStored = append(c.valuesStored, c.calculate(stage[:c.statsWidth]))
	}
	c.reducedIx = c.storageIx
}

func (c *RSquared) calculate(stats []float64) float64 {
	sumYhat, sumYhatSquared := stats[0], stats[1]
	varYhat := c.numRowsGlobal*sumYhatSquared - sumYhat*sumYhat
	if varYhat <= 0 {
		return 0
	}
	result := 0.0
	for j := 0; j < c.numTargets; j++ {
		if c.sumSquaredYc[j] == 0 {
			continue
		}
		s := stats[2+j]
		result += c.numRowsGlobal * (s / varYhat) * (s / c.sumSquaredYc[j])
	}
	return result
}

func (c *RSquared) FindMaximum() int {
	c.Evaluate()
	c.maxIx = 0
	for i, v := range c.valuesStored {
		if v > c.valuesStored[c.maxIx] {
			c.maxIx = i
		}
	}
	return c.maxIx
}

func (c *RSquared) ValuesStored(i int) float64 {
	c.Evaluate()
	if i < 0 || i >= len(c.valuesStored) {
		log.Panicf("stage %d out of %d stored stages", i, len(c.valuesStored))
	}
	return c.valuesStored[i]
}

//Commit makes the current statistics permanent. The value becomes the score of the last stored stage.
func (c *RSquared) Commit() {
	copy(c.committed, c.current)
	c.Evaluate()
	if c.storageIx > 0 {
		last := c.data()[(c.storageIx-1)*c.stageWidth : c.storageIx*c.stageWidth]
		c.value = c.calculate(last[:c.statsWidth])
	}
}

func (c *RSquared) RevertToCommit() {
	copy(c.current, c.committed)
}

func (c *RSquared) Value() float64 {
	return c.value
}

func (c *RSquared) Argsort(begin, end int) []int {
	c.Evaluate()
	if begin < 0 || end > len(c.valuesStored) || begin > end {
		log.Panicf("cannot argsort stages [%d, %d) out of %d", begin, end, len(c.valuesStored))
	}
	ixs := make([]int, end-begin)
	for i := range ixs {
		ixs[i] = i
	}
	values := c.valuesStored[begin:end]
	sort.SliceStable(ixs, func(a, b int) bool {
		return values[ixs[a]] > values[ixs[b]]
	})
	return ixs
}
