package reducer

import (
	"log"
	"math"
	"sync"
)

type op int

const (
	opSumInt op = iota
	opSumFloats
	opMinFloat
	opMaxFloat
	opMinInt
	opMaxInt
	opMaxInt8s
)

var opNames = [...]string{"SumInt", "SumFloats", "MinFloat", "MaxFloat", "MinInt", "MaxInt", "MaxInt8s"}

func (o op) String() string {
	return opNames[o]
}

//Group simulates n shards inside one process. Every member blocks in a collective call until all
//members have issued the same call, then all of them receive the combined result.
//Members issuing different calls in the same round is a programming error and panics.
type Group struct {
	size int

	mu         sync.Mutex
	cond       *sync.Cond
	generation int
	arrived    int
	current    op
	floats     []float64
	ints       []int8
	scalar     float64
	integer    int
	result     roundResult
}

type roundResult struct {
	scalar  float64
	integer int
	floats  []float64
	ints    []int8
}

//NewGroup creates a group of size shards.
func NewGroup(size int) *Group {
	if size <= 0 {
		log.Panicf("group size must be positive, got %d", size)
	}
	g := &Group{size: size}
	g.cond = sync.NewCond(&g.mu)
	return g
}

//Size is the number of members.
func (g *Group) Size() int {
	return g.size
}

//Member returns the reducer used by the shard with the given rank.
func (g *Group) Member(rank int) Reducer {
	if rank < 0 || rank >= g.size {
		log.Panicf("rank %d out of group of size %d", rank, g.size)
	}
	return &member{group: g, rank: rank}
}

func (g *Group) reset(o op) {
	g.current = o
	g.floats = nil
	g.ints = nil
	switch o {
	case opMinFloat:
		g.scalar = math.Inf(1)
	case opMaxFloat:
		g.scalar = math.Inf(-1)
	default:
		g.scalar = 0
	}
	switch o {
	case opMinInt:
		g.integer = math.MaxInt
	case opMaxInt:
		g.integer = math.MinInt
	default:
		g.integer = 0
	}
}

func (g *Group) combine(o op, scalar float64, integer int, floats []float64, ints []int8) {
	switch o {
	case opSumInt:
		g.integer += integer
	case opMinFloat:
		g.scalar = math.Min(g.scalar, scalar)
	case opMaxFloat:
		g.scalar = math.Max(g.scalar, scalar)
	case opMinInt:
		if integer < g.integer {
			g.integer = integer
		}
	case opMaxInt:
		if integer > g.integer {
			g.integer = integer
		}
	case opSumFloats:
		if g.floats == nil {
			g.floats = make([]float64, len(floats))
		}
		if len(floats) != len(g.floats) {
			log.Panicf("SumFloats called with lengths %d and %d", len(g.floats), len(floats))
		}
		for i, v := range floats {
			g.floats[i] += v
		}
	case opMaxInt8s:
		if g.ints == nil {
			g.ints = append([]int8(nil), ints...)
			return
		}
		if len(ints) != len(g.ints) {
			log.Panicf("MaxInt8s called with lengths %d and %d", len(g.ints), len(ints))
		}
		for i, v := range ints {
			if v > g.ints[i] {
				g.ints[i] = v
			}
		}
	}
}

func (g *Group) collective(o op, scalar float64, integer int, floats []float64, ints []int8) roundResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.arrived == 0 {
		g.reset(o)
	} else if g.current != o {
		log.Panicf("misaligned shards: %v issued while %v is pending", o, g.current)
	}
	g.combine(o, scalar, integer, floats, ints)
	g.arrived++

	generation := g.generation
	if g.arrived == g.size {
		g.result = roundResult{scalar: g.scalar, integer: g.integer, floats: g.floats, ints: g.ints}
		g.arrived = 0
		g.generation++
		g.cond.Broadcast()
		return g.result
	}
	for generation == g.generation {
		g.cond.Wait()
	}
	return g.result
}

type member struct {
	group *Group
	rank  int
}

func (m *member) SumInt(v int) int {
	return m.group.collective(opSumInt, 0, v, nil, nil).integer
}

func (m *member) SumFloats(v []float64) {
	copy(v, m.group.collective(opSumFloats, 0, 0, v, nil).floats)
}

func (m *member) MinFloat(v float64) float64 {
	return m.group.collective(opMinFloat, v, 0, nil, nil).scalar
}

func (m *member) MaxFloat(v float64) float64 {
	return m.group.collective(opMaxFloat, v, 0, nil, nil).scalar
}

func (m *member) MinInt(v int) int {
	return m.group.collective(opMinInt, 0, v, nil, nil).integer
}

func (m *member) MaxInt(v int) int {
	return m.group.collective(opMaxInt, 0, v, nil, nil).integer
}

func (m *member) MaxInt8s(v []int8) {
	copy(v, m.group.collective(opMaxInt8s, 0, 0, nil, v).ints)
}
