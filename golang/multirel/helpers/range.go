package helpers

//IntIterable is the interface for iteration over a collection of integers.
type IntIterable interface {
	HasNext() bool
	GetNext() int
}

//Range is an iterator over half interval [begin, end) with the step step.
//A negative step walks the interval downwards, so NewRange(n-1, -1, -1) visits n-1, ..., 0.
type Range struct {
	end, step, pos int
}

//NewRange initializes a new iterator over a half interval.
func NewRange(start, end, step int) *Range {
	if step == 0 {
		Panicf("range step must not be zero")
	}
	return &Range{end: end, step: step, pos: start}
}

//Ascending iterates over 0, 1, ..., n-1.
func Ascending(n int) *Range {
	return NewRange(0, n, 1)
}

//Descending iterates over n-1, n-2, ..., 0.
func Descending(n int) *Range {
	return NewRange(n-1, -1, -1)
}

//GetNext returns the next element from the iterator and moves iterator to the next position.
func (r *Range) GetNext() int {
	val := r.pos
	r.pos += r.step
	return val
}

//HasNext checks whether there are more values in the iterator.
func (r *Range) HasNext() bool {
	if r.step > 0 {
		return r.pos < r.end
	}
	return r.pos > r.end
}
