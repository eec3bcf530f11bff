package containers

//CategoryIndex gives access to the matches of one category. The bins are ordered by category,
//matches with a null category (if any) trail behind the last category.
type CategoryIndex struct {
	bins    []int
	indptr  []int
	minimum int
}

//NewCategoryIndex wraps bins ordered by category. indptr[c-minimum] and indptr[c-minimum+1]
//delimit the matches of category c.
func NewCategoryIndex(bins, indptr []int, minimum int) CategoryIndex {
	return CategoryIndex{bins: bins, indptr: indptr, minimum: minimum}
}

//Size returns the number of category slots of the index. It is zero when there are no
//categories on any shard.
func (ci CategoryIndex) Size() int {
	if len(ci.indptr) == 0 {
		return 0
	}
	return len(ci.indptr) - 1
}

//Range returns the indices of all matches of the category.
func (ci CategoryIndex) Range(category int) []int {
	ix := category - ci.minimum
	if ix < 0 || ix+1 >= len(ci.indptr) {
		return nil
	}
	return ci.bins[ci.indptr[ix]:ci.indptr[ix+1]]
}

//All returns all matches of the index, including those with a null category.
func (ci CategoryIndex) All() []int {
	return ci.bins
}
