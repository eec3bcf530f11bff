package binning

import (
	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/reducer"
)

//Words returns the ascending ids of all words occurring in the text rows of the matches on any shard.
//rownum returns the text row of a match.
func Words(r reducer.Reducer, text *containers.TextColumn, ixs []int, rownum func(int) int) []int {
	included := make([]int8, text.VocabularySize())
	for _, ix := range ixs {
		for _, w := range text.Range(rownum(ix)) {
			included[w] = 1
		}
	}
	r.MaxInt8s(included)
	var words []int
	for w, inc := range included {
		if inc == 1 {
			words = append(words, w)
		}
	}
	return words
}

//Rownum bins the matches by their text row and wraps the result in a WordIndex.
func Rownum(text *containers.TextColumn, ixs []int, rownum func(int) int) containers.WordIndex {
	b := fill(text.NumRows(), ixs, len(ixs), rownum)
	return containers.NewWordIndex(b.Ixs, b.Indptr, text.RowIndex())
}

//FirstWord bins every match under the first of sortedWords its text contains. The union of the
//ranges of a prefix of sortedWords is then exactly the set of matches containing any word of
//the prefix. Matches containing none of the words trail behind the last bin.
func FirstWord(text *containers.TextColumn, sortedWords []int, ixs []int, rownum func(int) int) containers.CategoryIndex {
	firstWord := make(map[int]int)
	wordOf := func(ix int) int {
		row := rownum(ix)
		w, ok := firstWord[row]
		if !ok {
			w = -1
			for _, candidate := range sortedWords {
				if text.Contains(row, candidate) {
					w = candidate
					break
				}
			}
			firstWord[row] = w
		}
		return w
	}

	sorted := append([]int(nil), ixs...)
	nanBegin := 0
	for i, ix := range sorted {
		if wordOf(ix) >= 0 {
			sorted[i], sorted[nanBegin] = sorted[nanBegin], sorted[i]
			nanBegin++
		}
	}
	b := fill(text.VocabularySize(), sorted, nanBegin, wordOf)
	return containers.NewCategoryIndex(b.Ixs, b.Indptr, 0)
}
