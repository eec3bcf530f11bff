package containers

import (
	"log"
	"sort"
	"sync"
)

//TextColumn holds a tokenised text column in compressed row storage: the sorted,
//deduplicated word ids of row r are Words[Indptr[r]:Indptr[r+1]].
type TextColumn struct {
	Column
	Indptr     []int
	Words      []int
	Vocabulary []string

	rowIndexOnce sync.Once
	rowIndex     *RowIndex
}

//NewTextColumn builds a text column from the word ids of every row. The word ids of every row
//are sorted and deduplicated.
func NewTextColumn(col Column, vocabulary []string, rows [][]int) *TextColumn {
	tc := &TextColumn{Column: col, Indptr: make([]int, 1, len(rows)+1), Vocabulary: vocabulary}
	for _, row := range rows {
		words := append([]int(nil), row...)
		sort.Ints(words)
		for i, w := range words {
			if w < 0 || w >= len(vocabulary) {
				log.Panicf("word id %d out of vocabulary of size %d", w, len(vocabulary))
			}
			if i > 0 && words[i-1] == w {
				continue
			}
			tc.Words = append(tc.Words, w)
		}
		tc.Indptr = append(tc.Indptr, len(tc.Words))
	}
	return tc
}

//NumRows is the number of rows of the text column.
func (tc *TextColumn) NumRows() int {
	return len(tc.Indptr) - 1
}

//VocabularySize is the number of distinct words.
func (tc *TextColumn) VocabularySize() int {
	return len(tc.Vocabulary)
}

//Range returns the sorted word ids contained in row.
func (tc *TextColumn) Range(row int) []int {
	return tc.Words[tc.Indptr[row]:tc.Indptr[row+1]]
}

//Contains tells whether the row contains the word.
func (tc *TextColumn) Contains(row, word int) bool {
	words := tc.Range(row)
	ix := sort.SearchInts(words, word)
	return ix < len(words) && words[ix] == word
}

//RowIndex returns the inverted index of the column, building it on first use. It is safe for
//concurrent use.
func (tc *TextColumn) RowIndex() *RowIndex {
	tc.rowIndexOnce.Do(func() {
		tc.rowIndex = NewRowIndex(tc)
	})
	return tc.rowIndex
}

//RowIndex maps every word to the sorted rows containing it.
type RowIndex struct {
	indptr []int
	rows   []int
}

//NewRowIndex inverts a text column.
func NewRowIndex(tc *TextColumn) *RowIndex {
	indptr := make([]int, tc.VocabularySize()+1)
	for _, w := range tc.Words {
		indptr[w+1]++
	}
	for i := 1; i < len(indptr); i++ {
		indptr[i] += indptr[i-1]
	}
	rows := make([]int, len(tc.Words))
	fill := append([]int(nil), indptr[:len(indptr)-1]...)
	for r := 0; r < tc.NumRows(); r++ {
		for _, w := range tc.Range(r) {
			rows[fill[w]] = r
			fill[w]++
		}
	}
	return &RowIndex{indptr: indptr, rows: rows}
}

//Rows returns the rows containing word.
func (ri *RowIndex) Rows(word int) []int {
	if word < 0 || word+1 >= len(ri.indptr) {
		return nil
	}
	return ri.rows[ri.indptr[word]:ri.indptr[word+1]]
}

//WordIndex finds the matches whose text contains a given word. The matches are binned by
//the text row stored in their categorical scratch value.
type WordIndex struct {
	bins         []int
	rownumIndptr []int
	rowIndex     *RowIndex
}

//NewWordIndex wraps bins that are ordered by text row with rownumIndptr pointing into them.
func NewWordIndex(bins, rownumIndptr []int, rowIndex *RowIndex) WordIndex {
	return WordIndex{bins: bins, rownumIndptr: rownumIndptr, rowIndex: rowIndex}
}

//Range returns the indices of all matches whose text contains word.
func (wi WordIndex) Range(word int) []int {
	var result []int
	for _, row := range wi.rowIndex.Rows(word) {
		if row+1 >= len(wi.rownumIndptr) {
			continue
		}
		result = append(result, wi.bins[wi.rownumIndptr[row]:wi.rownumIndptr[row+1]]...)
	}
	return result
}

//All returns all matches covered by the index.
func (wi WordIndex) All() []int {
	return wi.bins
}
