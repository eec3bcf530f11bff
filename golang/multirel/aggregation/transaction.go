package aggregation

//rowSet is a set of population rows that can be cleared in O(members).
type rowSet struct {
	members  []int
	contains []bool
}

func newRowSet(numRows int) rowSet {
	return rowSet{contains: make([]bool, numRows)}
}

func (s *rowSet) insert(row int) {
	if !s.contains[row] {
		s.contains[row] = true
		s.members = append(s.members, row)
	}
}

func (s *rowSet) clear() {
	for _, row := range s.members {
		s.contains[row] = false
	}
	s.members = s.members[:0]
}

func (s *rowSet) len() int {
	return len(s.members)
}

//transaction collects everything that changed since the last commit. current holds the rows
//touched since the last report to the criterion, stored the rows touched since the last commit
//and altered the arena indices whose activation flag flipped since the last commit.
type transaction struct {
	current rowSet
	stored  rowSet
	altered []int
}

func newTransaction(numRows int) transaction {
	return transaction{current: newRowSet(numRows), stored: newRowSet(numRows)}
}

func (t *transaction) touch(row int) {
	t.current.insert(row)
	t.stored.insert(row)
}

func (t *transaction) empty() bool {
	return t.current.len() == 0 && t.stored.len() == 0 && len(t.altered) == 0
}

func (t *transaction) clear() {
	t.current.clear()
	t.stored.clear()
	t.altered = t.altered[:0]
}
