package aggregation

import (
	"github.com/tarstars/relational_features/golang/multirel/containers"
)

//Revert tells the category and word sweeps when to report to the criterion and when to roll back.
type Revert int

const (
	//NotAtAll applies all categories and reports once at the end.
	NotAtAll Revert = iota
	//AfterEachCategory reports every category on its own and rolls back after each one.
	AfterEachCategory
	//AfterAllCategories reports the growing prefix of categories and rolls back at the end.
	AfterAllCategories
)

func (r Revert) String() string {
	switch r {
	case NotAtAll:
		return "not_at_all"
	case AfterEachCategory:
		return "after_each_category"
	case AfterAllCategories:
		return "after_all_categories"
	}
	return "unknown"
}

//ActivateAll activates every match of ixs from scratch and initialises the criterion with the result.
//The caller commits afterwards.
func (e *Engine) ActivateAll(ixs []int) {
	for _, ix := range ixs {
		e.arena.At(ix).Activated = false
	}
	for _, ix := range ixs {
		e.Activate(ix)
	}
	e.tx.current.clear()
	e.criterion.InitYhat(e.live.yhat, e.tx.stored.members)
	e.criterion.StoreCurrentStage(len(ixs), len(ixs))
	e.criterion.Evaluate()
}

//DeactivateMatchesWithNullValues deactivates matches whose scratch value is null.
func (e *Engine) DeactivateMatchesWithNullValues(nulls []int) {
	for _, ix := range nulls {
		e.Deactivate(ix)
	}
}

func (e *Engine) containing(on bool, groups []int, revert Revert, rangeOf func(int) []int, sampleSize int) {
	numSmaller := 0
	for _, group := range groups {
		for _, ix := range rangeOf(group) {
			e.toggle(ix, on)
			numSmaller++
		}
		if revert != NotAtAll {
			e.UpdateCriterionAndClearCurrent(numSmaller, sampleSize-numSmaller)
		}
		if revert == AfterEachCategory {
			e.Rollback()
			numSmaller = 0
		}
	}
	switch revert {
	case AfterAllCategories:
		e.Rollback()
	case NotAtAll:
		e.UpdateCriterionAndClearCurrent(numSmaller, sampleSize-numSmaller)
	}
}

func (e *Engine) notContaining(on bool, groups []int, revert Revert, rangeOf func(int) []int, all []int) {
	for _, ix := range all {
		e.toggle(ix, on)
	}
	numSmaller := 0
	for _, group := range groups {
		r := rangeOf(group)
		for _, ix := range r {
			e.toggle(ix, !on)
			numSmaller++
		}
		if revert != NotAtAll {
			e.UpdateCriterionAndClearCurrent(numSmaller, len(all)-numSmaller)
		}
		if revert == AfterEachCategory {
			for _, ix := range r {
				e.toggle(ix, on)
			}
			numSmaller = 0
		}
	}
	if revert != NotAtAll {
		e.Rollback()
	} else {
		e.UpdateCriterionAndClearCurrent(numSmaller, len(all)-numSmaller)
	}
}

//ActivateContainingCategories activates the matches of the categories.
func (e *Engine) ActivateContainingCategories(categories []int, revert Revert, index containers.CategoryIndex) {
	e.containing(true, categories, revert, index.Range, len(index.All()))
}

//DeactivateContainingCategories deactivates the matches of the categories.
func (e *Engine) DeactivateContainingCategories(categories []int, revert Revert, index containers.CategoryIndex) {
	e.containing(false, categories, revert, index.Range, len(index.All()))
}

//ActivateNotContainingCategories activates every match of the index, null categories included,
//except for the matches of the categories.
func (e *Engine) ActivateNotContainingCategories(categories []int, revert Revert, index containers.CategoryIndex) {
	e.notContaining(true, categories, revert, index.Range, index.All())
}

//DeactivateNotContainingCategories is the mirror image of ActivateNotContainingCategories.
func (e *Engine) DeactivateNotContainingCategories(categories []int, revert Revert, index containers.CategoryIndex) {
	e.notContaining(false, categories, revert, index.Range, index.All())
}

//ActivateContainingWords activates the matches whose text contains the words.
func (e *Engine) ActivateContainingWords(words []int, revert Revert, index containers.WordIndex) {
	e.containing(true, words, revert, index.Range, len(index.All()))
}

//DeactivateContainingWords deactivates the matches whose text contains the words.
func (e *Engine) DeactivateContainingWords(words []int, revert Revert, index containers.WordIndex) {
	e.containing(false, words, revert, index.Range, len(index.All()))
}

//ActivateNotContainingWords activates the matches whose text contains none of the words.
func (e *Engine) ActivateNotContainingWords(words []int, revert Revert, index containers.WordIndex) {
	e.notContaining(true, words, revert, index.Range, index.All())
}

//DeactivateNotContainingWords deactivates the matches whose text contains none of the words.
func (e *Engine) DeactivateNotContainingWords(words []int, revert Revert, index containers.WordIndex) {
	e.notContaining(false, words, revert, index.Range, index.All())
}

//Bin k of a threshold sweep holds ixs[indptr[k]:indptr[k+1]]; the bins are ascending in value and
//the matches behind the last bin have null values. Every sweep stores len(indptr)-1 stages.

//ActivateFromAbove activates bins from the top down, storing one stage per critical value in
//descending order, the first stage before anything is activated. Nulls count as smaller.
func (e *Engine) ActivateFromAbove(indptr, ixs []int) {
	e.fromAbove(true, indptr, ixs)
}

//DeactivateFromAbove deactivates bins from the top down. Nulls count as greater.
func (e *Engine) DeactivateFromAbove(indptr, ixs []int) {
	e.fromAbove(false, indptr, ixs)
}

//ActivateFromBelow activates bins from the bottom up, storing one stage per critical value in
//ascending order. Nulls count as greater.
func (e *Engine) ActivateFromBelow(indptr, ixs []int) {
	e.fromBelow(true, indptr, ixs)
}

//DeactivateFromBelow deactivates bins from the bottom up. Nulls count as smaller.
func (e *Engine) DeactivateFromBelow(indptr, ixs []int) {
	e.fromBelow(false, indptr, ixs)
}

func (e *Engine) fromAbove(on bool, indptr, ixs []int) {
	numBins := len(indptr) - 1
	nonNull := indptr[numBins]
	numNulls := len(ixs) - nonNull
	report := func(k int) {
		greater := nonNull - indptr[k]
		smaller := indptr[k]
		if on {
			smaller += numNulls
		} else {
			greater += numNulls
		}
		e.UpdateCriterionAndClearCurrent(smaller, greater)
	}
	report(numBins)
	for k := numBins - 1; k >= 1; k-- {
		for _, ix := range ixs[indptr[k]:indptr[k+1]] {
			e.toggle(ix, on)
		}
		report(k)
	}
}

func (e *Engine) fromBelow(on bool, indptr, ixs []int) {
	numBins := len(indptr) - 1
	nonNull := indptr[numBins]
	numNulls := len(ixs) - nonNull
	for k := 0; k < numBins; k++ {
		for _, ix := range ixs[indptr[k]:indptr[k+1]] {
			e.toggle(ix, on)
		}
		smaller := indptr[k+1]
		greater := nonNull - indptr[k+1]
		if on {
			greater += numNulls
		} else {
			smaller += numNulls
		}
		e.UpdateCriterionAndClearCurrent(smaller, greater)
	}
}

//ActivateInWindow activates one window bin at a time, storing a stage and rolling back after each.
func (e *Engine) ActivateInWindow(indptr, ixs []int) {
	e.inWindow(true, indptr, ixs)
}

//DeactivateInWindow deactivates one window bin at a time, storing a stage and rolling back after each.
func (e *Engine) DeactivateInWindow(indptr, ixs []int) {
	e.inWindow(false, indptr, ixs)
}

//ActivateOutsideWindow activates all matches but one window bin at a time.
func (e *Engine) ActivateOutsideWindow(indptr, ixs []int) {
	e.outsideWindow(true, indptr, ixs)
}

//DeactivateOutsideWindow deactivates all matches but one window bin at a time.
func (e *Engine) DeactivateOutsideWindow(indptr, ixs []int) {
	e.outsideWindow(false, indptr, ixs)
}

func (e *Engine) inWindow(on bool, indptr, ixs []int) {
	for k := 0; k+1 < len(indptr); k++ {
		bin := ixs[indptr[k]:indptr[k+1]]
		for _, ix := range bin {
			e.toggle(ix, on)
		}
		e.UpdateCriterionAndClearCurrent(len(bin), len(ixs)-len(bin))
		e.Rollback()
	}
}

func (e *Engine) outsideWindow(on bool, indptr, ixs []int) {
	for _, ix := range ixs {
		e.toggle(ix, on)
	}
	for k := 0; k+1 < len(indptr); k++ {
		bin := ixs[indptr[k]:indptr[k+1]]
		for _, ix := range bin {
			e.toggle(ix, !on)
		}
		e.UpdateCriterionAndClearCurrent(len(bin), len(ixs)-len(bin))
		for _, ix := range bin {
			e.toggle(ix, on)
		}
	}
	e.Rollback()
}

//ActivatePartitionFromAbove activates ixs[sep:] and stores a stage.
func (e *Engine) ActivatePartitionFromAbove(ixs []int, sep int) {
	e.partition(true, ixs[sep:], ixs, sep)
}

//DeactivatePartitionFromAbove deactivates ixs[sep:] and stores a stage.
func (e *Engine) DeactivatePartitionFromAbove(ixs []int, sep int) {
	e.partition(false, ixs[sep:], ixs, sep)
}

//ActivatePartitionFromBelow activates ixs[:sep] and stores a stage.
func (e *Engine) ActivatePartitionFromBelow(ixs []int, sep int) {
	e.partition(true, ixs[:sep], ixs, sep)
}

//DeactivatePartitionFromBelow deactivates ixs[:sep] and stores a stage.
func (e *Engine) DeactivatePartitionFromBelow(ixs []int, sep int) {
	e.partition(false, ixs[:sep], ixs, sep)
}

func (e *Engine) partition(on bool, part, ixs []int, sep int) {
	for _, ix := range part {
		e.toggle(ix, on)
	}
	e.UpdateCriterionAndClearCurrent(sep, len(ixs)-sep)
}
