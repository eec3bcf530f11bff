package descriptors

//Split describes the condition of a decision tree node. The matches for which the condition holds
//form the smaller child. ApplyFromAbove tells which side the node activates.
type Split struct {
	ApplyFromAbove bool     `json:"app_"`
	CategoriesUsed []int    `json:"categories_used_"`
	ColumnUsed     int      `json:"column_used_"`
	CriticalValue  float64  `json:"critical_value_"`
	DataUsed       DataUsed `json:"data_used_"`
}

//NewCategoricalSplit describes a split on a set of categories or words.
func NewCategoricalSplit(applyFromAbove bool, categories []int, columnUsed int, dataUsed DataUsed) Split {
	return Split{
		ApplyFromAbove: applyFromAbove,
		CategoriesUsed: categories,
		ColumnUsed:     columnUsed,
		DataUsed:       dataUsed,
	}
}

//NewNumericalSplit describes a split on a threshold or a time window.
func NewNumericalSplit(applyFromAbove bool, criticalValue float64, columnUsed int, dataUsed DataUsed) Split {
	return Split{
		ApplyFromAbove: applyFromAbove,
		ColumnUsed:     columnUsed,
		CriticalValue:  criticalValue,
		DataUsed:       dataUsed,
	}
}

//DeepCopy returns a split that shares no memory with s.
func (s Split) DeepCopy() *Split {
	c := s
	if s.CategoriesUsed != nil {
		c.CategoriesUsed = append([]int(nil), s.CategoriesUsed...)
	}
	return &c
}
