package criterion

//Criterion scores the predictions of a tree while it is being fitted. Every candidate split stores
//one stage; FindMaximum picks the best stage. Stages are numbered in the order they were stored.
type Criterion interface {
	//InitYhat recomputes all statistics from the predictions of the given rows.
	InitYhat(yhat []float64, rows []int)
	//SetStorageSize reserves room for n stages.
	SetStorageSize(n int)
	//ResetStorageSize discards all stages.
	ResetStorageSize()
	//StoreCurrentStage records the current statistics together with the sizes of both partitions.
	StoreCurrentStage(numSmaller, numGreater int)
	//UpdateSamples replaces oldValues by newValues for the given rows.
	UpdateSamples(rows []int, newValues, oldValues []float64)
	Commit()
	RevertToCommit()
	//Evaluate scores the stages stored since the last evaluation. Every shard calls it at the same points.
	Evaluate()
	//FindMaximum returns the index of the first stage with the greatest value.
	FindMaximum() int
	ValuesStored(i int) float64
	//Value is the value as of the last commit.
	Value() float64
	//Argsort orders the stages in [begin, end) by descending value. The result is relative to begin.
	Argsort(begin, end int) []int
	//StorageIx is the number of stages stored since the last reset.
	StorageIx() int
}
