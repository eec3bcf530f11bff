package containers

import "math"

//JoinSpec describes how the peripheral table is joined onto the population table.
//A negative time stamp column disables the corresponding constraint.
type JoinSpec struct {
	PopulationKey       int `json:"population_key" mapstructure:"population_key"`
	PeripheralKey       int `json:"peripheral_key" mapstructure:"peripheral_key"`
	PopulationTimeStamp int `json:"population_time_stamp" mapstructure:"population_time_stamp"`
	PeripheralTimeStamp int `json:"peripheral_time_stamp" mapstructure:"peripheral_time_stamp"`
	UpperTimeStamp      int `json:"upper_time_stamp" mapstructure:"upper_time_stamp"`
}

//NewJoinSpec joins on the given key columns without any time stamp constraint.
func NewJoinSpec(populationKey, peripheralKey int) JoinSpec {
	return JoinSpec{
		PopulationKey:       populationKey,
		PeripheralKey:       peripheralKey,
		PopulationTimeStamp: -1,
		PeripheralTimeStamp: -1,
		UpperTimeStamp:      -1,
	}
}

//WithTimeStamps adds the constraint peripheral.ts <= population.ts.
func (js JoinSpec) WithTimeStamps(populationTimeStamp, peripheralTimeStamp int) JoinSpec {
	js.PopulationTimeStamp = populationTimeStamp
	js.PeripheralTimeStamp = peripheralTimeStamp
	return js
}

//Joiner finds the peripheral rows matching a population row through a hash index on the join key.
type Joiner struct {
	population, peripheral *DataFrame
	spec                   JoinSpec
	index                  map[int][]int
}

//NewJoiner indexes the peripheral join key.
func NewJoiner(population, peripheral *DataFrame, spec JoinSpec) *Joiner {
	keys := peripheral.JoinKeys[spec.PeripheralKey]
	index := make(map[int][]int)
	for row, key := range keys {
		if key < 0 {
			continue
		}
		index[key] = append(index[key], row)
	}
	return &Joiner{population: population, peripheral: peripheral, spec: spec, index: index}
}

func (j *Joiner) useTimeStamps() bool {
	return j.spec.PopulationTimeStamp >= 0 && j.spec.PeripheralTimeStamp >= 0
}

//Row appends the matches of one population row to dst.
func (j *Joiner) Row(populationRow int, dst []Match) []Match {
	key := j.population.JoinKeys[j.spec.PopulationKey][populationRow]
	if key < 0 {
		return dst
	}
	var popTs float64
	if j.useTimeStamps() {
		popTs = j.population.TimeStamp(populationRow, j.spec.PopulationTimeStamp)
	}
	for _, peripheralRow := range j.index[key] {
		if j.useTimeStamps() {
			if !(j.peripheral.TimeStamp(peripheralRow, j.spec.PeripheralTimeStamp) <= popTs) {
				continue
			}
			if j.spec.UpperTimeStamp >= 0 {
				upper := j.peripheral.TimeStamp(peripheralRow, j.spec.UpperTimeStamp)
				if !math.IsNaN(upper) && upper <= popTs {
					continue
				}
			}
		}
		dst = append(dst, Match{
			PopulationRow:    populationRow,
			PeripheralRow:    peripheralRow,
			NumericalValue:   math.NaN(),
			CategoricalValue: -1,
		})
	}
	return dst
}

//All returns the matches of every population row.
func (j *Joiner) All() []Match {
	var matches []Match
	for row := 0; row < j.population.NumRows(); row++ {
		matches = j.Row(row, matches)
	}
	return matches
}
