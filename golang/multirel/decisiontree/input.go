package decisiontree

import (
	"fmt"

	"github.com/spf13/afero"
	"gonum.org/v1/gonum/mat"

	"github.com/tarstars/relational_features/golang/multirel/containers"
)

//InputSpec names the npy files of the population and the peripheral table. The subfeature file
//holds one column per subfeature and one row per peripheral row.
type InputSpec struct {
	Population          containers.DataFrameSpec `json:"population" mapstructure:"population"`
	Peripheral          containers.DataFrameSpec `json:"peripheral" mapstructure:"peripheral"`
	FileNameSubfeatures string                   `json:"filename_subfeatures,omitempty" mapstructure:"filename_subfeatures"`
}

//ReadInput loads the tables and the subfeatures.
func ReadInput(fs afero.Fs, spec InputSpec) (Input, error) {
	population, err := containers.ReadDataFrame(fs, spec.Population)
	if err != nil {
		return Input{}, err
	}
	peripheral, err := containers.ReadDataFrame(fs, spec.Peripheral)
	if err != nil {
		return Input{}, err
	}
	input := Input{Population: population, Peripheral: peripheral}
	if spec.FileNameSubfeatures == "" {
		return input, nil
	}

	m, err := containers.ReadNpy(fs, spec.FileNameSubfeatures)
	if err != nil {
		return Input{}, err
	}
	h, w := m.Dims()
	if h != peripheral.NumRows() {
		return Input{}, fmt.Errorf("%s has %d rows, the peripheral table has %d", spec.FileNameSubfeatures, h, peripheral.NumRows())
	}
	for col := 0; col < w; col++ {
		input.Subfeatures = append(input.Subfeatures, mat.Col(nil, col, m))
	}
	return input, nil
}
