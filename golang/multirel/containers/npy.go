package containers

import (
	"fmt"
	"math"

	"github.com/sbinet/npyio"
	"github.com/spf13/afero"
	"gonum.org/v1/gonum/mat"
)

//ReadNpy reads a two dimensional npy file into a dense matrix.
func ReadNpy(fs afero.Fs, fileName string) (*mat.Dense, error) {
	f, err := fs.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fileName, err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read npy header of %s: %w", fileName, err)
	}

	denseMat := &mat.Dense{}
	if err := r.Read(denseMat); err != nil {
		return nil, fmt.Errorf("read npy data of %s: %w", fileName, err)
	}
	return denseMat, nil
}

//WriteNpy writes a dense matrix into an npy file.
func WriteNpy(fs afero.Fs, fileName string, m *mat.Dense) error {
	f, err := fs.Create(fileName)
	if err != nil {
		return fmt.Errorf("create %s: %w", fileName, err)
	}
	if err := npyio.Write(f, m); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", fileName, err)
	}
	return f.Close()
}

//MatrixSpec names one npy file and the columns it holds.
type MatrixSpec struct {
	FileName string   `json:"filename" mapstructure:"filename"`
	Columns  []Column `json:"columns" mapstructure:"columns"`
}

//DataFrameSpec describes the npy files a data frame is assembled from. Categorical and join key
//files hold integer codes stored as floats, NaN or negative meaning null.
type DataFrameSpec struct {
	Name        string     `json:"name" mapstructure:"name"`
	Numerical   MatrixSpec `json:"numerical" mapstructure:"numerical"`
	Discrete    MatrixSpec `json:"discrete" mapstructure:"discrete"`
	Categorical MatrixSpec `json:"categorical" mapstructure:"categorical"`
	JoinKeys    MatrixSpec `json:"join_keys" mapstructure:"join_keys"`
	TimeStamps  MatrixSpec `json:"time_stamps" mapstructure:"time_stamps"`
}

func readColumns(fs afero.Fs, spec MatrixSpec, nrows *int) (*mat.Dense, error) {
	if spec.FileName == "" {
		return nil, nil
	}
	m, err := ReadNpy(fs, spec.FileName)
	if err != nil {
		return nil, err
	}
	h, w := m.Dims()
	if w != len(spec.Columns) {
		return nil, fmt.Errorf("%s has %d columns, but %d column descriptions were given", spec.FileName, w, len(spec.Columns))
	}
	if *nrows >= 0 && *nrows != h {
		return nil, fmt.Errorf("%s has %d rows, expected %d", spec.FileName, h, *nrows)
	}
	*nrows = h
	return m, nil
}

func toCodes(m *mat.Dense, col int) []int {
	h, _ := m.Dims()
	codes := make([]int, h)
	for row := 0; row < h; row++ {
		v := m.At(row, col)
		if math.IsNaN(v) || v < 0 {
			codes[row] = -1
			continue
		}
		codes[row] = int(v)
	}
	return codes
}

//ReadDataFrame assembles a data frame from npy files.
func ReadDataFrame(fs afero.Fs, spec DataFrameSpec) (*DataFrame, error) {
	nrows := -1
	specs := []MatrixSpec{spec.Numerical, spec.Discrete, spec.Categorical, spec.JoinKeys, spec.TimeStamps}
	matrices := make([]*mat.Dense, len(specs))
	for i, s := range specs {
		m, err := readColumns(fs, s, &nrows)
		if err != nil {
			return nil, fmt.Errorf("data frame %s: %w", spec.Name, err)
		}
		matrices[i] = m
	}
	if nrows < 0 {
		return nil, fmt.Errorf("data frame %s: no columns given", spec.Name)
	}

	df := NewDataFrame(spec.Name, nrows)
	if m := matrices[0]; m != nil {
		df.Numericals, df.NumericalColumns = m, spec.Numerical.Columns
	}
	if m := matrices[1]; m != nil {
		df.Discretes, df.DiscreteColumns = m, spec.Discrete.Columns
	}
	if m := matrices[2]; m != nil {
		for col, c := range spec.Categorical.Columns {
			df.AddCategorical(c, toCodes(m, col))
		}
	}
	if m := matrices[3]; m != nil {
		for col, c := range spec.JoinKeys.Columns {
			df.AddJoinKey(c, toCodes(m, col))
		}
	}
	if m := matrices[4]; m != nil {
		df.TimeStamps, df.TimeStampColumns = m, spec.TimeStamps.Columns
	}
	return df, nil
}
