// SPDX-License-Identifier: Apache-2.0

package main

/*
#cgo CFLAGS: -I.
#include <stdlib.h>
*/
import "C"

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/decisiontree"
	"github.com/tarstars/relational_features/golang/multirel/ensemble"
)

var (
	handleMu   sync.Mutex
	nextHandle uint64 = 1
	models            = make(map[uint64]*ensemble.Ensemble)

	lastErrorMu sync.Mutex
	lastError   string

	fs = afero.NewOsFs()
)

func setLastError(err error) {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
}

func getLastError() string {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	return lastError
}

func storeModel(e *ensemble.Ensemble) uint64 {
	handleMu.Lock()
	defer handleMu.Unlock()
	handle := nextHandle
	models[handle] = e
	nextHandle++
	return handle
}

func fetchModel(handle uint64) (*ensemble.Ensemble, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	model, ok := models[handle]
	if !ok {
		return nil, errors.New("invalid model handle")
	}
	return model, nil
}

//export FreeModel
func FreeModel(handle C.ulonglong) {
	handleMu.Lock()
	defer handleMu.Unlock()
	delete(models, uint64(handle))
}

func sliceFromPtr(ptr *C.double, length int) ([]float64, error) {
	if length < 0 {
		return nil, errors.New("negative length")
	}
	if length == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, errors.New("null pointer for non-empty slice")
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(ptr)), length), nil
}

func buildDense(ptr *C.double, rows, cols C.int) (*mat.Dense, error) {
	r := int(rows)
	c := int(cols)
	if r <= 0 || c <= 0 {
		return nil, errors.New("invalid matrix dimensions")
	}
	src, err := sliceFromPtr(ptr, r*c)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(r, c, append([]float64(nil), src...)), nil
}

//readInput loads the tables named by a JSON encoded decisiontree.InputSpec.
func readInput(tables *C.char) (decisiontree.Input, error) {
	if tables == nil {
		return decisiontree.Input{}, errors.New("no tables given")
	}
	var spec decisiontree.InputSpec
	if err := json.Unmarshal([]byte(C.GoString(tables)), &spec); err != nil {
		return decisiontree.Input{}, fmt.Errorf("decode tables: %w", err)
	}
	return decisiontree.ReadInput(fs, spec)
}

//readParams decodes a JSON encoded ensemble.Params on top of the defaults.
func readParams(params *C.char) (ensemble.Params, error) {
	p := ensemble.DefaultParams(containers.NewJoinSpec(0, 0))
	if params == nil {
		return p, nil
	}
	if err := json.Unmarshal([]byte(C.GoString(params)), &p); err != nil {
		return p, fmt.Errorf("decode params: %w", err)
	}
	return p, nil
}

//export TrainModel
func TrainModel(tables *C.char, targetPtr *C.double, rows C.int, numTargets C.int, params *C.char) C.ulonglong {
	setLastError(nil)

	input, err := readInput(tables)
	if err != nil {
		setLastError(err)
		return 0
	}
	targets, err := buildDense(targetPtr, rows, numTargets)
	if err != nil {
		setLastError(err)
		return 0
	}
	p, err := readParams(params)
	if err != nil {
		setLastError(err)
		return 0
	}

	model, err := ensemble.Fit(context.Background(), input, targets, p, zap.NewNop())
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeModel(model))
}

//export NumFeatures
func NumFeatures(handle C.ulonglong) C.int {
	setLastError(nil)
	model, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return -1
	}
	return C.int(len(model.Trees))
}

//export Transform
func Transform(handle C.ulonglong, tables *C.char, outputPtr *C.double, rows, cols C.int) C.int {
	setLastError(nil)
	model, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	input, err := readInput(tables)
	if err != nil {
		setLastError(err)
		return 2
	}
	features, err := model.Transform(input)
	if err != nil {
		setLastError(err)
		return 3
	}
	if h, w := features.Dims(); h != int(rows) || w != int(cols) {
		setLastError(fmt.Errorf("output buffer is %dx%d, the features are %dx%d", int(rows), int(cols), h, w))
		return 4
	}
	outSlice, err := sliceFromPtr(outputPtr, int(rows)*int(cols))
	if err != nil {
		setLastError(err)
		return 5
	}
	copy(outSlice, features.RawMatrix().Data)
	return 0
}

//export SaveModel
func SaveModel(handle C.ulonglong, path *C.char) C.int {
	setLastError(nil)
	model, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	if err := model.Save(fs, C.GoString(path)); err != nil {
		setLastError(err)
		return 2
	}
	return 0
}

//export LoadModel
func LoadModel(path *C.char) C.ulonglong {
	setLastError(nil)
	model, err := ensemble.Load(fs, C.GoString(path), zap.NewNop())
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeModel(model))
}

//export RenderTrees
func RenderTrees(handle C.ulonglong, tables, prefix, figureType, directory *C.char) C.int {
	setLastError(nil)
	model, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	input, err := readInput(tables)
	if err != nil {
		setLastError(err)
		return 2
	}
	goPrefix := C.GoString(prefix)
	goFigureType := C.GoString(figureType)
	goDir := C.GoString(directory)
	if goPrefix == "" {
		goPrefix = "tree"
	}
	if goFigureType == "" {
		goFigureType = "svg"
	}
	if goDir == "" {
		goDir = "."
	}
	if err := model.RenderTrees(input, goPrefix, goFigureType, goDir); err != nil {
		setLastError(err)
		return 3
	}
	return 0
}

//ModelToSQL returns the queries of all features separated by new lines. The caller frees the
//string with FreeCString.
//
//export ModelToSQL
func ModelToSQL(handle C.ulonglong, tables, prefix *C.char) *C.char {
	setLastError(nil)
	model, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return nil
	}
	input, err := readInput(tables)
	if err != nil {
		setLastError(err)
		return nil
	}
	goPrefix := C.GoString(prefix)
	if goPrefix == "" {
		goPrefix = "feature"
	}
	return C.CString(strings.Join(model.ToSQL(input, goPrefix), "\n"))
}

//ColumnImportances returns a JSON object from column names to normalized importances.
//
//export ColumnImportances
func ColumnImportances(handle C.ulonglong, tables *C.char) *C.char {
	setLastError(nil)
	model, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return nil
	}
	input, err := readInput(tables)
	if err != nil {
		setLastError(err)
		return nil
	}
	data, err := json.Marshal(model.ColumnImportances(input))
	if err != nil {
		setLastError(err)
		return nil
	}
	return C.CString(string(data))
}

//export GetLastError
func GetLastError() *C.char {
	errStr := getLastError()
	if errStr == "" {
		return nil
	}
	return C.CString(errStr)
}

//export FreeCString
func FreeCString(str *C.char) {
	if str != nil {
		C.free(unsafe.Pointer(str))
	}
}

func main() {}
