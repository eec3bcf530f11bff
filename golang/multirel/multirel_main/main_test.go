package main

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tarstars/relational_features/golang/multirel/aggregation"
	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/decisiontree"
)

const numPopulation, numPeripheral = 30, 300

type files struct {
	dir    string
	tables decisiontree.InputSpec
	target string
	model  string
}

func matrixSpec(fileName string, names ...string) containers.MatrixSpec {
	spec := containers.MatrixSpec{FileName: fileName}
	for _, name := range names {
		spec.Columns = append(spec.Columns, containers.Column{Name: name})
	}
	return spec
}

//writeTables writes a data set whose target is the number of peripheral rows with x >= 5.
func writeTables(t *testing.T) files {
	t.Helper()
	fs := afero.NewOsFs()
	dir := t.TempDir()
	path := func(name string) string { return filepath.Join(dir, name) }
	rng := rand.New(rand.NewSource(1))

	ids := mat.NewDense(numPopulation, 1, nil)
	popTs := mat.NewDense(numPopulation, 1, nil)
	for i := 0; i < numPopulation; i++ {
		ids.Set(i, 0, float64(i))
		popTs.Set(i, 0, 100)
	}
	keys := mat.NewDense(numPeripheral, 1, nil)
	ts := mat.NewDense(numPeripheral, 1, nil)
	x := mat.NewDense(numPeripheral, 1, nil)
	c := mat.NewDense(numPeripheral, 1, nil)
	target := mat.NewDense(numPopulation, 1, nil)
	for i := 0; i < numPeripheral; i++ {
		key := rng.Intn(numPopulation)
		keys.Set(i, 0, float64(key))
		ts.Set(i, 0, float64(rng.Intn(100)))
		x.Set(i, 0, float64(rng.Intn(10)))
		c.Set(i, 0, float64(rng.Intn(3)))
		if x.At(i, 0) >= 5 {
			target.Set(key, 0, target.At(key, 0)+1)
		}
	}
	for name, m := range map[string]*mat.Dense{
		"ids.npy": ids, "pop_ts.npy": popTs, "keys.npy": keys, "ts.npy": ts, "x.npy": x, "c.npy": c, "target.npy": target,
	} {
		require.NoError(t, containers.WriteNpy(fs, path(name), m))
	}

	return files{
		dir: dir,
		tables: decisiontree.InputSpec{
			Population: containers.DataFrameSpec{
				Name:       "population",
				JoinKeys:   matrixSpec(path("ids.npy"), "id"),
				TimeStamps: matrixSpec(path("pop_ts.npy"), "ts"),
			},
			Peripheral: containers.DataFrameSpec{
				Name:        "peripheral",
				JoinKeys:    matrixSpec(path("keys.npy"), "id"),
				TimeStamps:  matrixSpec(path("ts.npy"), "ts"),
				Numerical:   matrixSpec(path("x.npy"), "x"),
				Categorical: matrixSpec(path("c.npy"), "c"),
			},
		},
		target: path("target.npy"),
		model:  path("model.json"),
	}
}

func writeConfig(t *testing.T, dir, name string, conf map[string]any) string {
	t.Helper()
	data, err := json.Marshal(conf)
	require.NoError(t, err)
	fileName := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fileName, data, 0o600))
	return fileName
}

func run(t *testing.T, args ...string) {
	t.Helper()
	cmd := rootCommand(afero.NewOsFs())
	cmd.SetArgs(append(args, "--log-level", "warn"))
	require.NoError(t, cmd.Execute())
}

func TestTrainAndApply(t *testing.T) {
	f := writeTables(t)
	tables := map[string]any{
		"population": f.tables.Population,
		"peripheral": f.tables.Peripheral,
	}

	train := writeConfig(t, f.dir, "train.json", map[string]any{
		"tables":          tables,
		"filename_target": f.target,
		"filename_model":  f.model,
		"join":            map[string]int{"population_key": 0, "peripheral_key": 0, "population_time_stamp": 0, "peripheral_time_stamp": 0, "upper_time_stamp": -1},
		"tree":            map[string]any{"max_length": 2},
		"aggregations":    []string{"count", "SUM"},
		"num_features":    1,
		"num_threads":     2,
	})
	run(t, "train", "--config", train)
	_, err := os.Stat(f.model)
	require.NoError(t, err)

	features := filepath.Join(f.dir, "features.npy")
	run(t, "transform", "--config", writeConfig(t, f.dir, "transform.json", map[string]any{
		"tables":            tables,
		"filename_model":    f.model,
		"filename_features": features,
	}))
	got, err := containers.ReadNpy(afero.NewOsFs(), features)
	require.NoError(t, err)
	want, err := containers.ReadNpy(afero.NewOsFs(), f.target)
	require.NoError(t, err)
	require.True(t, mat.Equal(want, got))

	sqlFile := filepath.Join(f.dir, "features.sql")
	run(t, "sql", "--config", writeConfig(t, f.dir, "sql.json", map[string]any{
		"tables":         tables,
		"filename_model": f.model,
		"filename_sql":   sqlFile,
	}))
	sql, err := os.ReadFile(sqlFile)
	require.NoError(t, err)
	require.Contains(t, string(sql), `SELECT COUNT( * ) AS "feature_1"`)
	require.Contains(t, string(sql), `t2."x" > `)

	importancesFile := filepath.Join(f.dir, "importances.json")
	run(t, "importances", "--config", writeConfig(t, f.dir, "importances_config.json", map[string]any{
		"tables":               tables,
		"filename_model":       f.model,
		"filename_importances": importancesFile,
	}))
	data, err := os.ReadFile(importancesFile)
	require.NoError(t, err)
	var importances map[string]float64
	require.NoError(t, json.Unmarshal(data, &importances))
	require.Contains(t, importances, "peripheral.x")

	run(t, "graph", "--config", writeConfig(t, f.dir, "graph.json", map[string]any{
		"tables":             tables,
		"filename_model":     f.model,
		"figure_type":        "dot",
		"pictures_directory": f.dir,
	}))
	_, err = os.Stat(filepath.Join(f.dir, "tree_00000.dot"))
	require.NoError(t, err)
}

func TestDecodeConfig(t *testing.T) {
	dir := t.TempDir()
	fileName := writeConfig(t, dir, "train.json", map[string]any{
		"filename_target": "target.npy",
		"filename_model":  "model.json",
		"aggregations":    "SUM,count_distinct",
		"tree":            map[string]any{"max_length": 5, "delta_t": 2.5},
	})
	conf := defaultTrainConfig()
	require.NoError(t, decodeConfig(fileName, &conf))
	require.NoError(t, conf.validate())
	require.Equal(t, []aggregation.Kind{aggregation.Sum, aggregation.CountDistinct}, conf.Aggregations)
	require.Equal(t, 5, conf.Tree.MaxLength)
	require.Equal(t, 2.5, conf.Tree.DeltaT)
	require.Equal(t, 1.0, conf.Tree.GridFactor)
	require.Equal(t, -1, conf.Join.PopulationTimeStamp)

	require.Error(t, decodeConfig(filepath.Join(dir, "missing.json"), &conf))
	require.Error(t, TrainConfig{}.validate())
}

func TestMemProfileIsWrittenToFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := &app{fs: fs}
	require.NoError(t, a.writeMemProfile())

	a.memprofile = "heap.pprof"
	require.NoError(t, a.writeMemProfile())
	info, err := fs.Stat("heap.pprof")
	require.NoError(t, err)
	require.Positive(t, info.Size())
	_, err = os.Stat("heap.pprof")
	require.True(t, os.IsNotExist(err))
}
