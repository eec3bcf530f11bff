package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/sbinet/npyio"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/tarstars/relational_features/golang/multirel/decisiontree"
)

func readInput(fs afero.Fs, tables decisiontree.InputSpec, logger *zap.Logger) (decisiontree.Input, error) {
	input, err := decisiontree.ReadInput(fs, tables)
	if err != nil {
		return decisiontree.Input{}, err
	}
	logger.Info("tables loaded",
		zap.String("population", input.Population.Name),
		zap.Int("population_rows", input.Population.NumRows()),
		zap.String("peripheral", input.Peripheral.Name),
		zap.Int("peripheral_rows", input.Peripheral.NumRows()),
		zap.Int("subfeatures", len(input.Subfeatures)),
	)
	return input, nil
}

func writeNpy(fileName string, m *mat.Dense) error {
	var buf bytes.Buffer
	if err := npyio.Write(&buf, m); err != nil {
		return fmt.Errorf("encode %s: %w", fileName, err)
	}
	if err := atomic.WriteFile(fileName, &buf); err != nil {
		return fmt.Errorf("write %s: %w", fileName, err)
	}
	return nil
}

func writeSQL(fileName string, queries []string) error {
	if err := atomic.WriteFile(fileName, strings.NewReader(strings.Join(queries, "\n"))); err != nil {
		return fmt.Errorf("write %s: %w", fileName, err)
	}
	return nil
}

func writeJSON(fileName string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", fileName, err)
	}
	if err := atomic.WriteFile(fileName, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", fileName, err)
	}
	return nil
}
