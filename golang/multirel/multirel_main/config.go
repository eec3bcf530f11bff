package main

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/decisiontree"
	"github.com/tarstars/relational_features/golang/multirel/descriptors"
	"github.com/tarstars/relational_features/golang/multirel/ensemble"
)

//TrainConfig holds the ensemble parameters at the top level next to the file names.
type TrainConfig struct {
	ensemble.Params `mapstructure:",squash"`

	Tables         decisiontree.InputSpec `mapstructure:"tables"`
	FileNameTarget string                 `mapstructure:"filename_target"`
	FileNameModel  string                 `mapstructure:"filename_model"`
}

type TransformConfig struct {
	Tables           decisiontree.InputSpec `mapstructure:"tables"`
	FileNameModel    string                 `mapstructure:"filename_model"`
	FileNameFeatures string                 `mapstructure:"filename_features"`
}

type GraphConfig struct {
	Tables            decisiontree.InputSpec `mapstructure:"tables"`
	FileNameModel     string                 `mapstructure:"filename_model"`
	FigureType        string                 `mapstructure:"figure_type"`
	PicturesDirectory string                 `mapstructure:"pictures_directory"`
	DumpPrefix        string                 `mapstructure:"dump_prefix"`
}

type SQLConfig struct {
	Tables        decisiontree.InputSpec `mapstructure:"tables"`
	FileNameModel string                 `mapstructure:"filename_model"`
	FileNameSQL   string                 `mapstructure:"filename_sql"`
	FeaturePrefix string                 `mapstructure:"feature_prefix"`
}

type ImportancesConfig struct {
	Tables              decisiontree.InputSpec `mapstructure:"tables"`
	FileNameModel       string                 `mapstructure:"filename_model"`
	FileNameImportances string                 `mapstructure:"filename_importances"`
}

func defaultTrainConfig() TrainConfig {
	return TrainConfig{Params: ensemble.Params{
		Join: containers.NewJoinSpec(0, 0),
		Tree: descriptors.DefaultTreeParams(),
	}}
}

func defaultGraphConfig() GraphConfig {
	return GraphConfig{FigureType: "svg", PicturesDirectory: ".", DumpPrefix: "tree"}
}

func defaultSQLConfig() SQLConfig {
	return SQLConfig{FeaturePrefix: "feature"}
}

//decodeConfig reads a config file on top of the defaults already held by out.
func decodeConfig(srcConfig string, out any) error {
	v := viper.New()
	v.SetConfigFile(srcConfig)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", srcConfig, err)
	}
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	if err := v.Unmarshal(out, viper.DecodeHook(hook)); err != nil {
		return fmt.Errorf("unmarshal config %s: %w", srcConfig, err)
	}
	return nil
}

func (c TrainConfig) validate() error {
	if c.FileNameTarget == "" || c.FileNameModel == "" {
		return fmt.Errorf("filename_target and filename_model are required")
	}
	return nil
}
