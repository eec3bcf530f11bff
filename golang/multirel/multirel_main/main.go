package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tarstars/relational_features/golang/multirel/aggregation"
	"github.com/tarstars/relational_features/golang/multirel/containers"
	"github.com/tarstars/relational_features/golang/multirel/ensemble"
)

type app struct {
	fs             afero.Fs
	configPath     string
	logLevel       string
	logEncoding    string
	memprofile     string
	metricsAddress string
	logger         *zap.Logger
}

func newLogger(level, encoding string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if encoding == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	return cfg.Build()
}

func (a *app) writeMemProfile() error {
	if a.memprofile == "" {
		return nil
	}
	f, err := a.fs.Create(a.memprofile)
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}
	return f.Close()
}

//serveMetrics exposes the prometheus counters until the returned function is called.
func (a *app) serveMetrics() func() {
	if a.metricsAddress == "" {
		return func() {}
	}
	server := &http.Server{Addr: a.metricsAddress, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("address", a.metricsAddress))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			a.logger.Error("failed to stop metrics server", zap.Error(err))
		}
	}
}

func (a *app) train(ctx context.Context) error {
	conf := defaultTrainConfig()
	if err := decodeConfig(a.configPath, &conf); err != nil {
		return err
	}
	if err := conf.validate(); err != nil {
		return err
	}
	if len(conf.Aggregations) == 0 {
		conf.Aggregations = aggregation.Kinds()
	}

	input, err := readInput(a.fs, conf.Tables, a.logger)
	if err != nil {
		return err
	}
	targets, err := containers.ReadNpy(a.fs, conf.FileNameTarget)
	if err != nil {
		return err
	}

	stop := a.serveMetrics()
	defer stop()
	clf, err := ensemble.Fit(ctx, input, targets, conf.Params, a.logger)
	if err != nil {
		return err
	}
	return clf.Save(a.fs, conf.FileNameModel)
}

func (a *app) transform() error {
	var conf TransformConfig
	if err := decodeConfig(a.configPath, &conf); err != nil {
		return err
	}
	clf, err := ensemble.Load(a.fs, conf.FileNameModel, a.logger)
	if err != nil {
		return err
	}
	input, err := readInput(a.fs, conf.Tables, a.logger)
	if err != nil {
		return err
	}
	features, err := clf.Transform(input)
	if err != nil {
		return err
	}
	return writeNpy(conf.FileNameFeatures, features)
}

func (a *app) graph() error {
	conf := defaultGraphConfig()
	if err := decodeConfig(a.configPath, &conf); err != nil {
		return err
	}
	clf, err := ensemble.Load(a.fs, conf.FileNameModel, a.logger)
	if err != nil {
		return err
	}
	input, err := readInput(a.fs, conf.Tables, a.logger)
	if err != nil {
		return err
	}
	return clf.RenderTrees(input, conf.DumpPrefix, conf.FigureType, conf.PicturesDirectory)
}

func (a *app) sql() error {
	conf := defaultSQLConfig()
	if err := decodeConfig(a.configPath, &conf); err != nil {
		return err
	}
	clf, err := ensemble.Load(a.fs, conf.FileNameModel, a.logger)
	if err != nil {
		return err
	}
	input, err := readInput(a.fs, conf.Tables, a.logger)
	if err != nil {
		return err
	}
	return writeSQL(conf.FileNameSQL, clf.ToSQL(input, conf.FeaturePrefix))
}

func (a *app) importances() error {
	var conf ImportancesConfig
	if err := decodeConfig(a.configPath, &conf); err != nil {
		return err
	}
	clf, err := ensemble.Load(a.fs, conf.FileNameModel, a.logger)
	if err != nil {
		return err
	}
	input, err := readInput(a.fs, conf.Tables, a.logger)
	if err != nil {
		return err
	}
	return writeJSON(conf.FileNameImportances, clf.ColumnImportances(input))
}

func rootCommand(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs, logger: zap.NewNop()}
	root := &cobra.Command{
		Use:          "multirel",
		Short:        "relational decision trees turning a peripheral table into features of a population table",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			logger, err := newLogger(a.logLevel, a.logEncoding)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			_ = a.logger.Sync()
			return a.writeMemProfile()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "multirel_config.json", "a config file for the run of the program")
	flags.StringVar(&a.logLevel, "log-level", "info", "debug, info, warn or error")
	flags.StringVar(&a.logEncoding, "log-encoding", "console", "console or json")
	flags.StringVar(&a.memprofile, "memprofile", "", "write memory profile to `file`")

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "fit the candidate trees and save the best of them",
		RunE: func(c *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(c.Context(), os.Interrupt)
			defer cancel()
			return a.train(ctx)
		},
	}
	trainCmd.Flags().StringVar(&a.metricsAddress, "metrics-address", "", "serve prometheus metrics on this address while training")

	root.AddCommand(
		trainCmd,
		&cobra.Command{
			Use:   "transform",
			Short: "compute the features of a saved model",
			RunE:  func(*cobra.Command, []string) error { return a.transform() },
		},
		&cobra.Command{
			Use:   "graph",
			Short: "render the trees of a saved model",
			RunE:  func(*cobra.Command, []string) error { return a.graph() },
		},
		&cobra.Command{
			Use:   "sql",
			Short: "export the features of a saved model as SQL queries",
			RunE:  func(*cobra.Command, []string) error { return a.sql() },
		},
		&cobra.Command{
			Use:   "importances",
			Short: "write the normalized column importances of a saved model",
			RunE:  func(*cobra.Command, []string) error { return a.importances() },
		},
	)
	return root
}

func main() {
	if err := rootCommand(afero.NewOsFs()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
