package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/star/conjunct/internal/catalog"
	"github.com/star/conjunct/internal/config"
	"github.com/star/conjunct/internal/conjunction"
	"github.com/star/conjunct/internal/logging"
	"github.com/star/conjunct/internal/tle"
)

var (
	configPath string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "conjunct",
	Short: "Two-satellite conjunction predictor",
	Long: "conjunct loads TLE catalogs, sweeps a forward time window for the closest approach\n" +
		"between two satellites and classifies the collision risk.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}

		// The server logs to stdout; CLI commands keep stdout for their output.
		var out io.Writer = os.Stderr
		if cmd == serveCmd {
			out = os.Stdout
		}
		logger = logging.New(out, level)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(configCmd)
}

// app is the wired core shared by every command.
type app struct {
	store     *catalog.Store
	refresher *catalog.Refresher
	predictor *conjunction.Predictor
}

// newApp wires the catalog and predictor from cfg. forceFetch enables
// downloads even when tle.enable_fetch is off.
func newApp(cfg *config.Config, logger *slog.Logger, forceFetch bool) *app {
	sources := make([]catalog.Source, 0, len(cfg.TLE.Sources))
	for _, s := range cfg.TLE.Sources {
		sources = append(sources, catalog.Source{Name: s.Name, URL: s.URL})
	}

	var fetcher catalog.Fetcher
	if cfg.TLE.EnableFetch || forceFetch {
		fetcher = tle.NewFetcher(logger)
	}

	store := catalog.NewStore()
	refresher := catalog.NewRefresher(catalog.RefresherConfig{
		Store:   store,
		Loader:  catalog.NewLoader(nil, logger),
		Dir:     tle.NewSourceDir(cfg.TLE.Dir, cfg.TLE.MaxBackups),
		Sources: sources,
		Logger:  logger,
		Fetcher: fetcher,
	})

	predictor := conjunction.NewPredictor(store, conjunction.ModelPropagator{}, conjunction.Config{
		Window:     cfg.Conjunction.Window(),
		Step:       cfg.Conjunction.Step(),
		Workers:    cfg.Conjunction.Workers,
		MaxSamples: cfg.Conjunction.MaxSamples,
		Timeout:    cfg.Conjunction.Timeout,
	}, logger)

	return &app{store: store, refresher: refresher, predictor: predictor}
}
