package main

import (
	"errors"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"menu-forecast/internal/config"
	"menu-forecast/internal/logging"
)

// errNoForecasts makes the process exit non-zero when nothing was generated.
var errNoForecasts = errors.New("no forecasts generated")

// flags shared by every subcommand
type rootFlags struct {
	configPath string
	onlyEntity string
	outputDir  string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:           "forecast",
		Short:         "Per-menu demand forecasting and backtesting",
		Long:          `Builds daily sales series, backtests a baseline against a candidate model per menu, and saves the winning 7-day forecast.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&f.configPath, "config", "", "Path to YAML config (defaults apply when empty)")
	root.PersistentFlags().StringVar(&f.onlyEntity, "only-entity", "", "Process a single entity id")
	root.PersistentFlags().StringVar(&f.outputDir, "output-dir", "", "Report directory (overrides report.output_dir)")

	root.AddCommand(newRunCmd(f), newBacktestCmd(f), newSeriesCmd(f))
	return root
}

// load reads the config and builds the logger for a command.
func (f *rootFlags) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadWithEnv(f.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if f.outputDir != "" {
		cfg.Report.OutputDir = f.outputDir
	}

	log, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}

func (f *rootFlags) entity() (*int64, error) {
	if f.onlyEntity == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(f.onlyEntity, 10, 64)
	if err != nil {
		return nil, errors.New("--only-entity must be an integer id")
	}
	return &id, nil
}
