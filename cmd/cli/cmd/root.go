package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/trace-callgraph/pkg/config"
	"github.com/trace-callgraph/pkg/telemetry"
	"github.com/trace-callgraph/pkg/utils"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger utils.Logger

	shutdownTelemetry telemetry.ShutdownFunc
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "trace-callgraph",
	Short: "Reconstruct call graphs from recorded execution traces",
	Long: `trace-callgraph rebuilds per-thread call trees from the call stack
intervals of an interval store and aggregates them into call graphs.

The store is either a JSON interval dump loaded in memory or a SQL database
(sqlite, mysql, postgres) holding imported traces. Every build produces flame
graph data (JSON, folded stacks, pprof), a function call graph and a summary
of the hottest functions and threads.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		level := utils.ParseLogLevel(cfg.Log.Level)
		if verbose {
			level = utils.LevelDebug
		}
		if cfg.Log.OutputPath != "" {
			fileLogger, err := utils.NewFileLogger(level, cfg.Log.OutputPath)
			if err != nil {
				return err
			}
			logger = fileLogger
		} else {
			logger = utils.NewLogger(level, cfg.Log.Format, os.Stdout)
		}
		utils.SetGlobalLogger(logger)

		shutdown, err := telemetry.Init(cmd.Context())
		if err != nil {
			logger.Warn("Telemetry disabled: %v", err)
			return nil
		}
		shutdownTelemetry = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTelemetry != nil {
			if err := shutdownTelemetry(context.Background()); err != nil {
				logger.Warn("Failed to flush telemetry: %v", err)
			}
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./config.yaml, ./configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Set dynamic example using actual binary name
	binName := BinName()
	rootCmd.Example = `  # Build one trace from a JSON interval dump
  ` + binName + ` build ./traces/run1.json

  # Import a dump into sqlite, then build it by trace id
  ` + binName + ` import ./traces/run1.json --id run1 -c sqlite.yaml
  ` + binName + ` build run1 -c sqlite.yaml

  # Build every dump in a directory with 8 workers and expose metrics
  ` + binName + ` batch ./traces/*.json -w 8 --metrics-addr :9090`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}
