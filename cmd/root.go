package cmd

import (
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/tilegen-go/internal/config"
	"github.com/wegman-software/tilegen-go/internal/logger"
)

var (
	cfg             = config.DefaultConfig()
	verbose         bool
	logFile         string
	metricsInterval time.Duration
	profileFile     string
)

var rootCmd = &cobra.Command{
	Use:   "tilegen-go",
	Short: "In-memory OSM store and tile renderer",
	Long: `tilegen-go loads an OSM PBF extract into a memory-mapped entity store
and renders it into per-tile GeoJSON output.

Features:
  - Growable memory-mapped arena with offset-stable handles
  - Sparse or flat-array node storage for contiguous renumbered extracts
  - Multipolygon ring assembly from fragmented relation members
  - Parallel per-tile rendering through a derived-geometry cache
  - Lua scripting for ad hoc store queries`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg.Verbose = verbose
		cfg.LogFile = logFile
		cfg.MetricsInterval = metricsInterval

		if logFile != "" {
			logger.InitWithFile(verbose, logFile)
		} else {
			logger.Init(verbose)
		}

		if profileFile != "" {
			if err := cfg.LoadProfile(profileFile); err != nil {
				return err
			}
		}
		return nil
	},
}

// Execute runs the CLI. Errors propagate back through RunE so that
// deferred cleanup (store teardown in particular) always runs before
// the process exits.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logger.Get().Error("command failed", zap.Error(err))
	}
	logger.Sync()
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&profileFile, "profile", "", "YAML profile with store and output settings")
	rootCmd.PersistentFlags().StringVar(&cfg.StorePath, "store", cfg.StorePath, "Path of the scratch store file")
	rootCmd.PersistentFlags().Int64Var(&cfg.StoreSize, "store-size", cfg.StoreSize, "Initial store capacity in bytes")
	rootCmd.PersistentFlags().BoolVar(&cfg.DenseNodes, "dense-nodes", false, "Flat-array node storage (requires --node-hint covering the ID extent)")
	rootCmd.PersistentFlags().IntVar(&cfg.NodeHint, "node-hint", 0, "Pre-size hint for the node store")
	rootCmd.PersistentFlags().IntVar(&cfg.WayHint, "way-hint", 0, "Pre-size hint for the way store")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Number of parallel render workers")

	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", 30*time.Second, "Interval for system metrics logging (e.g., 10s, 1m)")
}

