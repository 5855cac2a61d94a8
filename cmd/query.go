package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/tilegen-go/internal/loader"
	"github.com/wegman-software/tilegen-go/internal/logger"
	"github.com/wegman-software/tilegen-go/internal/script"
	"github.com/wegman-software/tilegen-go/internal/store"
	"github.com/wegman-software/tilegen-go/internal/tile"
)

var queryCmd = &cobra.Command{
	Use:   "query <input.osm.pbf> <script.lua>",
	Short: "Load an extract and run a Lua script against the store",
	Long: `Load the extract into the store, then execute a Lua script with the
tilegen API available:

  tilegen.node(id)          lat/lon of a node
  tilegen.way(id)           node IDs and closed flag of a way
  tilegen.relation(id)      outer and inner member lists
  tilegen.linestring(id)    way coordinates
  tilegen.multipolygon(id)  assembled relation rings
  tilegen.stats()           store cardinalities and arena usage
  tilegen.report(msg)       log through the structured logger`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg.InputFile = args[0]
	scriptFile := args[1]
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(store.Options{
		Path:       cfg.StorePath,
		Capacity:   cfg.StoreSize,
		DenseNodes: cfg.DenseNodes,
		NodeHint:   cfg.NodeHint,
		WayHint:    cfg.WayHint,
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	// The arena file is scratch; teardown removes it on every exit path
	defer st.Close()

	// The query path still needs the index argument but never renders
	idx := tile.NewIndex(cfg.Zoom)

	start := time.Now()
	if _, err := loader.New(cfg, st, idx).Run(ctx); err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	rt := script.NewRuntime(st)
	defer rt.Close()

	if err := rt.RunFile(scriptFile); err != nil {
		return fmt.Errorf("script failed: %w", err)
	}

	log.Info("Query complete",
		zap.String("script", scriptFile),
		zap.Duration("total_time", time.Since(start).Round(time.Second)))
	return nil
}
