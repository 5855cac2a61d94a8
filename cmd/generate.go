package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/tilegen-go/internal/config"
	"github.com/wegman-software/tilegen-go/internal/loader"
	"github.com/wegman-software/tilegen-go/internal/logger"
	"github.com/wegman-software/tilegen-go/internal/pipeline"
	"github.com/wegman-software/tilegen-go/internal/sink"
	"github.com/wegman-software/tilegen-go/internal/store"
	"github.com/wegman-software/tilegen-go/internal/tile"
)

var (
	bboxStr    string
	gzipOutput bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <input.osm.pbf>",
	Short: "Load an extract and render tiles",
	Long: `Run the full pipeline:

  1. Load nodes, ways and relations into the memory-mapped store,
     binning renderable elements into the tile index
  2. Render every indexed tile in parallel, assembling way and
     relation geometry through the derived-geometry cache
  3. Write one GeoJSON feature collection per tile (z/x/y layout)`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Directory for tile output")
	generateCmd.Flags().IntVarP(&cfg.Zoom, "zoom", "z", cfg.Zoom, "Tile zoom level")
	generateCmd.Flags().StringVarP(&bboxStr, "bbox", "b", "", "Bounding box filter: minlon,minlat,maxlon,maxlat")
	generateCmd.Flags().BoolVar(&gzipOutput, "gzip", false, "Gzip tile output")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg.InputFile = args[0]
	if cmd.Flags().Changed("gzip") {
		cfg.GzipOutput = gzipOutput
	}
	log := logger.Get()

	bbox, err := config.ParseBBox(bboxStr)
	if err != nil {
		return fmt.Errorf("invalid bbox: %w", err)
	}
	cfg.BBox = bbox

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	totalStart := time.Now()

	logFields := []zap.Field{
		zap.String("input", cfg.InputFile),
		zap.String("output", cfg.OutputDir),
		zap.Int("zoom", cfg.Zoom),
		zap.Int("workers", cfg.Workers),
		zap.Bool("dense_nodes", cfg.DenseNodes),
	}
	if cfg.BBox.IsSet {
		logFields = append(logFields, zap.String("bbox",
			fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", cfg.BBox.MinLon, cfg.BBox.MinLat, cfg.BBox.MaxLon, cfg.BBox.MaxLat)))
	}
	log.Info("Starting tilegen-go", logFields...)

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

	idx := tile.NewIndex(cfg.Zoom)

	loadStats, err := loader.New(cfg, st, idx).Run(ctx)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	out, err := sink.NewGeoJSON(cfg.OutputDir, cfg.GzipOutput)
	if err != nil {
		return fmt.Errorf("failed to create output sink: %w", err)
	}

	renderStats, err := pipeline.NewCoordinator(cfg, st, idx, out).Run(ctx)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	totalElapsed := time.Since(totalStart)
	log.Info("Generation complete",
		zap.Duration("total_time", totalElapsed.Round(time.Second)),
		zap.Int64("nodes", loadStats.Nodes),
		zap.Int64("ways", loadStats.Ways),
		zap.Int64("relations", loadStats.Relations),
		zap.Int64("tiles", renderStats.TilesRendered),
		zap.Int64("points", renderStats.Points),
		zap.Int64("lines", renderStats.Lines),
		zap.Int64("polygons", renderStats.Polygons),
	)
	return nil
}
