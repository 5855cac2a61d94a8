package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BBox represents a geographic bounding box filter
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
	IsSet                          bool
}

// Contains checks if a point is within the bounding box
func (b *BBox) Contains(lat, lon float64) bool {
	if !b.IsSet {
		return true
	}
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// ParseBBox parses a bbox string in format "minlon,minlat,maxlon,maxlat"
func ParseBBox(s string) (*BBox, error) {
	if s == "" {
		return &BBox{IsSet: false}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values: minlon,minlat,maxlon,maxlat")
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox coordinate %q: %w", p, err)
		}
		coords[i] = v
	}

	bbox := &BBox{
		MinLon: coords[0],
		MinLat: coords[1],
		MaxLon: coords[2],
		MaxLat: coords[3],
		IsSet:  true,
	}

	if bbox.MinLon > bbox.MaxLon {
		return nil, fmt.Errorf("minlon (%f) must be <= maxlon (%f)", bbox.MinLon, bbox.MaxLon)
	}
	if bbox.MinLat > bbox.MaxLat {
		return nil, fmt.Errorf("minlat (%f) must be <= maxlat (%f)", bbox.MinLat, bbox.MaxLat)
	}

	return bbox, nil
}

// Config holds the global configuration for a tile generation run
type Config struct {
	// Input settings
	InputFile string
	BBox      *BBox // Geographic bounding box filter

	// Store settings
	StorePath  string // Path of the scratch arena file
	StoreSize  int64  // Initial arena capacity in bytes
	DenseNodes bool   // Flat-array node storage (contiguous ID domain)
	NodeHint   int    // Pre-size hint for the node store
	WayHint    int    // Pre-size hint for the way store

	// Output settings
	OutputDir  string
	Zoom       int  // Tile zoom level for rendering
	GzipOutput bool // Compress tile output

	// Processing settings
	Workers int

	// Logging and metrics
	Verbose         bool
	LogFile         string        // Path to log file (empty = no file logging)
	MetricsInterval time.Duration // Interval for system metrics logging
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BBox:            &BBox{},
		StorePath:       "./tilegen_store.bin",
		StoreSize:       1 << 30, // 1GB; reserve generously so the render phase never grows
		OutputDir:       "./tiles",
		Zoom:            14,
		Workers:         runtime.NumCPU(),
		MetricsInterval: 30 * time.Second,
	}
}

// Profile is the YAML form of the tunable subset of Config. A loaded
// profile overrides defaults and flag values for the fields it sets.
type Profile struct {
	StorePath  string `yaml:"store_path,omitempty"`
	StoreSize  int64  `yaml:"store_size,omitempty"`
	DenseNodes *bool  `yaml:"dense_nodes,omitempty"`
	NodeHint   int    `yaml:"node_hint,omitempty"`
	WayHint    int    `yaml:"way_hint,omitempty"`
	OutputDir  string `yaml:"output_dir,omitempty"`
	Zoom       int    `yaml:"zoom,omitempty"`
	Gzip       *bool  `yaml:"gzip,omitempty"`
	Workers    int    `yaml:"workers,omitempty"`
}

// LoadProfile reads a YAML profile and applies it to the config
func (c *Config) LoadProfile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to parse profile YAML: %w", err)
	}

	if p.StorePath != "" {
		c.StorePath = p.StorePath
	}
	if p.StoreSize > 0 {
		c.StoreSize = p.StoreSize
	}
	if p.DenseNodes != nil {
		c.DenseNodes = *p.DenseNodes
	}
	if p.NodeHint > 0 {
		c.NodeHint = p.NodeHint
	}
	if p.WayHint > 0 {
		c.WayHint = p.WayHint
	}
	if p.OutputDir != "" {
		c.OutputDir = p.OutputDir
	}
	if p.Zoom > 0 {
		c.Zoom = p.Zoom
	}
	if p.Gzip != nil {
		c.GzipOutput = *p.Gzip
	}
	if p.Workers > 0 {
		c.Workers = p.Workers
	}
	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.StorePath == "" {
		return fmt.Errorf("store path is required")
	}
	if c.StoreSize < 1<<20 {
		return fmt.Errorf("store size must be at least 1MB")
	}
	if c.Zoom < 0 || c.Zoom > 20 {
		return fmt.Errorf("zoom must be between 0 and 20")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.DenseNodes && c.NodeHint <= 0 {
		return fmt.Errorf("dense node storage requires a node hint for the ID extent")
	}
	return nil
}
