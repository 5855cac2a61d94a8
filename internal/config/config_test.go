package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseBBox(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		isSet   bool
	}{
		{"empty string", "", false, false},
		{"valid bbox", "-0.5,51.3,0.3,51.7", false, true},
		{"with spaces", " -0.5, 51.3, 0.3, 51.7 ", false, true},
		{"too few values", "-0.5,51.3,0.3", true, false},
		{"not a number", "-0.5,51.3,0.3,abc", true, false},
		{"inverted lon", "0.3,51.3,-0.5,51.7", true, false},
		{"inverted lat", "-0.5,51.7,0.3,51.3", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bbox, err := ParseBBox(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bbox.IsSet != tt.isSet {
				t.Errorf("IsSet = %v, want %v", bbox.IsSet, tt.isSet)
			}
		})
	}
}

func TestBBoxContains(t *testing.T) {
	bbox, err := ParseBBox("-1,50,1,52")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if !bbox.Contains(51, 0) {
		t.Error("expected point inside bbox")
	}
	if bbox.Contains(53, 0) {
		t.Error("expected point outside bbox")
	}

	unset := &BBox{}
	if !unset.Contains(89, 179) {
		t.Error("unset bbox must contain everything")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := DefaultConfig()
		c.InputFile = "input.osm.pbf"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with input", func(c *Config) {}, false},
		{"missing input", func(c *Config) { c.InputFile = "" }, true},
		{"missing store path", func(c *Config) { c.StorePath = "" }, true},
		{"tiny store", func(c *Config) { c.StoreSize = 1024 }, true},
		{"zoom too high", func(c *Config) { c.Zoom = 25 }, true},
		{"no workers", func(c *Config) { c.Workers = 0 }, true},
		{"dense without hint", func(c *Config) { c.DenseNodes = true }, true},
		{"dense with hint", func(c *Config) { c.DenseNodes = true; c.NodeHint = 1000 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := `
store_size: 2097152
dense_nodes: true
node_hint: 5000
zoom: 12
gzip: true
workers: 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadProfile(path); err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}

	if cfg.StoreSize != 2097152 {
		t.Errorf("StoreSize = %d, want 2097152", cfg.StoreSize)
	}
	if !cfg.DenseNodes {
		t.Error("expected DenseNodes true")
	}
	if cfg.NodeHint != 5000 {
		t.Errorf("NodeHint = %d, want 5000", cfg.NodeHint)
	}
	if cfg.Zoom != 12 {
		t.Errorf("Zoom = %d, want 12", cfg.Zoom)
	}
	if !cfg.GzipOutput {
		t.Error("expected GzipOutput true")
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}

	// Fields absent from the profile keep their defaults
	if cfg.OutputDir != "./tiles" {
		t.Errorf("OutputDir = %q, want default", cfg.OutputDir)
	}
}

func TestLoadProfileMissingFile(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.LoadProfile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing profile")
	}
}
