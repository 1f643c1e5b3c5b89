package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("embedded defaults do not validate: %v", err)
	}
	if cfg.World.Width <= 0 || cfg.World.Height <= 0 {
		t.Error("defaults carry no world dimensions")
	}
	if len(cfg.Population.Initial) == 0 {
		t.Error("defaults seed no initial population")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("world:\n  width: 25\n  height: 25\nseed: 7\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.World.Width != 25 || cfg.World.Height != 25 {
		t.Errorf("world %dx%d, want 25x25", cfg.World.Width, cfg.World.Height)
	}
	if cfg.Seed != 7 {
		t.Errorf("seed %d, want 7", cfg.Seed)
	}
	// Fields the file does not name keep their defaults.
	if cfg.Population.Max != Default().Population.Max {
		t.Error("unnamed field lost its default")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.World.Width = 0
	cfg.Mutation.Rate = 1.5
	cfg.Population.Max = -1

	err := cfg.Validate()
	var invalid *InvalidConfigurationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidConfigurationError, got %v", err)
	}
	if len(invalid.Problems) < 3 {
		t.Errorf("expected all 3 violations reported, got %d: %v", len(invalid.Problems), invalid.Problems)
	}
}

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"defaults", func(*Config) {}, true},
		{"cell size exceeds world", func(c *Config) { c.World.CellSize = c.World.Width + 1 }, false},
		{"zero cell size", func(c *Config) { c.World.CellSize = 0 }, false},
		{"negative magnitude", func(c *Config) { c.Mutation.Magnitude = -0.1 }, false},
		{"rate at one", func(c *Config) { c.Mutation.Rate = 1.0 }, true},
		{"initial exceeds max", func(c *Config) { c.Population.Max = 5 }, false},
		{"zero telemetry window", func(c *Config) { c.Telemetry.Window = 0 }, false},
		{"untagged spawn group", func(c *Config) { c.Population.Initial[0].Tag = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Seed = 99
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Seed != 99 {
		t.Errorf("seed %d after round trip, want 99", loaded.Seed)
	}
}

func TestInvalidConfigurationErrorMessage(t *testing.T) {
	err := &InvalidConfigurationError{Problems: []string{"a", "b"}}
	if !strings.Contains(err.Error(), "a; b") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
