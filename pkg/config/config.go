// Package config loads goddo's solver tuning parameters from an optional
// YAML file, following the same "sensible defaults, YAML overrides" shape
// as vanderheijden86-beadwork/pkg/config's b9s config loader.
//
// Unlike b9s, goddo has no XDG config directory convention of its own — a
// solve is invoked with an explicit config path (or none, meaning
// defaults), since goddo is a library plus a CLI driven by job files rather
// than a per-user interactive tool.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the solver-tuning knobs a long-running solve may want to
// adjust without restarting: worker count, default MDD width, and the
// wall-clock budget a cutoff enforces.
type Tuning struct {
	// Workers is the number of parallel branch-and-bound worker goroutines.
	// Zero means runtime.NumCPU() (pkg/bnb.Config's own default).
	Workers int `yaml:"workers,omitempty"`

	// DefaultWidth is the MDD width used when a Problem-specific width
	// policy isn't supplied.
	DefaultWidth int `yaml:"default_width,omitempty"`

	// CutoffSeconds bounds wall-clock time before the solver aborts with
	// best_lb so far (0 disables the time cutoff).
	CutoffSeconds int `yaml:"cutoff_seconds,omitempty"`

	// CacheShards is a shard count for the threshold cache. pkg/ddo.Cache
	// does not read it: its shard count is the fixed constant shardCount.
	CacheShards int `yaml:"cache_shards,omitempty"`
}

// Config is the top-level goddo configuration file.
type Config struct {
	Tuning Tuning `yaml:"tuning,omitempty"`
}

// DefaultConfig returns a Config with the solver's built-in defaults.
func DefaultConfig() Config {
	return Config{
		Tuning: Tuning{
			Workers:       0,
			DefaultWidth:  100,
			CutoffSeconds: 0,
			CacheShards:   16,
		},
	}
}

// Load reads a config file from path. A missing file is not an error —
// DefaultConfig is returned instead, the same "absent file means defaults"
// convention as b9s's config.Load.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
