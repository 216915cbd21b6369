package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Tuning.DefaultWidth != 100 {
		t.Errorf("expected default width 100, got %d", cfg.Tuning.DefaultWidth)
	}
	if cfg.Tuning.CacheShards != 16 {
		t.Errorf("expected 16 cache shards, got %d", cfg.Tuning.CacheShards)
	}
	if cfg.Tuning.Workers != 0 {
		t.Errorf("expected worker count 0 (meaning runtime.NumCPU), got %d", cfg.Tuning.Workers)
	}
}

func TestLoadNonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/goddo.yaml")
	if err != nil {
		t.Fatalf("expected no error for a missing file, got: %v", err)
	}
	if cfg.Tuning.DefaultWidth != 100 {
		t.Errorf("expected default config, got width %d", cfg.Tuning.DefaultWidth)
	}
}

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "goddo.yaml")

	content := `
tuning:
  workers: 4
  default_width: 50
  cutoff_seconds: 30
  cache_shards: 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tuning.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Tuning.Workers)
	}
	if cfg.Tuning.DefaultWidth != 50 {
		t.Errorf("expected width 50, got %d", cfg.Tuning.DefaultWidth)
	}
	if cfg.Tuning.CutoffSeconds != 30 {
		t.Errorf("expected cutoff 30s, got %d", cfg.Tuning.CutoffSeconds)
	}
	if cfg.Tuning.CacheShards != 8 {
		t.Errorf("expected 8 cache shards, got %d", cfg.Tuning.CacheShards)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "goddo.yaml")

	want := Config{Tuning: Tuning{Workers: 2, DefaultWidth: 10, CacheShards: 4}}
	if err := Save(want, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "goddo.yaml")
	if err := Save(DefaultConfig(), path); err != nil {
		t.Fatal(err)
	}

	changes := make(chan Tuning, 1)
	w := NewWatcher(path, func(tu Tuning) { changes <- tu }, func(error) {})
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	updated := Config{Tuning: Tuning{Workers: 7, DefaultWidth: 200, CacheShards: 32}}
	if err := Save(updated, path); err != nil {
		t.Fatal(err)
	}

	select {
	case tu := <-changes:
		if tu.Workers != 7 {
			t.Errorf("expected reloaded workers=7, got %d", tu.Workers)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
