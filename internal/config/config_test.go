package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const demo = `
# demo session
data_dirs: ["data/aug_64x64", "data/unaug_64x64"]
extension: jpg
scale: 32
channels: 3
batch_size: 16
noise_dim: 100
hidden_dim: 256
autoencoder: true
rounds: 4
samples: 32
keep: 8
checkpoint_out: tmp/network/adversarial.net
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, demo))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.DataDirs) != 2 || cfg.DataDirs[1] != "data/unaug_64x64" {
		t.Fatalf("unexpected data dirs %v", cfg.DataDirs)
	}
	if !cfg.Autoencoder || cfg.Denoiser {
		t.Fatalf("unexpected network flags ae=%v denoiser=%v", cfg.Autoencoder, cfg.Denoiser)
	}
	if cfg.WeightRange != 0.005 || cfg.BiasRange != 0.001 {
		t.Fatalf("init ranges not defaulted: %g %g", cfg.WeightRange, cfg.BiasRange)
	}
	if cfg.InputDir != "data/input" || cfg.AugDir != "data/aug_64x64" || cfg.UnaugDir != "data/unaug_64x64" {
		t.Fatalf("unexpected augment dirs input=%s aug=%s unaug=%s", cfg.InputDir, cfg.AugDir, cfg.UnaugDir)
	}
	if cfg.Keep != 8 || cfg.LogEvery != 1 {
		t.Fatalf("unexpected keep=%d log_every=%d", cfg.Keep, cfg.LogEvery)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, demo+"learning_rate: 0.1\n"))
	if err == nil || !strings.Contains(err.Error(), "learning_rate") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"no dirs":    func(c *Config) { c.DataDirs = nil },
		"channels":   func(c *Config) { c.Channels = 2 },
		"batch size": func(c *Config) { c.BatchSize = 0 },
		"noise dim":  func(c *Config) { c.NoiseDim = -1 },
		"rounds":     func(c *Config) { c.Rounds = 0 },
		"range":      func(c *Config) { c.WeightRange = -1 },
	}
	for name, mutate := range cases {
		cfg, err := parseYAML(strings.NewReader(demo))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, demo))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.ApplyOverrides(Overrides{DataDirs: []string{"other"}, BatchSize: 4, Seed: 9, Accelerator: true})
	if cfg.DataDirs[0] != "other" || cfg.BatchSize != 4 || cfg.Seed != 9 || !cfg.Accelerator {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Rounds != 4 {
		t.Fatalf("zero override changed rounds to %d", cfg.Rounds)
	}
}
