package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime knobs for a sampling session.
type Config struct {
	DataDirs  []string `yaml:"data_dirs"`
	Extension string   `yaml:"extension"`
	Scale     int      `yaml:"scale"`
	Channels  int      `yaml:"channels"`

	InputDir string `yaml:"input_dir"`
	AugDir   string `yaml:"aug_dir"`
	UnaugDir string `yaml:"unaug_dir"`

	BatchSize   int     `yaml:"batch_size"`
	NoiseDim    int     `yaml:"noise_dim"`
	HiddenDim   int     `yaml:"hidden_dim"`
	Autoencoder bool    `yaml:"autoencoder"`
	Denoiser    bool    `yaml:"denoiser"`
	Accelerator bool    `yaml:"accelerator"`
	WeightRange float64 `yaml:"weight_range"`
	BiasRange   float64 `yaml:"bias_range"`

	Seed     uint64 `yaml:"seed"`
	Rounds   int    `yaml:"rounds"`
	Samples  int    `yaml:"samples"`
	Keep     int    `yaml:"keep"`
	LogEvery int    `yaml:"log_every"`

	CheckpointIn  string `yaml:"checkpoint_in"`
	CheckpointOut string `yaml:"checkpoint_out"`
	GridOut       string `yaml:"grid_out"`
	HistogramOut  string `yaml:"histogram_out"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	DataDirs      []string
	BatchSize     int
	Rounds        int
	Samples       int
	Seed          uint64
	LogEvery      int
	Accelerator   bool
	CheckpointIn  string
	CheckpointOut string
}

// Load reads and validates a Config from YAML.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := parseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if len(o.DataDirs) > 0 {
		c.DataDirs = append([]string(nil), o.DataDirs...)
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Rounds > 0 {
		c.Rounds = o.Rounds
	}
	if o.Samples > 0 {
		c.Samples = o.Samples
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.Accelerator {
		c.Accelerator = true
	}
	if o.CheckpointIn != "" {
		c.CheckpointIn = o.CheckpointIn
	}
	if o.CheckpointOut != "" {
		c.CheckpointOut = o.CheckpointOut
	}
}

// Validate verifies the config is runnable and fills defaults.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.DataDirs) == 0 {
		return errors.New("at least one data dir must be set")
	}
	if c.Extension == "" {
		c.Extension = "jpg"
	}
	if c.InputDir == "" {
		c.InputDir = filepath.Join(filepath.Dir(c.DataDirs[0]), "input")
	}
	if c.AugDir == "" {
		c.AugDir = c.DataDirs[0]
	}
	if c.UnaugDir == "" {
		// data/aug_64x64 pairs with data/unaug_64x64
		c.UnaugDir = filepath.Join(filepath.Dir(c.AugDir), "un"+filepath.Base(c.AugDir))
	}
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be > 0 (got %d)", c.Scale)
	}
	if c.Channels != 1 && c.Channels != 3 {
		return fmt.Errorf("channels must be 1 or 3 (got %d)", c.Channels)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.NoiseDim <= 0 {
		return fmt.Errorf("noise_dim must be > 0 (got %d)", c.NoiseDim)
	}
	if c.HiddenDim <= 0 {
		return fmt.Errorf("hidden_dim must be > 0 (got %d)", c.HiddenDim)
	}
	if c.Rounds <= 0 {
		return fmt.Errorf("rounds must be > 0 (got %d)", c.Rounds)
	}
	if c.Samples <= 0 {
		return fmt.Errorf("samples must be > 0 (got %d)", c.Samples)
	}
	if c.WeightRange < 0 || c.BiasRange < 0 {
		return fmt.Errorf("weight_range and bias_range must be >= 0 (got %g, %g)", c.WeightRange, c.BiasRange)
	}
	if c.WeightRange == 0 {
		c.WeightRange = 0.005
	}
	if c.BiasRange == 0 {
		c.BiasRange = 0.001
	}
	if c.Keep <= 0 || c.Keep > c.Samples {
		c.Keep = c.Samples
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 1
	}
	return nil
}

func parseYAML(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}
