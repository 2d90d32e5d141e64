package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"eyescream-forge/internal/bundle"
	"eyescream-forge/internal/config"
	"eyescream-forge/internal/dataset"
	"eyescream-forge/internal/gan"
	"eyescream-forge/internal/session"
)

func main() {
	cfgPath := flag.String("config", "configs/demo.yaml", "Path to YAML config")
	dataDirs := flag.String("data-dirs", "", "Comma separated image directories")
	batchSize := flag.Int("batch-size", 0, "Forward pass chunk size")
	rounds := flag.Int("rounds", 0, "Number of sampling rounds")
	samples := flag.Int("samples", 0, "Images generated per round")
	seed := flag.Uint64("seed", 0, "PRNG seed")
	logEvery := flag.Int("log-every", 0, "Log every N rounds")
	accelerator := flag.Bool("accelerator", false, "Place networks on the accelerator")
	checkpointIn := flag.String("checkpoint-in", "", "Restore networks from this checkpoint")
	checkpointOut := flag.String("checkpoint-out", "", "Write networks to this checkpoint")
	ingest := flag.String("ingest", "", "Store and augment this image before running")
	restore := flag.String("restore", "", "Restore a bundle into the checkpoint and augmented image dirs before running")
	bundleOut := flag.String("bundle-out", "", "Write checkpoint and augmented images to this bundle after running")

	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var dirs []string
	if *dataDirs != "" {
		dirs = strings.Split(*dataDirs, ",")
	}
	cfg.ApplyOverrides(config.Overrides{
		DataDirs:      dirs,
		BatchSize:     *batchSize,
		Rounds:        *rounds,
		Samples:       *samples,
		Seed:          *seed,
		LogEvery:      *logEvery,
		Accelerator:   *accelerator,
		CheckpointIn:  *checkpointIn,
		CheckpointOut: *checkpointOut,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *restore != "" {
		networks, err := restoreBundle(ctx, *restore, cfg)
		if err != nil {
			log.Fatalf("restore %s: %v", *restore, err)
		}
		if cfg.CheckpointIn == "" && len(networks) > 0 {
			cfg.CheckpointIn = networks[0]
		}
	}

	if *ingest != "" {
		if err := ingestFile(*ingest, cfg); err != nil {
			log.Fatalf("ingest %s: %v", *ingest, err)
		}
	}

	runCfg := session.RunConfig{
		Dataset: dataset.Options{
			Dirs:      cfg.DataDirs,
			Extension: cfg.Extension,
			Scale:     cfg.Scale,
			Channels:  cfg.Channels,
			Seed:      cfg.Seed,
		},
		Shape: gan.Shape{
			Channels: cfg.Channels,
			Scale:    cfg.Scale,
			NoiseDim: cfg.NoiseDim,
			Hidden:   cfg.HiddenDim,
		},
		BatchSize:     cfg.BatchSize,
		Autoencoder:   cfg.Autoencoder,
		Denoiser:      cfg.Denoiser,
		Accelerator:   cfg.Accelerator,
		WeightRange:   cfg.WeightRange,
		BiasRange:     cfg.BiasRange,
		Seed:          cfg.Seed,
		Rounds:        cfg.Rounds,
		Samples:       cfg.Samples,
		Keep:          cfg.Keep,
		LogEvery:      cfg.LogEvery,
		CheckpointIn:  cfg.CheckpointIn,
		CheckpointOut: cfg.CheckpointOut,
		GridOut:       cfg.GridOut,
		HistogramOut:  cfg.HistogramOut,
	}

	res, err := session.Run(ctx, runCfg)
	if err != nil {
		log.Fatalf("session failed: %v", err)
	}
	log.Printf("done top=%d real_scores=%d fake_scores=%d", len(res.Top), len(res.RealScores), len(res.FakeScores))

	if *bundleOut != "" {
		if err := writeBundle(*bundleOut, cfg.CheckpointOut, cfg.AugDir); err != nil {
			log.Fatalf("bundle %s: %v", *bundleOut, err)
		}
	}
}

func restoreBundle(ctx context.Context, path string, cfg *config.Config) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	networkDir := "."
	if cfg.CheckpointOut != "" {
		networkDir = filepath.Dir(cfg.CheckpointOut)
	}
	networks, stats, err := bundle.Restore(ctx, f, networkDir, cfg.AugDir)
	if err != nil {
		return nil, err
	}
	log.Printf("restored bundle=%s networks=%d images=%d bytes=%d", path, stats.Networks, stats.Images, stats.Bytes)
	return networks, nil
}

// ingestFile stores path under the input dir and regenerates the scaled
// copies the session trains on.
func ingestFile(path string, cfg *config.Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out, err := dataset.Ingest(f, cfg.InputDir, name)
	if err != nil {
		return err
	}
	log.Printf("ingested=%s", out)
	_, err = dataset.Augment(cfg.InputDir, cfg.AugDir, cfg.UnaugDir, cfg.Scale)
	return err
}

func writeBundle(path, checkpointPath, imageDir string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	stats, err := bundle.Write(f, checkpointPath, imageDir, "jpg")
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	log.Printf("bundle=%s networks=%d images=%d bytes=%d", path, stats.Networks, stats.Images, stats.Bytes)
	return nil
}
