// Package session runs sampling rounds against a dataset: it builds or
// restores the networks, compares discriminator scores on real and generated
// images, writes sample artifacts and checkpoints the result.
package session

import (
	"context"
	"log"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/pkg/errors"

	"eyescream-forge/internal/checkpoint"
	"eyescream-forge/internal/dataset"
	"eyescream-forge/internal/gan"
	"eyescream-forge/internal/metrics"
	"eyescream-forge/internal/nn"
	"eyescream-forge/internal/render"
	"eyescream-forge/internal/tensor"
)

// RunConfig captures the knobs required by a session.
type RunConfig struct {
	Dataset     dataset.Options
	Shape       gan.Shape
	BatchSize   int
	Autoencoder bool
	Denoiser    bool
	Accelerator bool
	WeightRange float64
	BiasRange   float64
	Seed        uint64
	Rounds      int
	Samples     int
	Keep        int
	LogEvery    int

	CheckpointIn  string
	CheckpointOut string
	GridOut       string
	HistogramOut  string
}

// Result summarizes a finished session.
type Result struct {
	Top             []gan.Ranked // best generated images of the last round
	RealScores      []float64
	FakeScores      []float64
	Parameters      map[string]int
	CheckpointBytes int64
}

// Run executes the session.
func Run(ctx context.Context, cfg RunConfig) (Result, error) {
	var res Result
	if cfg.Rounds <= 0 {
		return res, errors.New("session: rounds must be > 0")
	}
	if cfg.Samples <= 0 {
		return res, errors.New("session: samples must be > 0")
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 1
	}

	nets, err := buildNetworks(cfg)
	if err != nil {
		return res, err
	}
	res.Parameters = make(map[string]int)
	for _, name := range sortedNames(nets.Named()) {
		n := nn.CountParameters(nets.Named()[name])
		res.Parameters[name] = n
		log.Printf("network=%s parameters=%d", name, n)
	}

	if cfg.Accelerator {
		nets, err = placeNetworks(nets, func(l nn.Layer) (nn.Layer, error) { return nn.ToAccelerator(l), nil })
		if err != nil {
			return res, err
		}
		log.Printf("networks placed on accelerator")
	}

	pipe, err := gan.NewPipeline(nets, gan.Options{BatchSize: cfg.BatchSize, NoiseDim: cfg.Shape.NoiseDim, Seed: cfg.Seed})
	if err != nil {
		return res, err
	}
	pipe.SetEvaluation()
	defer pipe.SetTraining()

	loader := dataset.NewLoader(cfg.Dataset)
	var window metrics.Window

	for round := 1; round <= cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		startLoad := time.Now()
		realBatch, err := loader.LoadRandom(cfg.Samples)
		if err != nil {
			return res, err
		}
		loadTime := time.Since(startLoad)

		startCompute := time.Now()
		fake, err := pipe.GenerateRandom(cfg.Samples, cfg.Autoencoder)
		if err != nil {
			return res, err
		}
		realScores, err := pipe.Score(realBatch)
		if err != nil {
			return res, err
		}
		ranked, err := pipe.Rank(fake, false, 0)
		if err != nil {
			return res, err
		}
		computeTime := time.Since(startCompute)

		fakeScores := gan.Scores(ranked)
		window.Record(fake.Len(), loadTime, computeTime, realScores, fakeScores)
		res.RealScores = append(res.RealScores, realScores...)
		res.FakeScores = append(res.FakeScores, fakeScores...)
		res.Top = ranked
		if cfg.Keep > 0 && cfg.Keep < len(ranked) {
			res.Top = ranked[:cfg.Keep]
		}

		if round%cfg.LogEvery == 0 {
			snap := window.Snapshot()
			log.Printf("round=%d images_per_sec=%.1f load_ms=%.2f compute_ms=%.2f real_score=%.4f fake_score=%.4f fake_std=%.4f",
				round,
				snap.ImagesPerSec,
				snap.AvgLoadMS,
				snap.AvgComputeMS,
				snap.RealScore,
				snap.FakeScore,
				snap.FakeScoreStd,
			)
		}
	}

	if err := writeArtifacts(cfg, pipe, res); err != nil {
		return res, err
	}

	// checkpoints hold networks ready to train
	pipe.SetTraining()

	if cfg.CheckpointOut != "" {
		host := nets
		if cfg.Accelerator {
			host, err = placeNetworks(nets, nn.ToHost)
			if err != nil {
				return res, err
			}
		}
		n, err := checkpoint.Save(cfg.CheckpointOut, host.Named())
		if err != nil {
			return res, err
		}
		res.CheckpointBytes = n
		log.Printf("checkpoint=%s bytes=%d", cfg.CheckpointOut, n)
	}
	return res, nil
}

func buildNetworks(cfg RunConfig) (gan.Networks, error) {
	if cfg.CheckpointIn != "" {
		named, err := checkpoint.Load(cfg.CheckpointIn)
		if err != nil {
			return gan.Networks{}, err
		}
		nets := gan.FromNamed(named)
		if nets.Generator == nil || nets.Discriminator == nil {
			return gan.Networks{}, errors.Errorf("session: checkpoint %s lacks generator or discriminator", cfg.CheckpointIn)
		}
		// the config decides which optional networks take part
		nets.Autoencoder = reconcile(cfg, "autoencoder", nets.Autoencoder, cfg.Autoencoder, func() nn.Layer {
			return gan.NewAutoencoder(cfg.Shape)
		}, 3)
		nets.Denoiser = reconcile(cfg, "denoiser", nets.Denoiser, cfg.Denoiser, func() nn.Layer {
			return gan.NewDenoiser(cfg.Shape)
		}, 4)
		log.Printf("restored checkpoint=%s networks=%d", cfg.CheckpointIn, len(named))
		return nets, nil
	}
	nets := gan.NewNetworks(cfg.Shape, cfg.Autoencoder, cfg.Denoiser, cfg.Seed)
	src := rand.NewPCG(cfg.Seed, 1)
	for _, name := range sortedNames(nets.Named()) {
		nn.InitWeights(nets.Named()[name], src, cfg.WeightRange, cfg.BiasRange)
	}
	return nets, nil
}

// reconcile returns a freshly initialized network when want is set and the
// checkpoint lacked one, and drops a restored network the config disables.
func reconcile(cfg RunConfig, name string, restored nn.Layer, want bool, build func() nn.Layer, stream uint64) nn.Layer {
	switch {
	case want && restored == nil:
		net := build()
		nn.InitWeights(net, rand.NewPCG(cfg.Seed, stream), cfg.WeightRange, cfg.BiasRange)
		log.Printf("network=%s missing from checkpoint, initialized", name)
		return net
	case !want && restored != nil:
		log.Printf("network=%s disabled, dropped from checkpoint", name)
		return nil
	}
	return restored
}

// placeNetworks applies move to every configured network.
func placeNetworks(nets gan.Networks, move func(nn.Layer) (nn.Layer, error)) (gan.Networks, error) {
	named := nets.Named()
	out := make(map[string]nn.Layer, len(named))
	for _, name := range sortedNames(named) {
		moved, err := move(named[name])
		if err != nil {
			return gan.Networks{}, errors.Wrapf(err, "place %s", name)
		}
		out[name] = moved
	}
	return gan.FromNamed(out), nil
}

func writeArtifacts(cfg RunConfig, pipe *gan.Pipeline, res Result) error {
	if cfg.GridOut != "" && len(res.Top) > 0 {
		top, err := tensor.BatchOf(gan.Images(res.Top))
		if err != nil {
			return err
		}
		clean, err := pipe.Denoise(top)
		if err != nil {
			return err
		}
		if err := render.Grid(cfg.GridOut, clean.Items(), 0); err != nil {
			return err
		}
		log.Printf("grid=%s images=%d", cfg.GridOut, clean.Len())
	}
	if cfg.HistogramOut != "" {
		if err := render.Histogram(cfg.HistogramOut, res.RealScores, res.FakeScores, 20); err != nil {
			return err
		}
		log.Printf("histogram=%s", cfg.HistogramOut)
	}
	return nil
}

func sortedNames(m map[string]nn.Layer) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
