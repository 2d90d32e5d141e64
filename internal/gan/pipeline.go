// Package gan drives generator, discriminator and the optional autoencoder
// and denoiser networks: noise sampling, batched generation, realism ranking
// and mode switches.
package gan

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"eyescream-forge/internal/nn"
	"eyescream-forge/internal/tensor"
)

// Networks is the set of handles a pipeline works on. Generator and
// Discriminator are required; the others may be nil.
type Networks struct {
	Autoencoder   nn.Layer
	Generator     nn.Layer
	Discriminator nn.Layer
	Denoiser      nn.Layer
}

// Options fixes batching and noise dimensions.
type Options struct {
	BatchSize int
	NoiseDim  int
	Seed      uint64
}

// Pipeline runs forward passes in fixed-size chunks to bound peak memory.
// It is not safe for concurrent use.
type Pipeline struct {
	nets  Networks
	opts  Options
	noise distuv.Uniform
}

// NewPipeline validates nets and opts and seeds the noise source.
func NewPipeline(nets Networks, opts Options) (*Pipeline, error) {
	if nets.Generator == nil || nets.Discriminator == nil {
		return nil, errors.New("gan: generator and discriminator are required")
	}
	if opts.BatchSize <= 0 {
		return nil, errors.Errorf("gan: batch size must be > 0 (got %d)", opts.BatchSize)
	}
	if opts.NoiseDim <= 0 {
		return nil, errors.Errorf("gan: noise dim must be > 0 (got %d)", opts.NoiseDim)
	}
	src := rand.NewPCG(opts.Seed, opts.Seed^0x5851f42d4c957f2d)
	return &Pipeline{
		nets:  nets,
		opts:  opts,
		noise: distuv.Uniform{Min: -1, Max: 1, Src: src},
	}, nil
}

// Networks returns the handles the pipeline runs.
func (p *Pipeline) Networks() Networks { return p.nets }

// SampleNoise draws n vectors with entries uniform in [-1, 1].
func (p *Pipeline) SampleNoise(n int) *tensor.Tensor {
	t := tensor.New(n, p.opts.NoiseDim)
	t.Fill(p.noise.Rand)
	return t
}

// Generate maps noise to images. With refine set and an autoencoder
// configured, each chunk passes through the autoencoder before the generator.
// Output row i always belongs to noise row i.
func (p *Pipeline) Generate(noise *tensor.Tensor, refine bool) (*tensor.Batch, error) {
	net := p.nets.Generator
	if refine && p.nets.Autoencoder != nil {
		net = nn.NewSequential(p.nets.Autoencoder, p.nets.Generator)
	}
	out, err := forwardChunks(net, noise, p.opts.BatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "generate")
	}
	return tensor.NewBatch(out)
}

// GenerateList is Generate returning individual images.
func (p *Pipeline) GenerateList(noise *tensor.Tensor, refine bool) ([]*tensor.Tensor, error) {
	b, err := p.Generate(noise, refine)
	if err != nil {
		return nil, err
	}
	return b.Items(), nil
}

// GenerateRandom generates n images from fresh noise.
func (p *Pipeline) GenerateRandom(n int, refine bool) (*tensor.Batch, error) {
	return p.Generate(p.SampleNoise(n), refine)
}

// GenerateRandomList is GenerateRandom returning individual images.
func (p *Pipeline) GenerateRandomList(n int, refine bool) ([]*tensor.Tensor, error) {
	return p.GenerateList(p.SampleNoise(n), refine)
}

// Denoise runs images through the denoiser, if one is configured.
func (p *Pipeline) Denoise(images *tensor.Batch) (*tensor.Batch, error) {
	if p.nets.Denoiser == nil {
		return images, nil
	}
	out, err := forwardChunks(p.nets.Denoiser, images.Tensor(), p.opts.BatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "denoise")
	}
	return tensor.NewBatch(out)
}

// SetTraining puts autoencoder, generator and discriminator, in that order,
// into training mode.
func (p *Pipeline) SetTraining() { p.setMode(true) }

// SetEvaluation puts the same networks into evaluation mode.
func (p *Pipeline) SetEvaluation() { p.setMode(false) }

func (p *Pipeline) setMode(on bool) {
	for _, net := range []nn.Layer{p.nets.Autoencoder, p.nets.Generator, p.nets.Discriminator} {
		if net != nil {
			nn.SetTraining(net, on)
		}
	}
}

// forwardChunks feeds x through net batchSize rows at a time and concatenates
// the outputs in order. An empty input takes a single zero-row pass so the
// result carries the network's output shape.
func forwardChunks(net nn.Layer, x *tensor.Tensor, batchSize int) (*tensor.Tensor, error) {
	n := x.Dim(0)
	if n == 0 {
		out, err := net.Forward(x)
		if err != nil {
			return nil, errors.Wrap(err, "empty input")
		}
		if out.Rank() == 0 || out.Dim(0) != 0 {
			return nil, errors.Wrapf(nn.ErrShape, "empty input produced %v", out.Shape())
		}
		return out, nil
	}
	parts := make([]*tensor.Tensor, 0, (n+batchSize-1)/batchSize)
	for start := 0; start < n; start += batchSize {
		end := min(start+batchSize, n)
		chunk, err := x.Slice(start, end)
		if err != nil {
			return nil, err
		}
		out, err := net.Forward(chunk)
		if err != nil {
			return nil, errors.Wrapf(err, "rows [%d,%d)", start, end)
		}
		if out.Rank() == 0 || out.Dim(0) != end-start {
			return nil, errors.Wrapf(nn.ErrShape, "rows [%d,%d) produced %v", start, end, out.Shape())
		}
		parts = append(parts, out)
	}
	return tensor.Concat(parts)
}
