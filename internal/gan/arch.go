package gan

import (
	"eyescream-forge/internal/nn"
)

// Shape describes the images a network pair works on.
type Shape struct {
	Channels int
	Scale    int
	NoiseDim int
	Hidden   int
}

func (s Shape) pixels() int { return s.Channels * s.Scale * s.Scale }

// NewGenerator maps NoiseDim vectors to Channels×Scale×Scale images in [0,1].
func NewGenerator(s Shape, seed uint64) *nn.Sequential {
	return nn.NewSequential(
		nn.NewLinear(s.NoiseDim, s.Hidden, true),
		nn.NewActivation(nn.ReLU),
		nn.NewDropout(0.5, seed),
		nn.NewLinear(s.Hidden, s.pixels(), true),
		nn.NewActivation(nn.Sigmoid),
		nn.NewReshape(s.Channels, s.Scale, s.Scale),
	)
}

// NewDiscriminator maps images to a single realism score in [0,1].
func NewDiscriminator(s Shape, seed uint64) *nn.Sequential {
	return nn.NewSequential(
		nn.NewFlatten(s.pixels()),
		nn.NewLinear(s.pixels(), s.Hidden, true),
		nn.NewActivation(nn.LeakyReLU),
		nn.NewDropout(0.5, seed),
		nn.NewLinear(s.Hidden, 1, true),
		nn.NewActivation(nn.Sigmoid),
		nn.NewReshape(),
	)
}

// NewAutoencoder compresses noise through a bottleneck and back, producing a
// refined code for the generator.
func NewAutoencoder(s Shape) *nn.Sequential {
	bottleneck := max(s.NoiseDim/2, 1)
	return nn.NewSequential(
		nn.NewLinear(s.NoiseDim, bottleneck, true),
		nn.NewActivation(nn.Tanh),
		nn.NewLinear(bottleneck, s.NoiseDim, true),
		nn.NewActivation(nn.Tanh),
	)
}

// NewDenoiser maps images to images of the same shape.
func NewDenoiser(s Shape) *nn.Sequential {
	return nn.NewSequential(
		nn.NewFlatten(s.pixels()),
		nn.NewLinear(s.pixels(), s.pixels(), true),
		nn.NewActivation(nn.Sigmoid),
		nn.NewReshape(s.Channels, s.Scale, s.Scale),
	)
}

// NewNetworks builds the full set; autoencoder and denoiser are optional.
func NewNetworks(s Shape, withAutoencoder, withDenoiser bool, seed uint64) Networks {
	nets := Networks{
		Generator:     NewGenerator(s, seed),
		Discriminator: NewDiscriminator(s, seed+1),
	}
	if withAutoencoder {
		nets.Autoencoder = NewAutoencoder(s)
	}
	if withDenoiser {
		nets.Denoiser = NewDenoiser(s)
	}
	return nets
}

// Named returns the configured networks keyed by role.
func (n Networks) Named() map[string]nn.Layer {
	out := map[string]nn.Layer{
		"generator":     n.Generator,
		"discriminator": n.Discriminator,
	}
	if n.Autoencoder != nil {
		out["autoencoder"] = n.Autoencoder
	}
	if n.Denoiser != nil {
		out["denoiser"] = n.Denoiser
	}
	return out
}

// FromNamed is the inverse of Named.
func FromNamed(m map[string]nn.Layer) Networks {
	return Networks{
		Autoencoder:   m["autoencoder"],
		Generator:     m["generator"],
		Discriminator: m["discriminator"],
		Denoiser:      m["denoiser"],
	}
}
