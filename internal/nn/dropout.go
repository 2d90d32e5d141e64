package nn

import (
	"math/rand/v2"

	"eyescream-forge/internal/tensor"
)

// Dropout zeroes inputs with probability P while training and scales the
// survivors by 1/(1-P). It is the identity in evaluation mode.
type Dropout struct {
	P        float64
	Seed     uint64
	Training bool
	Output   *tensor.Tensor

	rng *rand.Rand
}

// NewDropout returns a layer in training mode, matching freshly built
// networks.
func NewDropout(p float64, seed uint64) *Dropout {
	return &Dropout{P: p, Seed: seed, Training: true}
}

// SetTraining toggles masking.
func (d *Dropout) SetTraining(on bool) { d.Training = on }

// Forward masks and rescales x in training mode and copies it otherwise.
func (d *Dropout) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	y := x.Clone()
	if d.Training && d.P > 0 {
		if d.rng == nil {
			d.rng = rand.New(rand.NewPCG(d.Seed, 0x9e3779b97f4a7c15))
		}
		keep := 1 / (1 - d.P)
		data := y.Data()
		for i := range data {
			if d.rng.Float64() < d.P {
				data[i] = 0
			} else {
				data[i] *= keep
			}
		}
	}
	d.Output = y
	return y, nil
}

// ClearCache replaces the cached output with an empty tensor.
func (d *Dropout) ClearCache()    { d.Output = emptyLike(d.Output) }
// CacheSize is the number of cached output elements.
func (d *Dropout) CacheSize() int { return cacheSize(d.Output) }

// Clone deep-copies the layer. The clone restarts its mask sequence from Seed.
func (d *Dropout) Clone() Layer {
	return &Dropout{P: d.P, Seed: d.Seed, Training: d.Training, Output: cloneTensor(d.Output)}
}

func (d *Dropout) place(dev tensor.Device) { d.Output = moveTensor(d.Output, dev) }
