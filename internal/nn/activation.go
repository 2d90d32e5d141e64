package nn

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"eyescream-forge/internal/tensor"
)

// ActivationKind selects the nonlinearity of an Activation.
type ActivationKind int

const (
	ReLU ActivationKind = iota
	LeakyReLU
	Tanh
	Sigmoid
)

// String returns the lowercase activation name.
func (k ActivationKind) String() string {
	switch k {
	case ReLU:
		return "relu"
	case LeakyReLU:
		return "leaky_relu"
	case Tanh:
		return "tanh"
	case Sigmoid:
		return "sigmoid"
	default:
		return fmt.Sprintf("activation(%d)", int(k))
	}
}

// Activation applies an element-wise nonlinearity.
type Activation struct {
	Kind   ActivationKind
	Slope  float64 // negative slope for LeakyReLU
	Output *tensor.Tensor
}

// NewActivation returns an activation of the given kind. LeakyReLU gets slope 0.2.
func NewActivation(kind ActivationKind) *Activation {
	a := &Activation{Kind: kind}
	if kind == LeakyReLU {
		a.Slope = 0.2
	}
	return a
}

func (a *Activation) apply(v float64) float64 {
	switch a.Kind {
	case ReLU:
		return math.Max(0, v)
	case LeakyReLU:
		if v < 0 {
			return a.Slope * v
		}
		return v
	case Tanh:
		return math.Tanh(v)
	default:
		return 1 / (1 + math.Exp(-v))
	}
}

// Forward applies the nonlinearity element-wise and caches the result.
func (a *Activation) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if a.Kind < ReLU || a.Kind > Sigmoid {
		return nil, errors.Errorf("nn: unknown activation %s", a.Kind)
	}
	y := x.Clone()
	data := y.Data()
	for i, v := range data {
		data[i] = a.apply(v)
	}
	a.Output = y
	return y, nil
}

// ClearCache replaces the cached output with an empty tensor.
func (a *Activation) ClearCache()    { a.Output = emptyLike(a.Output) }
// CacheSize is the number of cached output elements.
func (a *Activation) CacheSize() int { return cacheSize(a.Output) }

// Clone deep-copies the layer.
func (a *Activation) Clone() Layer {
	return &Activation{Kind: a.Kind, Slope: a.Slope, Output: cloneTensor(a.Output)}
}

func (a *Activation) place(d tensor.Device) { a.Output = moveTensor(a.Output, d) }
