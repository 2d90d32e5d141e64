package nn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"eyescream-forge/internal/tensor"
)

// Linear computes y = x·Wᵀ + b for x of shape N×in.
type Linear struct {
	Weight *tensor.Tensor // out×in
	Bias   *tensor.Tensor // out, nil when disabled
	Output *tensor.Tensor
}

// NewLinear returns a zero-initialized host layer.
func NewLinear(in, out int, bias bool) *Linear {
	l := &Linear{Weight: tensor.New(out, in)}
	if bias {
		l.Bias = tensor.New(out)
	}
	return l
}

// In is the input width.
func (l *Linear) In() int  { return l.Weight.Dim(1) }
// Out is the output width.
func (l *Linear) Out() int { return l.Weight.Dim(0) }

// Forward computes x·Wᵀ + b on the parameters' device and caches the result.
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Device() != l.Weight.Device() {
		return nil, errors.Wrapf(ErrDeviceMismatch, "linear: input on %s, weights on %s", x.Device(), l.Weight.Device())
	}
	if x.Rank() != 2 || x.Dim(1) != l.In() {
		return nil, errors.Wrapf(ErrShape, "linear: want N×%d, got %v", l.In(), x.Shape())
	}
	n, in, out := x.Dim(0), l.In(), l.Out()
	data := make([]float64, n*out)
	if n > 0 {
		xm := mat.NewDense(n, in, x.Data())
		wm := mat.NewDense(out, in, l.Weight.Data())
		mat.NewDense(n, out, data).Mul(xm, wm.T())
		if l.Bias != nil {
			for i := 0; i < n; i++ {
				floats.Add(data[i*out:(i+1)*out], l.Bias.Data())
			}
		}
	}
	y, err := tensor.FromSliceOn(x.Device(), data, n, out)
	if err != nil {
		return nil, err
	}
	l.Output = y
	return y, nil
}

// Weights returns the out×in weight matrix.
func (l *Linear) Weights() *tensor.Tensor { return l.Weight }
// Biases returns the bias vector, or nil.
func (l *Linear) Biases() *tensor.Tensor  { return l.Bias }

// ClearCache replaces the cached output with an empty tensor.
func (l *Linear) ClearCache()    { l.Output = emptyLike(l.Output) }
// CacheSize is the number of cached output elements.
func (l *Linear) CacheSize() int { return cacheSize(l.Output) }

// Clone deep-copies parameters and cache.
func (l *Linear) Clone() Layer {
	return &Linear{Weight: l.Weight.Clone(), Bias: cloneTensor(l.Bias), Output: cloneTensor(l.Output)}
}

func (l *Linear) place(d tensor.Device) {
	l.Weight = moveTensor(l.Weight, d)
	l.Bias = moveTensor(l.Bias, d)
	l.Output = moveTensor(l.Output, d)
}
