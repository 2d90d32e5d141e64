package nn

import (
	"github.com/pkg/errors"

	"eyescream-forge/internal/tensor"
)

// Reshape views each sample of an N×... input as Dims. Flatten is Reshape to
// a single dimension.
type Reshape struct {
	Dims   []int
	Output *tensor.Tensor
}

// NewReshape views each sample as dims.
func NewReshape(dims ...int) *Reshape { return &Reshape{Dims: dims} }

// NewFlatten reshapes samples of size n to vectors.
func NewFlatten(n int) *Reshape { return &Reshape{Dims: []int{n}} }

// Forward reshapes x to N×Dims without copying.
func (r *Reshape) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() == 0 {
		return nil, errors.Wrap(ErrShape, "reshape: scalar input")
	}
	y, err := x.Reshape(append([]int{x.Dim(0)}, r.Dims...)...)
	if err != nil {
		return nil, errors.Wrap(ErrShape, err.Error())
	}
	r.Output = y
	return y, nil
}

// ClearCache replaces the cached output with an empty tensor.
func (r *Reshape) ClearCache()    { r.Output = emptyLike(r.Output) }
// CacheSize is the number of cached output elements.
func (r *Reshape) CacheSize() int { return cacheSize(r.Output) }

// Clone deep-copies the layer.
func (r *Reshape) Clone() Layer {
	return &Reshape{Dims: append([]int(nil), r.Dims...), Output: cloneTensor(r.Output)}
}

func (r *Reshape) place(d tensor.Device) { r.Output = moveTensor(r.Output, d) }
