// Package nn models networks as trees over a closed set of layer variants:
// compute leaves (Linear, Activation, Dropout, Reshape, Transfer) and the
// Sequential container. Tree walks implement weight initialization, parameter
// counting, cache shrinking, mode switches and device placement.
package nn

import (
	"encoding/gob"

	"github.com/pkg/errors"

	"eyescream-forge/internal/tensor"
)

var (
	// ErrDeviceMismatch is returned when an input lives on a different device
	// than the layer's parameters.
	ErrDeviceMismatch = errors.New("nn: input and parameters on different devices")
	// ErrMalformedBoundary is returned when transfer layers appear anywhere
	// other than the Transfer, core, Transfer pattern at the root.
	ErrMalformedBoundary = errors.New("nn: malformed device boundary")
	// ErrShape is returned when an input does not fit a layer.
	ErrShape = errors.New("nn: bad input shape")
)

// Layer is a node of a network tree.
type Layer interface {
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)
	Clone() Layer
}

// HasWeights is implemented by layers with a weight tensor.
type HasWeights interface {
	Weights() *tensor.Tensor
}

// HasBias is implemented by layers with a bias tensor. Biases may be nil.
type HasBias interface {
	Biases() *tensor.Tensor
}

// HasCache is implemented by layers that keep forward intermediates.
type HasCache interface {
	ClearCache()
	CacheSize() int
}

// Container is implemented by layers with nested layers.
type Container interface {
	Children() []Layer
}

// Moder is implemented by layers that behave differently in training.
type Moder interface {
	SetTraining(on bool)
}

// placer moves a leaf's parameters and caches to a device.
type placer interface {
	place(d tensor.Device)
}

func init() {
	gob.Register(&Sequential{})
	gob.Register(&Linear{})
	gob.Register(&Activation{})
	gob.Register(&Dropout{})
	gob.Register(&Reshape{})
	gob.Register(&Transfer{})
}

// Walk visits l and every nested layer in pre-order.
func Walk(l Layer, fn func(Layer)) {
	fn(l)
	if c, ok := l.(Container); ok {
		for _, child := range c.Children() {
			Walk(child, fn)
		}
	}
}

// Sequential feeds each layer's output into the next.
type Sequential struct {
	Layers []Layer
}

// NewSequential chains layers in order.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{Layers: layers}
}

// Add appends layers and returns s for chaining.
func (s *Sequential) Add(layers ...Layer) *Sequential {
	s.Layers = append(s.Layers, layers...)
	return s
}

// Forward runs each layer on the previous output.
func (s *Sequential) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	for i, l := range s.Layers {
		x, err = l.Forward(x)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d (%T)", i, l)
		}
	}
	return x, nil
}

// Children returns the nested layers.
func (s *Sequential) Children() []Layer { return s.Layers }

// Clone deep-copies every nested layer.
func (s *Sequential) Clone() Layer {
	c := &Sequential{Layers: make([]Layer, len(s.Layers))}
	for i, l := range s.Layers {
		c.Layers[i] = l.Clone()
	}
	return c
}

func cloneTensor(t *tensor.Tensor) *tensor.Tensor {
	if t == nil {
		return nil
	}
	return t.Clone()
}

func moveTensor(t *tensor.Tensor, d tensor.Device) *tensor.Tensor {
	if t == nil || t.Device() == d {
		return t
	}
	return t.To(d)
}

func cacheSize(t *tensor.Tensor) int {
	if t == nil {
		return 0
	}
	return t.Numel()
}

func emptyLike(t *tensor.Tensor) *tensor.Tensor {
	if t == nil {
		return nil
	}
	return tensor.Empty(t.Device())
}
