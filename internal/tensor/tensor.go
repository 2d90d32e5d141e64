package tensor

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Device identifies where a tensor's storage lives.
type Device int

const (
	Host Device = iota
	Accelerator
)

// String returns "host" or "accelerator".
func (d Device) String() string {
	switch d {
	case Host:
		return "host"
	case Accelerator:
		return "accelerator"
	default:
		return fmt.Sprintf("device(%d)", int(d))
	}
}

// ErrShape is returned when tensor shapes do not line up.
var ErrShape = errors.New("tensor: shape mismatch")

// Tensor is a dense row-major float64 array.
type Tensor struct {
	shape  []int
	data   []float64
	device Device
}

// New returns a zero-filled host tensor.
func New(shape ...int) *Tensor {
	return &Tensor{shape: append([]int(nil), shape...), data: make([]float64, numel(shape))}
}

// FromSlice wraps data without copying.
func FromSlice(data []float64, shape ...int) (*Tensor, error) {
	if numel(shape) != len(data) {
		return nil, errors.Wrapf(ErrShape, "%d values for shape %v", len(data), shape)
	}
	return &Tensor{shape: append([]int(nil), shape...), data: data}, nil
}

// FromSliceOn is FromSlice for storage already resident on d.
func FromSliceOn(d Device, data []float64, shape ...int) (*Tensor, error) {
	t, err := FromSlice(data, shape...)
	if err != nil {
		return nil, err
	}
	t.device = d
	return t, nil
}

// Empty returns a zero-sized tensor on d.
func Empty(d Device) *Tensor {
	return &Tensor{shape: []int{0}, data: []float64{}, device: d}
}

func numel(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// Shape returns a copy of the dimensions.
func (t *Tensor) Shape() []int { return append([]int(nil), t.shape...) }

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int { return t.shape[i] }

// Rank is the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Numel is the element count.
func (t *Tensor) Numel() int { return len(t.data) }

// Data exposes the backing storage.
func (t *Tensor) Data() []float64 { return t.data }

// Device reports where the storage lives.
func (t *Tensor) Device() Device { return t.device }

// Clone deep-copies t, keeping its device.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		shape:  append([]int(nil), t.shape...),
		data:   append([]float64(nil), t.data...),
		device: t.device,
	}
}

// To returns a copy of t placed on d.
func (t *Tensor) To(d Device) *Tensor {
	c := t.Clone()
	c.device = d
	return c
}

// Reshape returns a tensor sharing t's storage with a new shape.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	if numel(shape) != len(t.data) {
		return nil, errors.Wrapf(ErrShape, "reshape %v to %v", t.shape, shape)
	}
	return &Tensor{shape: append([]int(nil), shape...), data: t.data, device: t.device}, nil
}

// rowSize is the element count of one entry along dimension 0.
func (t *Tensor) rowSize() int {
	if len(t.shape) == 0 {
		return 1
	}
	return numel(t.shape[1:])
}

// Slice copies rows [start, end) along dimension 0.
func (t *Tensor) Slice(start, end int) (*Tensor, error) {
	if len(t.shape) == 0 || start < 0 || end > t.shape[0] || start > end {
		return nil, errors.Wrapf(ErrShape, "slice [%d,%d) of %v", start, end, t.shape)
	}
	row := t.rowSize()
	shape := append([]int{end - start}, t.shape[1:]...)
	data := append([]float64(nil), t.data[start*row:end*row]...)
	return &Tensor{shape: shape, data: data, device: t.device}, nil
}

// Row copies entry i along dimension 0, dropping that dimension.
func (t *Tensor) Row(i int) (*Tensor, error) {
	s, err := t.Slice(i, i+1)
	if err != nil {
		return nil, err
	}
	s.shape = s.shape[1:]
	return s, nil
}

// Concat joins tensors along dimension 0. All inputs must share trailing
// dimensions and device with the first one.
func Concat(ts []*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, errors.Wrap(ErrShape, "concat of nothing")
	}
	first := ts[0]
	if first.Rank() == 0 {
		return nil, errors.Wrap(ErrShape, "concat of scalar")
	}
	rows := 0
	for i, t := range ts {
		if !equalShape(t.shape[1:], first.shape[1:]) {
			return nil, errors.Wrapf(ErrShape, "concat part %d has shape %v, want [* %v]", i, t.shape, first.shape[1:])
		}
		if t.device != first.device {
			return nil, errors.Errorf("tensor: concat part %d on %s, want %s", i, t.device, first.device)
		}
		rows += t.shape[0]
	}
	data := make([]float64, 0, rows*first.rowSize())
	for _, t := range ts {
		data = append(data, t.data...)
	}
	shape := append([]int{rows}, first.shape[1:]...)
	return &Tensor{shape: shape, data: data, device: first.device}, nil
}

// Stack joins equally shaped tensors along a new leading dimension.
func Stack(ts []*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, errors.Wrap(ErrShape, "stack of nothing")
	}
	lifted := make([]*Tensor, len(ts))
	for i, t := range ts {
		lifted[i] = &Tensor{shape: append([]int{1}, t.shape...), data: t.data, device: t.device}
	}
	return Concat(lifted)
}

func equalShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Equal reports whether a and b have identical shape and values.
func Equal(a, b *Tensor) bool {
	return equalShape(a.shape, b.shape) && floats.Equal(a.data, b.data)
}

// EqualApprox is Equal within an absolute tolerance.
func EqualApprox(a, b *Tensor, tol float64) bool {
	return equalShape(a.shape, b.shape) && floats.EqualApprox(a.data, b.data, tol)
}

// Fill sets every element from next.
func (t *Tensor) Fill(next func() float64) {
	for i := range t.data {
		t.data[i] = next()
	}
}

// Scale multiplies every element by s in place.
func (t *Tensor) Scale(s float64) { floats.Scale(s, t.data) }

type wireTensor struct {
	Shape  []int
	Data   []float64
	Device Device
}

// GobEncode lets tensors travel inside gob-encoded layer trees.
func (t *Tensor) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wireTensor{Shape: t.shape, Data: t.data, Device: t.device}); err != nil {
		return nil, errors.Wrap(err, "encode tensor")
	}
	return buf.Bytes(), nil
}

// GobDecode restores a tensor written by GobEncode.
func (t *Tensor) GobDecode(b []byte) error {
	var w wireTensor
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&w); err != nil {
		return errors.Wrap(err, "decode tensor")
	}
	if w.Data == nil {
		w.Data = []float64{}
	}
	if numel(w.Shape) != len(w.Data) {
		return errors.Wrapf(ErrShape, "decoded %d values for shape %v", len(w.Data), w.Shape)
	}
	t.shape, t.data, t.device = w.Shape, w.Data, w.Device
	return nil
}

// String shows the shape and device.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v@%s", t.shape, t.device)
}
