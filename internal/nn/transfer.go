package nn

import (
	"github.com/pkg/errors"

	"eyescream-forge/internal/tensor"
)

// TransferDirection is the way a Transfer layer moves tensors.
type TransferDirection int

const (
	HostToDevice TransferDirection = iota
	DeviceToHost
)

// Transfer is a boundary layer: it only converts its input between host and
// accelerator storage.
type Transfer struct {
	Direction TransferDirection
	Output    *tensor.Tensor
}

// NewTransfer returns a boundary layer moving tensors in dir.
func NewTransfer(dir TransferDirection) *Transfer { return &Transfer{Direction: dir} }

func (t *Transfer) target() tensor.Device {
	if t.Direction == HostToDevice {
		return tensor.Accelerator
	}
	return tensor.Host
}

// Forward copies x to the target device.
func (t *Transfer) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	y := x.To(t.target())
	t.Output = y
	return y, nil
}

// ClearCache replaces the cached output with an empty tensor.
func (t *Transfer) ClearCache()    { t.Output = emptyLike(t.Output) }
// CacheSize is the number of cached output elements.
func (t *Transfer) CacheSize() int { return cacheSize(t.Output) }

// Clone deep-copies the layer.
func (t *Transfer) Clone() Layer {
	return &Transfer{Direction: t.Direction, Output: cloneTensor(t.Output)}
}

// MoveTo places every parameter and cache below l on d. Boundary layers keep
// their own placement.
func MoveTo(l Layer, d tensor.Device) {
	Walk(l, func(l Layer) {
		if p, ok := l.(placer); ok {
			p.place(d)
		}
	})
}

// HasBoundary reports whether any Transfer layer appears in the tree.
func HasBoundary(l Layer) bool {
	found := false
	Walk(l, func(l Layer) {
		if _, ok := l.(*Transfer); ok {
			found = true
		}
	})
	return found
}

// boundaryCore returns the core of a Transfer(HostToDevice), core,
// Transfer(DeviceToHost) network. ok is false when l has no boundary layers.
func boundaryCore(l Layer) (core Layer, ok bool, err error) {
	if !HasBoundary(l) {
		return nil, false, nil
	}
	seq, isSeq := l.(*Sequential)
	if !isSeq || len(seq.Layers) != 3 {
		return nil, false, errors.Wrap(ErrMalformedBoundary, "want exactly transfer, core, transfer at the root")
	}
	in, inOK := seq.Layers[0].(*Transfer)
	out, outOK := seq.Layers[2].(*Transfer)
	if !inOK || !outOK || in.Direction != HostToDevice || out.Direction != DeviceToHost {
		return nil, false, errors.Wrap(ErrMalformedBoundary, "root children are not host-to-device and device-to-host transfers")
	}
	if HasBoundary(seq.Layers[1]) {
		return nil, false, errors.Wrap(ErrMalformedBoundary, "core contains transfer layers")
	}
	return seq.Layers[1], true, nil
}

// ToAccelerator returns l unchanged when it already carries boundary layers.
// Otherwise it clones l, moves the clone to the accelerator and wraps it so
// that callers keep passing and receiving host tensors.
func ToAccelerator(l Layer) Layer {
	if HasBoundary(l) {
		return l
	}
	core := l.Clone()
	MoveTo(core, tensor.Accelerator)
	return NewSequential(NewTransfer(HostToDevice), core, NewTransfer(DeviceToHost))
}

// ToHost extracts a host-resident copy of the core of a boundary-wrapped
// network. The core is moved to the host before cloning so the clone never
// occupies accelerator memory, then returned to the device it was on; l
// itself is left as it was.
// Networks without boundary layers are simply cloned.
func ToHost(l Layer) (Layer, error) {
	core, ok, err := boundaryCore(l)
	if err != nil {
		return nil, err
	}
	if !ok {
		return l.Clone(), nil
	}
	orig, placed := deviceOf(core)
	MoveTo(core, tensor.Host)
	host := core.Clone()
	if placed {
		MoveTo(core, orig)
	}
	return host, nil
}

// deviceOf reports where the first parameter below l lives. ok is false for
// trees without parameters.
func deviceOf(l Layer) (d tensor.Device, ok bool) {
	Walk(l, func(l Layer) {
		if ok {
			return
		}
		if w, has := l.(HasWeights); has && w.Weights() != nil {
			d, ok = w.Weights().Device(), true
		}
	})
	return d, ok
}
