package tensor

import "github.com/pkg/errors"

// Batch is an indexed collection of equally shaped images backed by a single
// N×C×H×W tensor.
type Batch struct {
	t *Tensor
}

// NewBatch wraps t, whose first dimension counts the images.
func NewBatch(t *Tensor) (*Batch, error) {
	if t.Rank() < 2 {
		return nil, errors.Wrapf(ErrShape, "batch needs rank >= 2, got %v", t.shape)
	}
	return &Batch{t: t}, nil
}

// BatchOf stacks images into a new batch.
func BatchOf(images []*Tensor) (*Batch, error) {
	t, err := Stack(images)
	if err != nil {
		return nil, err
	}
	return NewBatch(t)
}

// EmptyBatch holds no images of the given per-image shape.
func EmptyBatch(item ...int) *Batch {
	return &Batch{t: New(append([]int{0}, item...)...)}
}

// Len is the number of images.
func (b *Batch) Len() int { return b.t.shape[0] }

// Get copies image i out of the batch.
func (b *Batch) Get(i int) (*Tensor, error) {
	if i < 0 || i >= b.Len() {
		return nil, errors.Errorf("batch: index %d out of range [0,%d)", i, b.Len())
	}
	return b.t.Row(i)
}

// ItemShape is the shape shared by every image.
func (b *Batch) ItemShape() []int { return append([]int(nil), b.t.shape[1:]...) }

// Tensor exposes the backing N×... tensor.
func (b *Batch) Tensor() *Tensor { return b.t }

// Items splits the batch into individual images.
func (b *Batch) Items() []*Tensor {
	out := make([]*Tensor, b.Len())
	for i := range out {
		out[i], _ = b.t.Row(i)
	}
	return out
}
