package nn

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"eyescream-forge/internal/tensor"
)

const (
	DefaultWeightRange = 0.005
	DefaultBiasRange   = 0.001
)

// InitWeights refills every weight with N(0,1)·weightRange and every bias with
// N(0,1)·biasRange. Layers without parameters are skipped.
func InitWeights(l Layer, src rand.Source, weightRange, biasRange float64) {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	Walk(l, func(l Layer) {
		if w, ok := l.(HasWeights); ok && w.Weights() != nil {
			fillScaled(w.Weights(), normal, weightRange)
		}
		if b, ok := l.(HasBias); ok && b.Biases() != nil {
			fillScaled(b.Biases(), normal, biasRange)
		}
	})
}

func fillScaled(t *tensor.Tensor, normal distuv.Normal, scale float64) {
	t.Fill(normal.Rand)
	t.Scale(scale)
}

// CountParameters sums the element counts of all weight tensors.
func CountParameters(l Layer) int {
	n := 0
	Walk(l, func(l Layer) {
		if w, ok := l.(HasWeights); ok && w.Weights() != nil {
			n += w.Weights().Numel()
		}
	})
	return n
}

// Parameters lists weights and biases in tree order.
func Parameters(l Layer) []*tensor.Tensor {
	var out []*tensor.Tensor
	Walk(l, func(l Layer) {
		if w, ok := l.(HasWeights); ok && w.Weights() != nil {
			out = append(out, w.Weights())
		}
		if b, ok := l.(HasBias); ok && b.Biases() != nil {
			out = append(out, b.Biases())
		}
	})
	return out
}

// Shrink replaces every cached intermediate with a zero-sized tensor so a
// serialized network carries only its parameters.
func Shrink(l Layer) {
	Walk(l, func(l Layer) {
		if c, ok := l.(HasCache); ok {
			c.ClearCache()
		}
	})
}

// CacheSize totals the cached elements in the tree.
func CacheSize(l Layer) int {
	n := 0
	Walk(l, func(l Layer) {
		if c, ok := l.(HasCache); ok {
			n += c.CacheSize()
		}
	})
	return n
}

// SetTraining switches every mode-dependent layer in the tree.
func SetTraining(l Layer, on bool) {
	Walk(l, func(l Layer) {
		if m, ok := l.(Moder); ok {
			m.SetTraining(on)
		}
	})
}
