package nn

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"eyescream-forge/internal/tensor"
)

func testNet(seed uint64) *Sequential {
	net := NewSequential(
		NewLinear(4, 8, true),
		NewActivation(LeakyReLU),
		NewDropout(0.5, seed),
		NewSequential(NewLinear(8, 2, true), NewActivation(Sigmoid)),
	)
	InitWeights(net, rand.NewPCG(seed, seed), 0.5, 0.1)
	return net
}

func testInput(t *testing.T) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice([]float64{
		0.1, -0.2, 0.3, 0.4,
		-0.5, 0.6, 0.7, -0.8,
		0.9, 0.0, -0.1, 0.2,
	}, 3, 4)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	return x
}

func TestLinearForward(t *testing.T) {
	l := NewLinear(2, 2, true)
	copy(l.Weight.Data(), []float64{1, 2, 3, 4})
	copy(l.Bias.Data(), []float64{0.5, -0.5})
	x, _ := tensor.FromSlice([]float64{1, 1, 2, 0}, 2, 2)
	y, err := l.Forward(x)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	want := []float64{3.5, 6.5, 2.5, 5.5}
	for i, v := range want {
		if y.Data()[i] != v {
			t.Fatalf("y[%d]=%f want %f", i, y.Data()[i], v)
		}
	}
	if _, err := l.Forward(tensor.New(1, 3)); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
}

func TestCountParametersOnlyWeights(t *testing.T) {
	net := NewSequential(NewLinear(10, 10, true), NewActivation(ReLU), NewReshape(2, 5))
	if got := CountParameters(net); got != 100 {
		t.Fatalf("CountParameters=%d want 100", got)
	}
}

func TestInitWeightsDeterministicAndScaled(t *testing.T) {
	a := testNet(3)
	b := testNet(3)
	pa, pb := Parameters(a), Parameters(b)
	if len(pa) != 4 {
		t.Fatalf("expected 4 parameter tensors, got %d", len(pa))
	}
	for i := range pa {
		if !tensor.Equal(pa[i], pb[i]) {
			t.Fatalf("parameter %d differs between equal seeds", i)
		}
	}
	big := NewLinear(100, 100, true)
	InitWeights(big, rand.NewPCG(1, 2), DefaultWeightRange, DefaultBiasRange)
	maxAbs := 0.0
	for _, v := range big.Weight.Data() {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	if maxAbs == 0 || maxAbs > 6*DefaultWeightRange {
		t.Fatalf("weights not scaled by range: max |w|=%f", maxAbs)
	}
	for _, v := range big.Bias.Data() {
		if math.Abs(v) > 6*DefaultBiasRange {
			t.Fatalf("bias not scaled by range: %f", v)
		}
	}
}

func TestEvaluationModeDisablesDropout(t *testing.T) {
	net := testNet(5)
	x := testInput(t)
	SetTraining(net, false)
	first, err := net.Forward(x)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	second, _ := net.Forward(x)
	if !tensor.Equal(first, second) {
		t.Fatal("evaluation forward is not deterministic")
	}
	d := NewDropout(0.5, 1)
	d.SetTraining(false)
	y, _ := d.Forward(x)
	if !tensor.Equal(x, y) {
		t.Fatal("dropout must be the identity in evaluation mode")
	}
}

func TestShrinkKeepsParametersAndIsIdempotent(t *testing.T) {
	net := testNet(7)
	if _, err := net.Forward(testInput(t)); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if CacheSize(net) == 0 {
		t.Fatal("forward should populate caches")
	}
	before := Parameters(net.Clone())

	Shrink(net)
	if CacheSize(net) != 0 {
		t.Fatalf("cache size after shrink=%d", CacheSize(net))
	}
	Shrink(net)
	if CacheSize(net) != 0 {
		t.Fatal("second shrink changed caches")
	}
	after := Parameters(net)
	for i := range before {
		if !tensor.Equal(before[i], after[i]) {
			t.Fatalf("shrink changed parameter %d", i)
		}
	}
	lin := net.Layers[0].(*Linear)
	if lin.Output.Numel() != 0 || lin.Output.Device() != tensor.Host {
		t.Fatalf("cache not replaced by an empty host tensor: %v", lin.Output)
	}
}

func TestAcceleratorRoundTrip(t *testing.T) {
	net := testNet(11)
	SetTraining(net, false)
	x := testInput(t)
	want, err := net.Forward(x)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	dev := ToAccelerator(net)
	if dev == Layer(net) {
		t.Fatal("ToAccelerator must wrap a clone")
	}
	if ToAccelerator(dev) != dev {
		t.Fatal("wrapped network should be returned unchanged")
	}
	core := dev.(*Sequential).Layers[1].(*Sequential)
	if core.Layers[0].(*Linear).Weight.Device() != tensor.Accelerator {
		t.Fatal("core parameters not on the accelerator")
	}
	got, err := dev.Forward(x)
	if err != nil {
		t.Fatalf("accelerated Forward: %v", err)
	}
	if got.Device() != tensor.Host || !tensor.EqualApprox(got, want, 1e-12) {
		t.Fatalf("accelerated output differs: %v", got.Data())
	}

	host, err := ToHost(dev)
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	if HasBoundary(host) {
		t.Fatal("ToHost should strip boundary layers")
	}
	orig, back := Parameters(net), Parameters(host)
	for i := range orig {
		if !tensor.Equal(orig[i], back[i]) || back[i].Device() != tensor.Host {
			t.Fatalf("parameter %d not restored to host", i)
		}
	}
	if core.Layers[0].(*Linear).Weight.Device() != tensor.Accelerator {
		t.Fatal("ToHost must leave the original on the accelerator")
	}
}

func TestToHostRestoresOriginalPlacement(t *testing.T) {
	core := NewLinear(4, 2, true)
	wrapped := NewSequential(NewTransfer(HostToDevice), core, NewTransfer(DeviceToHost))
	host, err := ToHost(wrapped)
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	if host.(*Linear).Weight.Device() != tensor.Host {
		t.Fatal("extracted core not on the host")
	}
	if core.Weight.Device() != tensor.Host || core.Bias.Device() != tensor.Host {
		t.Fatal("host-resident core was moved by ToHost")
	}
}

func TestAcceleratedCoreRejectsHostInput(t *testing.T) {
	dev := ToAccelerator(NewLinear(4, 2, true)).(*Sequential)
	if _, err := dev.Layers[1].Forward(testInput(t)); !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("expected ErrDeviceMismatch, got %v", err)
	}
}

func TestToHostRejectsMalformedBoundary(t *testing.T) {
	cases := map[string]Layer{
		"missing output transfer": NewSequential(NewTransfer(HostToDevice), NewLinear(4, 2, true)),
		"reversed directions":     NewSequential(NewTransfer(DeviceToHost), NewLinear(4, 2, true), NewTransfer(HostToDevice)),
		"nested boundary":         NewSequential(NewLinear(4, 4, true), ToAccelerator(NewLinear(4, 2, true))),
		"transfer inside core": NewSequential(
			NewTransfer(HostToDevice),
			NewSequential(NewTransfer(DeviceToHost)),
			NewTransfer(DeviceToHost),
		),
	}
	for name, net := range cases {
		if _, err := ToHost(net); !errors.Is(err, ErrMalformedBoundary) {
			t.Fatalf("%s: expected ErrMalformedBoundary, got %v", name, err)
		}
	}
}

func TestToHostWithoutBoundaryClones(t *testing.T) {
	net := testNet(13)
	c, err := ToHost(net)
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	c.(*Sequential).Layers[0].(*Linear).Weight.Data()[0] = 42
	if net.Layers[0].(*Linear).Weight.Data()[0] == 42 {
		t.Fatal("ToHost must return a copy")
	}
}
