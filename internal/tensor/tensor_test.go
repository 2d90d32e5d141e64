package tensor

import (
	"bytes"
	"encoding/gob"
	"errors"
	"testing"
)

func TestConcatKeepsOrder(t *testing.T) {
	a, _ := FromSlice([]float64{1, 2, 3, 4}, 2, 2)
	b, _ := FromSlice([]float64{5, 6}, 1, 2)
	c, err := Concat([]*Tensor{a, b})
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	want, _ := FromSlice([]float64{1, 2, 3, 4, 5, 6}, 3, 2)
	if !Equal(c, want) {
		t.Fatalf("got %v %v", c.Shape(), c.Data())
	}
}

func TestConcatRejectsMismatchedRows(t *testing.T) {
	a := New(2, 2)
	b := New(1, 3)
	if _, err := Concat([]*Tensor{a, b}); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
}

func TestSliceAndRow(t *testing.T) {
	x, _ := FromSlice([]float64{0, 1, 2, 3, 4, 5}, 3, 2)
	row, err := x.Row(2)
	if err != nil {
		t.Fatalf("Row: %v", err)
	}
	if row.Rank() != 1 || row.Data()[0] != 4 || row.Data()[1] != 5 {
		t.Fatalf("unexpected row %v %v", row.Shape(), row.Data())
	}
	row.Data()[0] = 100
	if x.Data()[4] != 4 {
		t.Fatal("Row must copy")
	}
	if _, err := x.Slice(2, 4); err == nil {
		t.Fatal("expected out of range slice to fail")
	}
}

func TestToCopiesAcrossDevices(t *testing.T) {
	x, _ := FromSlice([]float64{1.5, -2.25}, 2)
	d := x.To(Accelerator)
	if d.Device() != Accelerator || x.Device() != Host {
		t.Fatalf("devices: %s %s", x.Device(), d.Device())
	}
	back := d.To(Host)
	if !Equal(back, x) {
		t.Fatal("round trip changed values")
	}
}

func TestGobRoundTrip(t *testing.T) {
	for _, in := range []*Tensor{New(2, 3), Empty(Accelerator)} {
		in.Fill(func() float64 { return 0.25 })
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(in); err != nil {
			t.Fatalf("encode: %v", err)
		}
		out := &Tensor{}
		if err := gob.NewDecoder(&buf).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !Equal(in, out) || out.Device() != in.Device() {
			t.Fatalf("got %v want %v", out, in)
		}
	}
}

func TestBatchGetAndLen(t *testing.T) {
	imgs := []*Tensor{New(1, 2, 2), New(1, 2, 2)}
	imgs[1].Fill(func() float64 { return 1 })
	b, err := BatchOf(imgs)
	if err != nil {
		t.Fatalf("BatchOf: %v", err)
	}
	if b.Len() != 2 {
		t.Fatalf("len=%d", b.Len())
	}
	got, err := b.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !Equal(got, imgs[1]) {
		t.Fatal("Get returned the wrong image")
	}
	if _, err := b.Get(2); err == nil {
		t.Fatal("expected out of range error")
	}
	if EmptyBatch(3, 4, 4).Len() != 0 {
		t.Fatal("empty batch should have zero length")
	}
}
