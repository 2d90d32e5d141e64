package metrics

import (
	"math"
	"testing"
	"time"
)

func TestWindowSnapshot(t *testing.T) {
	var w Window
	w.Record(64, 20*time.Millisecond, 10*time.Millisecond, []float64{0.9, 0.7}, []float64{0.2, 0.4})
	w.Record(64, 10*time.Millisecond, 20*time.Millisecond, nil, []float64{0.5})
	snap := w.Snapshot()
	if math.Abs(snap.ImagesPerSec-4266.6667) > 1 {
		t.Fatalf("unexpected throughput %.2f", snap.ImagesPerSec)
	}
	if math.Abs(snap.AvgLoadMS-15) > 1e-9 || math.Abs(snap.AvgComputeMS-15) > 1e-9 {
		t.Fatalf("unexpected timings load=%.3f compute=%.3f", snap.AvgLoadMS, snap.AvgComputeMS)
	}
	if math.Abs(snap.RealScore-0.8) > 1e-9 {
		t.Fatalf("expected real score 0.8, got %.4f", snap.RealScore)
	}
	if math.Abs(snap.FakeScore-0.4) > 1e-9 {
		t.Fatalf("expected generated score 0.4, got %.4f", snap.FakeScore)
	}
	if w.images != 0 || w.rounds != 0 || len(w.fakeMeans) != 0 {
		t.Fatalf("window was not reset")
	}
	if empty := w.Snapshot(); empty.Rounds != 0 || empty.ImagesPerSec != 0 {
		t.Fatalf("empty snapshot should be zero, got %+v", empty)
	}
}
