package metrics

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Window accumulates per-round timings and discriminator scores.
type Window struct {
	images    int
	load      time.Duration
	compute   time.Duration
	rounds    int
	realMeans []float64
	fakeMeans []float64
}

// Record adds one round: how many images were generated, how long loading
// real data and running the networks took, and the scores D assigned.
func (w *Window) Record(images int, loadTime, computeTime time.Duration, realScores, fakeScores []float64) {
	w.images += images
	w.load += loadTime
	w.compute += computeTime
	w.rounds++
	if len(realScores) > 0 {
		w.realMeans = append(w.realMeans, stat.Mean(realScores, nil))
	}
	if len(fakeScores) > 0 {
		w.fakeMeans = append(w.fakeMeans, stat.Mean(fakeScores, nil))
	}
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Rounds: w.rounds}
	if w.compute > 0 {
		snap.ImagesPerSec = float64(w.images) / w.compute.Seconds()
	}
	if w.rounds > 0 {
		snap.AvgLoadMS = (w.load.Seconds() * 1000) / float64(w.rounds)
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.rounds)
	}
	if len(w.realMeans) > 0 {
		snap.RealScore = stat.Mean(w.realMeans, nil)
	}
	switch {
	case len(w.fakeMeans) > 1:
		snap.FakeScore, snap.FakeScoreStd = stat.MeanStdDev(w.fakeMeans, nil)
	case len(w.fakeMeans) == 1:
		snap.FakeScore = w.fakeMeans[0]
	}

	*w = Window{}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Rounds       int
	ImagesPerSec float64
	AvgLoadMS    float64
	AvgComputeMS float64
	RealScore    float64
	FakeScore    float64
	FakeScoreStd float64 // spread of per-round generated means
}
