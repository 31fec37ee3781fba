package detector

import (
	"fmt"
	"math"
	"sort"
)

// KNN is an online k-nearest-neighbor detector. Memory holds only points
// that were classified as normal, so it tracks the recent "normal"
// manifold rather than the raw stream. A point is anomalous when the
// distance to its k-th nearest neighbor in memory exceeds the threshold.
//
// If no threshold is supplied, one is calibrated exactly once, the first
// time memory reaches capacity: mean + 2.7*std of the leave-one-out kNN
// distances across memory (a ~99% one-sided band assuming normality).
// The threshold is never recalibrated afterwards, even as memory drifts.
type KNN struct {
	k      int
	window int
	dims   int

	memory []Point

	threshold  float64
	hasThresh  bool
	calibrated bool

	// onCalibrate, when set, receives the auto-calibrated threshold the
	// moment it is computed. Keeps diagnostics out of the decision path.
	onCalibrate func(float64)
}

// KNNOption adjusts optional knobs on a KNN detector.
type KNNOption func(*KNN)

// WithThreshold fixes the decision threshold up front, disabling
// auto-calibration.
func WithThreshold(t float64) KNNOption {
	return func(d *KNN) {
		d.threshold = t
		d.hasThresh = true
	}
}

// WithCalibrationHook registers a callback invoked once with the
// auto-calibrated threshold.
func WithCalibrationHook(fn func(threshold float64)) KNNOption {
	return func(d *KNN) { d.onCalibrate = fn }
}

// NewKNN validates the configuration and returns an empty detector.
// Requires 1 <= k < windowSize so a full memory always holds k neighbors.
func NewKNN(k, windowSize, dims int, opts ...KNNOption) (*KNN, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", ErrInvalidConfiguration, k)
	}
	if windowSize <= k {
		return nil, fmt.Errorf("%w: window size must be greater than k, got window=%d k=%d", ErrInvalidConfiguration, windowSize, k)
	}
	if err := validateDims(dims); err != nil {
		return nil, err
	}
	d := &KNN{
		k:      k,
		window: windowSize,
		dims:   dims,
		memory: make([]Point, 0, windowSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.hasThresh && d.threshold <= 0 {
		return nil, fmt.Errorf("%w: threshold must be positive, got %g", ErrInvalidConfiguration, d.threshold)
	}
	return d, nil
}

func (d *KNN) Name() string { return "online-knn" }

// IsAnomaly classifies p against the memory of accepted points. During
// warm-up (memory below capacity) the detector only trains: every point
// is admitted and reported normal. Once full, an anomalous point is
// discarded while a normal one replaces the oldest memory entry.
func (d *KNN) IsAnomaly(p Point) (bool, error) {
	if err := checkPoint(p, d.dims); err != nil {
		return false, err
	}

	if len(d.memory) < d.window {
		d.add(p)
		return false, nil
	}

	if !d.hasThresh {
		d.calibrate()
	}

	dists := make([]float64, len(d.memory))
	for i, m := range d.memory {
		dists[i] = euclidean(p, m)
	}
	sort.Float64s(dists)
	anomalous := dists[d.k-1] > d.threshold

	if !anomalous {
		d.add(p)
	}
	return anomalous, nil
}

// add admits a point into memory, evicting the oldest entry when full.
// This is the only admission path; anomalies never reach it.
func (d *KNN) add(p Point) {
	if len(d.memory) >= d.window {
		d.memory = d.memory[1:]
	}
	d.memory = append(d.memory, p.Clone())
}

// calibrate derives the threshold from the leave-one-out kNN distance
// distribution of the full memory. Runs at most once per instance.
func (d *KNN) calibrate() {
	if d.calibrated {
		d.hasThresh = true
		return
	}

	knnDists := make([]float64, 0, len(d.memory))
	dists := make([]float64, 0, len(d.memory)-1)
	for i, p := range d.memory {
		dists = dists[:0]
		for j, q := range d.memory {
			if j == i {
				continue
			}
			dists = append(dists, euclidean(p, q))
		}
		sort.Float64s(dists)
		knnDists = append(knnDists, dists[d.k-1])
	}

	var mean float64
	for _, v := range knnDists {
		mean += v
	}
	mean /= float64(len(knnDists))
	var variance float64
	for _, v := range knnDists {
		diff := v - mean
		variance += diff * diff
	}
	std := math.Sqrt(variance / float64(len(knnDists)))

	d.threshold = mean + 2.7*std
	d.hasThresh = true
	d.calibrated = true
	if d.onCalibrate != nil {
		d.onCalibrate(d.threshold)
	}
}

// Threshold reports the active decision threshold. ok is false while the
// detector is still warming up without an explicit threshold.
func (d *KNN) Threshold() (t float64, ok bool) {
	return d.threshold, d.hasThresh
}

// Len reports the number of points currently held in memory.
func (d *KNN) Len() int { return len(d.memory) }

func euclidean(a, b Point) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
