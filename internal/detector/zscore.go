package detector

import (
	"fmt"
	"math"
)

// ZScore flags a point when any of its dimensions deviates from the
// sliding-window mean by more than ZThreshold standard deviations.
type ZScore struct {
	window    int
	threshold float64
	dims      int

	history []Point
}

// NewZScore validates the configuration and returns an empty detector.
// windowSize is the history capacity, zThreshold the |z| cutoff.
func NewZScore(windowSize int, zThreshold float64, dims int) (*ZScore, error) {
	if windowSize < 1 {
		return nil, fmt.Errorf("%w: window size must be positive, got %d", ErrInvalidConfiguration, windowSize)
	}
	if zThreshold <= 0 {
		return nil, fmt.Errorf("%w: z threshold must be positive, got %g", ErrInvalidConfiguration, zThreshold)
	}
	if err := validateDims(dims); err != nil {
		return nil, err
	}
	return &ZScore{
		window:    windowSize,
		threshold: zThreshold,
		dims:      dims,
		history:   make([]Point, 0, windowSize),
	}, nil
}

func (z *ZScore) Name() string { return "zscore" }

// IsAnomaly slides p into the history and classifies it against the
// window's per-dimension statistics. During warm-up (history below
// capacity) every point is accepted as normal.
//
// Eviction is asymmetric on purpose: an anomalous point is popped right
// back off the history so it never pollutes the retained statistics,
// while a normal decision drops the oldest entry instead. The history
// length therefore oscillates between windowSize-1 and windowSize.
func (z *ZScore) IsAnomaly(p Point) (bool, error) {
	if err := checkPoint(p, z.dims); err != nil {
		return false, err
	}

	if len(z.history) >= z.window {
		z.history = z.history[1:]
	}
	z.history = append(z.history, p.Clone())

	if len(z.history) < z.window {
		return false, nil
	}

	mean, std := z.stats()
	for d := 0; d < z.dims; d++ {
		if std[d] == 0 {
			// Degenerate window: zero spread in some dimension is
			// defined as non-anomalous, and nothing is evicted.
			return false, nil
		}
	}

	anomalous := false
	for d := 0; d < z.dims; d++ {
		if math.Abs((p[d]-mean[d])/std[d]) > z.threshold {
			anomalous = true
			break
		}
	}

	if anomalous {
		z.history = z.history[:len(z.history)-1]
	} else {
		z.history = z.history[1:]
	}
	return anomalous, nil
}

// stats returns the per-dimension mean and population standard deviation
// of the current history.
func (z *ZScore) stats() (mean, std []float64) {
	n := float64(len(z.history))
	mean = make([]float64, z.dims)
	std = make([]float64, z.dims)
	for _, pt := range z.history {
		for d := 0; d < z.dims; d++ {
			mean[d] += pt[d]
		}
	}
	for d := 0; d < z.dims; d++ {
		mean[d] /= n
	}
	for _, pt := range z.history {
		for d := 0; d < z.dims; d++ {
			diff := pt[d] - mean[d]
			std[d] += diff * diff
		}
	}
	for d := 0; d < z.dims; d++ {
		std[d] = math.Sqrt(std[d] / n)
	}
	return mean, std
}

// Len reports the current history length.
func (z *ZScore) Len() int { return len(z.history) }
