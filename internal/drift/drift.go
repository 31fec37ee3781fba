// Package drift computes histogram-divergence statistics between a fixed
// reference dataset and a newer sample. It is a stateless two-sample
// check, not a streaming detector: both datasets are complete when the
// statistics run.
package drift

import (
	"fmt"
	"math"
)

const (
	// DefaultBins is the histogram resolution used when none is given.
	DefaultBins = 10

	// Threshold above which either statistic is reported as drift.
	Threshold = 0.1

	// epsilon floors empty histogram bins so the log ratios stay finite.
	epsilon = 1e-10
)

// Result carries both divergence statistics for one comparison.
type Result struct {
	PSI float64 `json:"psi"`
	KLD float64 `json:"kld"`
}

// Drifted reports whether either statistic crosses the threshold.
func (r Result) Drifted() bool { return r.PSI > Threshold || r.KLD > Threshold }

// Monitor holds the reference distribution as a density histogram.
type Monitor struct {
	bins    int
	refHist []float64
}

// New builds a monitor over the reference dataset. bins <= 0 selects
// DefaultBins.
func New(reference []float64, bins int) (*Monitor, error) {
	if bins <= 0 {
		bins = DefaultBins
	}
	if len(reference) < 2 {
		return nil, fmt.Errorf("reference dataset too small: %d points", len(reference))
	}
	return &Monitor{bins: bins, refHist: histogram(reference, bins)}, nil
}

// Check computes PSI and KLD of the actual sample against the reference.
func (m *Monitor) Check(actual []float64) (Result, error) {
	if len(actual) < 2 {
		return Result{}, fmt.Errorf("actual dataset too small: %d points", len(actual))
	}
	actHist := histogram(actual, m.bins)

	var psi, kld float64
	for i := range m.refHist {
		ref := math.Max(m.refHist[i], epsilon)
		act := math.Max(actHist[i], epsilon)
		psi += (act - ref) * math.Log(act/ref)
		kld += ref * math.Log(ref/act)
	}
	return Result{PSI: psi, KLD: kld}, nil
}

// histogram bins data over its own [min, max] range and normalizes to a
// density (bin values integrate to 1 over the range).
func histogram(data []float64, bins int) []float64 {
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	hist := make([]float64, bins)
	if hi == lo {
		// All mass in one bin; treat the range as unit width.
		hist[0] = float64(len(data))
	} else {
		width := (hi - lo) / float64(bins)
		for _, v := range data {
			i := int((v - lo) / width)
			if i >= bins {
				i = bins - 1
			}
			hist[i]++
		}
	}

	binWidth := 1.0
	if hi > lo {
		binWidth = (hi - lo) / float64(bins)
	}
	norm := float64(len(data)) * binWidth
	for i := range hist {
		hist[i] /= norm
	}
	return hist
}
