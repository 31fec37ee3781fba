// Package stream produces the synthetic data feed: a linear trend with
// sine seasonality and gaussian noise, spiked with occasional anomalies.
package stream

import (
	"math"
	"math/rand"

	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/detector"
)

const (
	trendSlope       = 0.05
	seasonAmp        = 5.0
	seasonPeriod     = 50.0
	anomalyMagnitude = 10.0
)

type Generator struct {
	anomalyProb float64
	noiseLevel  float64
	timeIndex   int
	rng         *rand.Rand
}

// New builds a generator. anomalyProb is the per-point chance of a ±10
// spike, noiseLevel the standard deviation of the gaussian noise. The
// seed makes runs reproducible.
func New(anomalyProb, noiseLevel float64, seed int64) *Generator {
	return &Generator{
		anomalyProb: anomalyProb,
		noiseLevel:  noiseLevel,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Next returns the next value in the stream and advances time.
func (g *Generator) Next() float64 {
	t := float64(g.timeIndex)
	trend := trendSlope * t
	seasonality := seasonAmp * math.Sin(2*math.Pi*t/seasonPeriod)
	noise := g.rng.NormFloat64() * g.noiseLevel

	v := trend + seasonality + noise

	if g.rng.Float64() < g.anomalyProb {
		if g.rng.Intn(2) == 0 {
			v += anomalyMagnitude
		} else {
			v -= anomalyMagnitude
		}
	}

	g.timeIndex++
	return v
}

// NextPoint returns the next (value, time-index) pair.
func (g *Generator) NextPoint() detector.Point {
	t := float64(g.timeIndex)
	return detector.Point{g.Next(), t}
}

// TimeIndex reports how many points have been produced.
func (g *Generator) TimeIndex() int { return g.timeIndex }
