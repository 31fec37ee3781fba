// Package pipeline drives the stream: it pulls one point at a time from
// the generator, fans it out to every configured detector, and records
// the verdicts. Detectors own their buffers exclusively, so all
// classification runs on one goroutine; external submissions are
// funneled through a channel into the same loop.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/config"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/detector"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/logger"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/metrics"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/notify"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/store"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/stream"
)

type entry struct {
	det  detector.Detector
	spec config.DetectorSpec
	knn  *detector.KNN
	zs   *detector.ZScore
}

type Pipeline struct {
	log      *logger.Logger
	db       *store.Store
	slack    *notify.Slack
	gen      *stream.Generator
	interval time.Duration

	mu        sync.Mutex
	dets      []entry
	timeIndex int

	submissions chan float64
}

// New builds the detectors from their specs and wires the run loop
// collaborators. Detector construction is all-or-nothing: one bad spec
// fails the whole pipeline.
func New(log *logger.Logger, db *store.Store, slack *notify.Slack, gen *stream.Generator, cfg *config.Config) (*Pipeline, error) {
	p := &Pipeline{
		log:         log,
		db:          db,
		slack:       slack,
		gen:         gen,
		interval:    cfg.Stream.IntervalDuration(),
		submissions: make(chan float64, 64),
	}
	for i, spec := range cfg.Detectors {
		e, err := p.build(spec)
		if err != nil {
			return nil, fmt.Errorf("detector %d (%s): %w", i, spec.Type, err)
		}
		p.dets = append(p.dets, e)
	}
	return p, nil
}

func (p *Pipeline) build(spec config.DetectorSpec) (entry, error) {
	switch spec.Type {
	case "zscore":
		d, err := detector.NewZScore(spec.WindowSize, spec.ZThreshold, 2)
		if err != nil {
			return entry{}, err
		}
		return entry{det: d, spec: spec, zs: d}, nil
	case "knn":
		opts := []detector.KNNOption{
			detector.WithCalibrationHook(func(th float64) {
				p.log.Info().Float64("threshold", th).Msg("knn threshold calibrated")
				metrics.CalibratedThreshold.WithLabelValues("online-knn").Set(th)
			}),
		}
		if spec.Threshold > 0 {
			opts = []detector.KNNOption{detector.WithThreshold(spec.Threshold)}
		}
		d, err := detector.NewKNN(spec.K, spec.WindowSize, 2, opts...)
		if err != nil {
			return entry{}, err
		}
		return entry{det: d, spec: spec, knn: d}, nil
	default:
		return entry{}, fmt.Errorf("unknown detector type %q", spec.Type)
	}
}

// Run processes one generated point per interval until the context ends.
// Submitted values share the loop so detector state stays single-writer.
func (p *Pipeline) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	p.log.Info().Int("detectors", len(p.dets)).Dur("interval", p.interval).Msg("pipeline started")

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("pipeline stopped")
			return
		case <-t.C:
			p.Process(p.gen.Next())
		case v := <-p.submissions:
			p.Process(v)
		}
	}
}

// Submit queues an external value for classification. Returns false when
// the loop is saturated; the value is dropped rather than blocking the
// caller.
func (p *Pipeline) Submit(v float64) bool {
	select {
	case p.submissions <- v:
		return true
	default:
		p.log.Warn().Float64("value", v).Msg("submission dropped, pipeline saturated")
		return false
	}
}

// Process classifies a single value with every detector and records the
// outcome.
func (p *Pipeline) Process(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pt := detector.Point{v, float64(p.timeIndex)}
	p.timeIndex++

	verdicts := make(map[string]bool, len(p.dets))
	for _, e := range p.dets {
		name := e.det.Name()
		anomalous, err := e.det.IsAnomaly(pt.Clone())
		if err != nil {
			p.log.Error().Err(err).Str("detector", name).Msg("classification failed")
			continue
		}
		metrics.PointsProcessed.WithLabelValues(name).Inc()
		metrics.WindowGauge.WithLabelValues(name).Set(float64(p.windowLen(e)))
		verdicts[name] = anomalous

		if anomalous {
			metrics.Anomalies.WithLabelValues(name).Inc()
			det := store.Detection{When: time.Now().UTC(), Detector: name, Value: pt[0], TimeIndex: pt[1]}
			if err := p.db.PutDetection(det); err != nil {
				p.log.Error().Err(err).Msg("persist detection")
			}
			if err := p.slack.Send(notify.Format(name, pt[0], pt[1])); err != nil {
				p.log.Error().Err(err).Msg("notify")
			}
			p.log.Warn().Str("detector", name).Float64("value", pt[0]).Float64("t", pt[1]).Msg("anomaly")
		}
	}

	sm := store.Sample{When: time.Now().UTC(), Value: pt[0], TimeIndex: pt[1], Verdicts: verdicts}
	if err := p.db.PutSample(sm); err != nil {
		p.log.Error().Err(err).Msg("persist sample")
	}
}

func (p *Pipeline) windowLen(e entry) int {
	switch {
	case e.zs != nil:
		return e.zs.Len()
	case e.knn != nil:
		return e.knn.Len()
	}
	return 0
}

// Info describes one running detector for the API surface.
type Info struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	WindowSize int      `json:"windowSize"`
	K          int      `json:"k,omitempty"`
	ZThreshold float64  `json:"zThreshold,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	WindowLen  int      `json:"windowLen"`
}

// Detectors reports the live configuration and calibration state.
func (p *Pipeline) Detectors() []Info {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Info, 0, len(p.dets))
	for _, e := range p.dets {
		info := Info{
			Name:       e.det.Name(),
			Type:       e.spec.Type,
			WindowSize: e.spec.WindowSize,
			K:          e.spec.K,
			ZThreshold: e.spec.ZThreshold,
			WindowLen:  p.windowLen(e),
		}
		if e.knn != nil {
			if th, ok := e.knn.Threshold(); ok {
				t := th
				info.Threshold = &t
			}
		}
		out = append(out, info)
	}
	return out
}
