package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/config"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/logger"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/notify"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/store"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/stream"
)

func newPipeline(t *testing.T, specs []config.DetectorSpec) (*Pipeline, *store.Store) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.Detectors = specs

	p, err := New(
		logger.New("error"),
		db,
		notify.NewSlack(false, ""),
		stream.New(0, 0.1, 1),
		cfg,
	)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p, db
}

func TestNewRejectsBadSpec(t *testing.T) {
	tests := []struct {
		name string
		spec config.DetectorSpec
	}{
		{"unknown type", config.DetectorSpec{Type: "lstm"}},
		{"bad zscore", config.DetectorSpec{Type: "zscore", WindowSize: 0, ZThreshold: 2}},
		{"bad knn", config.DetectorSpec{Type: "knn", K: 5, WindowSize: 5}},
	}
	for _, tt := range tests {
		db, err := store.Open(filepath.Join(t.TempDir(), "x.db"))
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		cfg := config.Default()
		cfg.Detectors = []config.DetectorSpec{tt.spec}
		_, err = New(logger.New("error"), db, notify.NewSlack(false, ""), stream.New(0, 0, 1), cfg)
		db.Close()
		if err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
	}
}

func TestProcessRecordsSamplesAndDetections(t *testing.T) {
	p, db := newPipeline(t, []config.DetectorSpec{
		{Type: "knn", K: 3, WindowSize: 5, Threshold: 2},
	})

	// Warm up with a tight cluster, then inject an obvious outlier.
	for _, v := range []float64{0, 0.1, -0.1, 0.05, -0.05} {
		p.Process(v)
	}
	p.Process(500)

	samples, err := db.ListSamples(0)
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	if len(samples) != 6 {
		t.Fatalf("samples=%d want 6", len(samples))
	}
	if !samples[0].Verdicts["online-knn"] {
		t.Fatalf("outlier not flagged: %+v", samples[0])
	}

	dets, err := db.ListDetections(0)
	if err != nil {
		t.Fatalf("list detections: %v", err)
	}
	if len(dets) != 1 || dets[0].Detector != "online-knn" || dets[0].Value != 500 {
		t.Fatalf("detections=%+v", dets)
	}
}

func TestDetectorsExposeCalibratedThreshold(t *testing.T) {
	p, _ := newPipeline(t, []config.DetectorSpec{
		{Type: "zscore", WindowSize: 10, ZThreshold: 2.3},
		{Type: "knn", K: 2, WindowSize: 4},
	})

	infos := p.Detectors()
	if len(infos) != 2 {
		t.Fatalf("infos=%+v", infos)
	}
	for _, in := range infos {
		if in.Type == "knn" && in.Threshold != nil {
			t.Fatal("knn threshold set before calibration")
		}
	}

	// Fill knn memory and force one classification to calibrate.
	for _, v := range []float64{0, 1, 0.5, 0.8, 0.3} {
		p.Process(v)
	}
	for _, in := range p.Detectors() {
		if in.Type == "knn" {
			if in.Threshold == nil {
				t.Fatal("knn threshold missing after calibration")
			}
			if *in.Threshold <= 0 {
				t.Fatalf("threshold=%g", *in.Threshold)
			}
		}
	}
}

func TestSubmitQueuesValue(t *testing.T) {
	p, _ := newPipeline(t, []config.DetectorSpec{
		{Type: "zscore", WindowSize: 5, ZThreshold: 2},
	})
	if !p.Submit(1.5) {
		t.Fatal("submit rejected on empty queue")
	}
}
