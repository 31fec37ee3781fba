package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PointsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sad_points_processed_total", Help: "Stream points classified"},
		[]string{"detector"},
	)
	Anomalies = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sad_anomalies_total", Help: "Points flagged anomalous"},
		[]string{"detector"},
	)
	WindowGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "sad_window_len", Help: "Points held in the detector window"},
		[]string{"detector"},
	)
	CalibratedThreshold = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "sad_calibrated_threshold", Help: "Auto-calibrated decision threshold"},
		[]string{"detector"},
	)
	DriftChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sad_drift_checks_total", Help: "Concept drift comparisons"},
		[]string{"drifted"},
	)
)

func MustRegister() {
	prometheus.MustRegister(PointsProcessed, Anomalies, WindowGauge, CalibratedThreshold, DriftChecks)
}
func Handler() http.Handler { return promhttp.Handler() }
