package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr string `yaml:"addr"`
}

type Storage struct {
	Path string `yaml:"path"`
}

type Slack struct {
	Enabled bool   `yaml:"enabled"`
	Webhook string `yaml:"webhook"`
}

type Tracing struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	SampleRatio  float64 `yaml:"sampleRatio"`
}

type Stream struct {
	AnomalyProb float64 `yaml:"anomalyProb"` // chance of a ±10 spike per point
	NoiseLevel  float64 `yaml:"noiseLevel"`  // std dev of gaussian noise
	Seed        int64   `yaml:"seed"`
	Interval    string  `yaml:"interval"` // delay between points, e.g. "10ms"
}

// IntervalDuration parses the configured interval, falling back to 10ms.
func (s Stream) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(s.Interval)
	if d <= 0 {
		d = 10 * time.Millisecond
	}
	return d
}

// DetectorSpec configures one detector instance. Type selects the
// strategy; the remaining fields apply per type.
type DetectorSpec struct {
	Type       string  `yaml:"type"`       // zscore | knn
	WindowSize int     `yaml:"windowSize"`
	ZThreshold float64 `yaml:"zThreshold"` // zscore only
	K          int     `yaml:"k"`          // knn only
	Threshold  float64 `yaml:"threshold"`  // knn only; 0 = auto-calibrate
}

type Config struct {
	Server    Server         `yaml:"server"`
	Storage   Storage        `yaml:"storage"`
	AuthToken string         `yaml:"authToken"`
	LogLevel  string         `yaml:"logLevel"`
	Slack     Slack          `yaml:"slack"`
	Tracing   Tracing        `yaml:"tracing"`
	Stream    Stream         `yaml:"stream"`
	Detectors []DetectorSpec `yaml:"detectors"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	c.applyDefaults()
	return &c, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/stream-anomaly.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Stream.AnomalyProb == 0 {
		c.Stream.AnomalyProb = 0.02
	}
	if c.Stream.NoiseLevel == 0 {
		c.Stream.NoiseLevel = 0.1
	}
	if c.Stream.Seed == 0 {
		c.Stream.Seed = time.Now().UnixNano()
	}
	if c.Stream.Interval == "" {
		c.Stream.Interval = "10ms"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "go-stream-anomaly-detector"
	}
	if c.Tracing.OTLPEndpoint == "" {
		c.Tracing.OTLPEndpoint = "localhost:4317"
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1.0
	}
	if len(c.Detectors) == 0 {
		c.Detectors = []DetectorSpec{
			{Type: "zscore", WindowSize: 50, ZThreshold: 2.3},
			{Type: "knn", K: 9, WindowSize: 20},
		}
	}
}
