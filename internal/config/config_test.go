package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  addr: ":9090"
detectors:
  - type: zscore
    windowSize: 30
    zThreshold: 3
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Addr != ":9090" {
		t.Fatalf("addr=%q", c.Server.Addr)
	}
	if c.Storage.Path == "" || c.LogLevel != "info" {
		t.Fatalf("defaults missing: %+v", c)
	}
	if c.Stream.IntervalDuration() != 10*time.Millisecond {
		t.Fatalf("stream interval=%v", c.Stream.IntervalDuration())
	}
	if len(c.Detectors) != 1 || c.Detectors[0].WindowSize != 30 {
		t.Fatalf("detectors=%+v", c.Detectors)
	}
}

func TestDefaultDetectors(t *testing.T) {
	c := Default()
	if len(c.Detectors) != 2 {
		t.Fatalf("detectors=%+v", c.Detectors)
	}
	if c.Detectors[0].Type != "zscore" || c.Detectors[1].Type != "knn" {
		t.Fatalf("detector types=%+v", c.Detectors)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does/not/exist.yaml"); err == nil {
		t.Fatal("expected error")
	}
}
