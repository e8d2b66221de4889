package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := Empty()

	if cfg.GetStepSize() != 1 {
		t.Errorf("GetStepSize() = %f, want 1", cfg.GetStepSize())
	}
	if cfg.GetClippingDistance() != 10 {
		t.Errorf("GetClippingDistance() = %f, want 10", cfg.GetClippingDistance())
	}
	if !cfg.GetAutoRecenter() {
		t.Error("GetAutoRecenter() = false, want true")
	}
	if cfg.GetDistributionDebounce() != 500*time.Millisecond {
		t.Errorf("GetDistributionDebounce() = %v, want 500ms", cfg.GetDistributionDebounce())
	}
	if cfg.GetBrushInsetPx() != 2 {
		t.Errorf("GetBrushInsetPx() = %f, want 2", cfg.GetBrushInsetPx())
	}
	if cfg.GetBrushSnapTolerance() != 1 {
		t.Errorf("GetBrushSnapTolerance() = %f, want 1", cfg.GetBrushSnapTolerance())
	}
	if got := len(cfg.GetColorStops()); got != 5 {
		t.Errorf("len(GetColorStops()) = %d, want 5", got)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "session.json")

	testJSON := `{
  "step_size": 25,
  "auto_step_size": true,
  "clipping_distance": 40,
  "distribution_debounce": "250ms",
  "color_stops": [{"position": -1, "color": "#0000ff"}, {"position": 1, "color": "#ff0000"}]
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetStepSize() != 25 {
		t.Errorf("GetStepSize() = %f, want 25", cfg.GetStepSize())
	}
	if !cfg.GetAutoStepSize() {
		t.Error("GetAutoStepSize() = false, want true")
	}
	if cfg.GetClippingDistance() != 40 {
		t.Errorf("GetClippingDistance() = %f, want 40", cfg.GetClippingDistance())
	}
	if cfg.GetDistributionDebounce() != 250*time.Millisecond {
		t.Errorf("GetDistributionDebounce() = %v, want 250ms", cfg.GetDistributionDebounce())
	}
	// omitted fields keep defaults
	if cfg.GetCrossSectionDebounce() != 150*time.Millisecond {
		t.Errorf("GetCrossSectionDebounce() = %v, want 150ms", cfg.GetCrossSectionDebounce())
	}
	stops := cfg.GetColorStops()
	if len(stops) != 2 || stops[1].Color != "#ff0000" {
		t.Errorf("GetColorStops() = %+v", stops)
	}
}

func TestLoadDefaultsFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", DefaultConfigPath))
	if err != nil {
		t.Fatalf("Load(%s): %v", DefaultConfigPath, err)
	}
	if cfg.GetMaxProfileBuckets() != 500 {
		t.Errorf("GetMaxProfileBuckets() = %d, want 500", cfg.GetMaxProfileBuckets())
	}
	if cfg.GetHistogramResolution() != 0.01 {
		t.Errorf("GetHistogramResolution() = %f, want 0.01", cfg.GetHistogramResolution())
	}
}

func TestLoadRejects(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{"wrong extension", "cfg.yaml", `{}`},
		{"bad json", "bad.json", `{"step_size":`},
		{"negative step", "step.json", `{"step_size": -1}`},
		{"zero clipping", "clip.json", `{"clipping_distance": 0}`},
		{"bad duration", "dur.json", `{"distribution_debounce": "soon"}`},
		{"colorless stop", "stop.json", `{"color_stops": [{"position": 0}]}`},
		{"zero buckets", "buckets.json", `{"max_profile_buckets": 0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.filename)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("Load(%s) expected error", tt.filename)
			}
		})
	}

	if _, err := Load(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
