// Package config loads the follow-session tuning file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/ridealong.defaults.json"

// ColorStop places a chart color at a deviation value.
type ColorStop struct {
	Position float64 `json:"position"`
	Color    string  `json:"color"`
}

// Config represents the tuning parameters of a follow session. Every field
// is optional; the Get* accessors supply defaults for omitted values so
// partial files are safe.
type Config struct {
	// Navigation
	StepSize         *float64 `json:"step_size,omitempty"`
	AutoStepSize     *bool    `json:"auto_step_size,omitempty"`
	ClippingDistance *float64 `json:"clipping_distance,omitempty"`
	AutoRecenter     *bool    `json:"auto_recenter,omitempty"`
	ShowGrid         *bool    `json:"show_grid,omitempty"`
	VerticalClipping *bool    `json:"vertical_clipping,omitempty"`
	LookAtBack       *float64 `json:"look_at_back,omitempty"`
	LookAtHeight     *float64 `json:"look_at_height,omitempty"`

	// Async pacing, duration strings like "500ms"
	DistributionDebounce *string `json:"distribution_debounce,omitempty"`
	CrossSectionDebounce *string `json:"cross_section_debounce,omitempty"`

	// Brush
	BrushInsetPx       *float64 `json:"brush_inset_px,omitempty"`
	BrushSnapTolerance *float64 `json:"brush_snap_tolerance,omitempty"`

	// Statistics backend
	MaxProfileBuckets   *int     `json:"max_profile_buckets,omitempty"`
	HistogramResolution *float64 `json:"histogram_resolution,omitempty"`

	ColorStops []ColorStop `json:"color_stops,omitempty"`
}

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and be under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.StepSize != nil && *c.StepSize <= 0 {
		return fmt.Errorf("step_size must be positive, got %f", *c.StepSize)
	}
	if c.ClippingDistance != nil && *c.ClippingDistance <= 0 {
		return fmt.Errorf("clipping_distance must be positive, got %f", *c.ClippingDistance)
	}
	if c.BrushInsetPx != nil && *c.BrushInsetPx < 0 {
		return fmt.Errorf("brush_inset_px must be non-negative, got %f", *c.BrushInsetPx)
	}
	if c.BrushSnapTolerance != nil && *c.BrushSnapTolerance < 0 {
		return fmt.Errorf("brush_snap_tolerance must be non-negative, got %f", *c.BrushSnapTolerance)
	}
	if c.MaxProfileBuckets != nil && *c.MaxProfileBuckets < 1 {
		return fmt.Errorf("max_profile_buckets must be at least 1, got %d", *c.MaxProfileBuckets)
	}
	if c.HistogramResolution != nil && *c.HistogramResolution <= 0 {
		return fmt.Errorf("histogram_resolution must be positive, got %f", *c.HistogramResolution)
	}
	for name, d := range map[string]*string{
		"distribution_debounce":  c.DistributionDebounce,
		"cross_section_debounce": c.CrossSectionDebounce,
	} {
		if d == nil || *d == "" {
			continue
		}
		if _, err := time.ParseDuration(*d); err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *d, err)
		}
	}
	for i, s := range c.ColorStops {
		if s.Color == "" {
			return fmt.Errorf("color_stops[%d] has no color", i)
		}
	}
	return nil
}

func parseDuration(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

// GetStepSize returns the step_size value or the default.
func (c *Config) GetStepSize() float64 {
	if c.StepSize == nil {
		return 1
	}
	return *c.StepSize
}

// GetAutoStepSize returns the auto_step_size value or the default.
func (c *Config) GetAutoStepSize() bool {
	if c.AutoStepSize == nil {
		return false
	}
	return *c.AutoStepSize
}

// GetClippingDistance returns the clipping_distance value or the default.
func (c *Config) GetClippingDistance() float64 {
	if c.ClippingDistance == nil {
		return 10
	}
	return *c.ClippingDistance
}

// GetAutoRecenter returns the auto_recenter value or the default.
func (c *Config) GetAutoRecenter() bool {
	if c.AutoRecenter == nil {
		return true
	}
	return *c.AutoRecenter
}

// GetShowGrid returns the show_grid value or the default.
func (c *Config) GetShowGrid() bool {
	if c.ShowGrid == nil {
		return true
	}
	return *c.ShowGrid
}

// GetVerticalClipping returns the vertical_clipping value or the default.
func (c *Config) GetVerticalClipping() bool {
	if c.VerticalClipping == nil {
		return false
	}
	return *c.VerticalClipping
}

// GetLookAtBack returns the look_at_back value or the default.
func (c *Config) GetLookAtBack() float64 {
	if c.LookAtBack == nil {
		return 15
	}
	return *c.LookAtBack
}

// GetLookAtHeight returns the look_at_height value or the default.
func (c *Config) GetLookAtHeight() float64 {
	if c.LookAtHeight == nil {
		return 5
	}
	return *c.LookAtHeight
}

// GetDistributionDebounce returns the distribution_debounce value or the default.
func (c *Config) GetDistributionDebounce() time.Duration {
	return parseDuration(c.DistributionDebounce, 500*time.Millisecond)
}

// GetCrossSectionDebounce returns the cross_section_debounce value or the default.
func (c *Config) GetCrossSectionDebounce() time.Duration {
	return parseDuration(c.CrossSectionDebounce, 150*time.Millisecond)
}

// GetBrushInsetPx returns the brush_inset_px value or the default.
func (c *Config) GetBrushInsetPx() float64 {
	if c.BrushInsetPx == nil {
		return 2
	}
	return *c.BrushInsetPx
}

// GetBrushSnapTolerance returns the brush_snap_tolerance value or the default.
func (c *Config) GetBrushSnapTolerance() float64 {
	if c.BrushSnapTolerance == nil {
		return 1
	}
	return *c.BrushSnapTolerance
}

// GetMaxProfileBuckets returns the max_profile_buckets value or the default.
func (c *Config) GetMaxProfileBuckets() int {
	if c.MaxProfileBuckets == nil {
		return 500
	}
	return *c.MaxProfileBuckets
}

// GetHistogramResolution returns the histogram_resolution value or the default.
func (c *Config) GetHistogramResolution() float64 {
	if c.HistogramResolution == nil {
		return 0.01
	}
	return *c.HistogramResolution
}

// GetColorStops returns the configured color stops or a diverging default
// palette centered on zero deviation.
func (c *Config) GetColorStops() []ColorStop {
	if len(c.ColorStops) == 0 {
		return []ColorStop{
			{Position: -0.1, Color: "#2166ac"},
			{Position: -0.05, Color: "#67a9cf"},
			{Position: 0, Color: "#1a9850"},
			{Position: 0.05, Color: "#fdae61"},
			{Position: 0.1, Color: "#d73027"},
		}
	}
	out := make([]ColorStop, len(c.ColorStops))
	copy(out, c.ColorStops)
	return out
}
