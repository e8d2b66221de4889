// Package deviation aggregates deviation statistics along a curve: binned
// per-profile min/avg/max distances and a deviation magnitude histogram,
// kept consistent with a brushable parameter range.
package deviation

import (
	"context"

	"github.com/banshee-data/ridealong/internal/curve"
)

// ProfileBucket is the deviation aggregate of one profile bucket.
type ProfileBucket struct {
	Profile     float64 `json:"profile"`
	MinDistance float64 `json:"min_distance"`
	AvgDistance float64 `json:"avg_distance"`
	MaxDistance float64 `json:"max_distance"`
}

// HistogramBucket counts samples at one deviation value.
type HistogramBucket struct {
	Deviation float64 `json:"deviation"`
	Count     uint64  `json:"count"`
}

// Query asks for the distribution of one curve within Range.
type Query struct {
	CurveID string      `json:"curve_id"`
	Range   curve.Range `json:"range"`
}

// Result is a backend answer. EffectiveRange is the part of the requested
// range that holds data and may be narrower than the request.
type Result struct {
	EffectiveRange curve.Range       `json:"effective_range"`
	Profile        []ProfileBucket   `json:"profile"`
	Histogram      []HistogramBucket `json:"histogram"`
}

// Backend answers distribution queries. Implementations should return
// promptly once ctx is cancelled.
type Backend interface {
	QueryDistribution(ctx context.Context, q Query) (*Result, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, q Query) (*Result, error)

// QueryDistribution calls f(ctx, q).
func (f BackendFunc) QueryDistribution(ctx context.Context, q Query) (*Result, error) {
	return f(ctx, q)
}
