package deviation

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ridealong/internal/scale"
)

func TestClipBounds(t *testing.T) {
	tests := []struct {
		name           string
		minStop, maxSt float64
		lo, hi         float64
	}{
		{"narrow stops use the minimum pad", -0.1, 0.1, -0.2, 0.2},
		{"wide stops pad by ten percent", -2, 2, -2.4, 2.4},
		{"single stop", 0, 0, -0.1, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := ClipBounds(tt.minStop, tt.maxSt)
			assert.InDelta(t, tt.lo, lo, 1e-12)
			assert.InDelta(t, tt.hi, hi, 1e-12)
		})
	}
}

func TestNormalizeHistogram_FoldsOutliers(t *testing.T) {
	got := NormalizeHistogram([]HistogramBucket{
		{Deviation: 0.3, Count: 2},
		{Deviation: -0.5, Count: 2},
		{Deviation: 0, Count: 5},
		{Deviation: -0.2, Count: 1},
		{Deviation: 0.05, Count: 0},
	}, -0.1, 0.1)

	want := []HistogramPercent{
		{Deviation: -0.2, Percent: 30},
		{Deviation: 0, Percent: 50},
		{Deviation: 0.2, Percent: 20},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("NormalizeHistogram mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeHistogram_Empty(t *testing.T) {
	assert.Empty(t, NormalizeHistogram(nil, -0.1, 0.1))
	assert.Empty(t, NormalizeHistogram([]HistogramBucket{{Deviation: 1, Count: 0}}, -0.1, 0.1))
}

func TestNormalizeHistogram_SumsToHundred(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		var buckets []HistogramBucket
		var outside uint64
		var total uint64
		lo, hi := ClipBounds(-0.1, 0.1)
		for i := 0; i < 1+rng.Intn(40); i++ {
			b := HistogramBucket{Deviation: rng.NormFloat64() * 0.3, Count: uint64(1 + rng.Intn(100))}
			if b.Deviation < lo || b.Deviation > hi {
				outside += b.Count
			}
			total += b.Count
			buckets = append(buckets, b)
		}

		got := NormalizeHistogram(buckets, -0.1, 0.1)
		var sum, edges float64
		for _, p := range got {
			sum += p.Percent
			assert.GreaterOrEqual(t, p.Deviation, lo)
			assert.LessOrEqual(t, p.Deviation, hi)
			if p.Deviation == lo || p.Deviation == hi {
				edges += p.Percent
			}
		}
		assert.InDelta(t, 100, sum, 1e-9)
		assert.GreaterOrEqual(t, edges+1e-9, float64(outside)/float64(total)*100, "boundary buckets hold all clipped mass")
	}
}

func TestGradientStops(t *testing.T) {
	y := scale.NewLinear(-0.2, 0.2, 200, 0)
	got := GradientStops(DefaultColorStops(), y, 200)

	require.Len(t, got, 6)
	wantOffsets := []float64{25, 37.5, 50, 62.5, 75, 100}
	for i, w := range wantOffsets {
		assert.InDelta(t, w, got[i].Offset, 1e-9, "stop %d", i)
	}
	assert.Equal(t, "#d73027", got[0].Color, "highest deviation first")
	assert.Equal(t, "#2166ac", got[4].Color)
	assert.Equal(t, "#2166ac", got[5].Color, "terminal stop repeats the most negative color")
}

func TestGradientStops_UnsortedInput(t *testing.T) {
	stops := []ColorStop{{Position: -1, Color: "blue"}, {Position: 1, Color: "red"}}
	got := GradientStops(stops, scale.NewLinear(-1, 1, 100, 0), 100)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"red", "blue", "blue"}, []string{got[0].Color, got[1].Color, got[2].Color})
	assert.InDelta(t, 0, got[0].Offset, 1e-9)
	assert.InDelta(t, 100, got[1].Offset, 1e-9)
}

func TestGradientStops_Degenerate(t *testing.T) {
	assert.Nil(t, GradientStops(nil, scale.NewLinear(0, 1, 1, 0), 10))
	assert.Nil(t, GradientStops(DefaultColorStops(), scale.NewLinear(0, 1, 1, 0), 0))
}

func TestStopExtent(t *testing.T) {
	lo, hi, ok := StopExtent(DefaultColorStops())
	require.True(t, ok)
	assert.Equal(t, -0.1, lo)
	assert.Equal(t, 0.1, hi)

	_, _, ok = StopExtent(nil)
	assert.False(t, ok)
}
