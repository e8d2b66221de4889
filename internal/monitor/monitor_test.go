package monitor

import (
	"bytes"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/deviation"
)

type staticSource struct {
	st deviation.State
}

func (s staticSource) Distribution() deviation.State     { return s.st }
func (s staticSource) ColorStops() []deviation.ColorStop { return deviation.DefaultColorStops() }

func readyState() deviation.State {
	return deviation.State{
		CurveID:         "road-1",
		ParameterBounds: curve.Range{Start: 0, End: 3},
		Status:          deviation.StatusReady,
		Profile: []deviation.ProfileBucket{
			{Profile: 0, MinDistance: -0.02, AvgDistance: 0, MaxDistance: 0.03},
			{Profile: 1, MinDistance: -0.01, AvgDistance: 0.01, MaxDistance: 0.04},
			{Profile: 2, MinDistance: -0.05, AvgDistance: -0.01, MaxDistance: 0.02},
		},
		Histogram: []deviation.HistogramBucket{
			{Deviation: -0.05, Count: 2},
			{Deviation: 0, Count: 5},
			{Deviation: 0.04, Count: 3},
		},
	}
}

func TestNewProfileSeries(t *testing.T) {
	s := NewProfileSeries(readyState().Profile)
	assert.Equal(t, []string{"0", "1", "2"}, s.Labels)
	assert.Equal(t, []float64{0.03, 0.04, 0.02}, s.Max)
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderProfile(&buf, readyState()))
	assert.Contains(t, buf.String(), "Deviation along the curve")

	buf.Reset()
	require.NoError(t, RenderHistogram(&buf, readyState(), deviation.DefaultColorStops()))
	assert.Contains(t, buf.String(), "Deviation distribution")
}

func TestPlots(t *testing.T) {
	p, err := ProfilePlot(readyState())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, p))
	assert.Equal(t, []byte("\x89PNG"), buf.Bytes()[:4])

	p, err = HistogramPlot(readyState(), deviation.DefaultColorStops())
	require.NoError(t, err)
	require.NoError(t, SavePNG(filepath.Join(t.TempDir(), "hist.png"), p))

	_, err = ProfilePlot(deviation.State{})
	assert.NoError(t, err, "empty state still plots")
	_, err = HistogramPlot(deviation.State{}, nil)
	assert.NoError(t, err)
}

func TestNearestColor(t *testing.T) {
	stops := deviation.DefaultColorStops()
	assert.Equal(t, "#1a9850", NearestColor(stops, 0.01))
	assert.Equal(t, "#d73027", NearestColor(stops, 5))
	assert.Equal(t, "#888888", NearestColor(nil, 0))
}

func TestParseHexColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0xd7, G: 0x30, B: 0x27, A: 255}, ParseHexColor("#d73027"))
	assert.Equal(t, color.Gray{Y: 136}, ParseHexColor("red"))
}

func TestChartRoutes(t *testing.T) {
	mux := http.NewServeMux()
	NewCharts(staticSource{st: readyState()}).RegisterRoutes(mux)

	for path, ctype := range map[string]string{
		"/debug/charts/profile":      "text/html; charset=utf-8",
		"/debug/charts/histogram":    "text/html; charset=utf-8",
		"/debug/plots/profile.png":   "image/png",
		"/debug/plots/histogram.png": "image/png",
	} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, ctype, w.Header().Get("Content-Type"), path)
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/debug/charts/profile", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
