package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"gonum.org/v1/plot"

	"github.com/banshee-data/ridealong/internal/deviation"
	"github.com/banshee-data/ridealong/internal/httputil"
)

// Source supplies the distribution being inspected.
type Source interface {
	Distribution() deviation.State
	ColorStops() []deviation.ColorStop
}

// Charts serves the debug chart pages of a Source.
type Charts struct {
	src Source
}

// NewCharts creates chart handlers for src.
func NewCharts(src Source) *Charts {
	return &Charts{src: src}
}

// RegisterRoutes mounts the chart pages under /debug/charts and the PNG
// exports under /debug/plots.
func (c *Charts) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/charts/profile", c.handleProfileChart)
	mux.HandleFunc("/debug/charts/histogram", c.handleHistogramChart)
	mux.HandleFunc("/debug/plots/profile.png", c.handleProfilePNG)
	mux.HandleFunc("/debug/plots/histogram.png", c.handleHistogramPNG)
}

func (c *Charts) handleProfileChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	var buf bytes.Buffer
	if err := RenderProfile(&buf, c.src.Distribution()); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (c *Charts) handleHistogramChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	var buf bytes.Buffer
	if err := RenderHistogram(&buf, c.src.Distribution(), c.src.ColorStops()); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (c *Charts) handleProfilePNG(w http.ResponseWriter, r *http.Request) {
	c.servePNG(w, r, func() (*plot.Plot, error) { return ProfilePlot(c.src.Distribution()) })
}

func (c *Charts) handleHistogramPNG(w http.ResponseWriter, r *http.Request) {
	c.servePNG(w, r, func() (*plot.Plot, error) {
		return HistogramPlot(c.src.Distribution(), c.src.ColorStops())
	})
}

func (c *Charts) servePNG(w http.ResponseWriter, r *http.Request, build func() (*plot.Plot, error)) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	p, err := build()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := WritePNG(&buf, p); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
