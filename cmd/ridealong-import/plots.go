package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/plot"

	"github.com/banshee-data/ridealong/internal/config"
	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/deviation"
	"github.com/banshee-data/ridealong/internal/deviation/store"
	"github.com/banshee-data/ridealong/internal/monitor"
	"github.com/banshee-data/ridealong/internal/security"
)

// runPlots renders the profile and histogram of a curve's distribution to
// PNG files in an output directory.
func runPlots(ctx context.Context, st *store.Store, args []string) error {
	fs := flag.NewFlagSet("plots", flag.ContinueOnError)
	curveID := fs.String("curve", "", "Curve id to plot")
	from := fs.Float64("from", 0, "Start profile (with -to)")
	to := fs.Float64("to", 0, "End profile (0 for the whole curve)")
	out := fs.String("out", ".", "Output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *curveID == "" {
		return errors.New("plots needs -curve")
	}

	rng, err := plotRange(ctx, st, *curveID, *from, *to)
	if err != nil {
		return err
	}
	res, err := st.QueryDistribution(ctx, deviation.Query{CurveID: *curveID, Range: rng})
	if err != nil {
		return err
	}
	files, err := writePlots(*out, *curveID, deviation.State{
		CurveID:         *curveID,
		ParameterBounds: res.EffectiveRange,
		Status:          deviation.StatusReady,
		Profile:         res.Profile,
		Histogram:       res.Histogram,
	}, deviation.ColorStopsFromConfig(config.Empty()))
	if err != nil {
		return err
	}
	for _, f := range files {
		log.Printf("Wrote %s", f)
	}
	return nil
}

// plotRange uses [from, to] when given, otherwise the bounds of the stored
// centerline.
func plotRange(ctx context.Context, st *store.Store, curveID string, from, to float64) (curve.Range, error) {
	if to > from {
		return curve.Range{Start: from, End: to}, nil
	}
	lines, err := st.LoadCenterlines(ctx)
	if err != nil {
		return curve.Range{}, err
	}
	for _, c := range lines {
		if c.ID == curveID {
			return c.Polyline.Bounds(), nil
		}
	}
	return curve.Range{}, fmt.Errorf("no centerline %q: pass -from and -to", curveID)
}

func writePlots(dir, curveID string, st deviation.State, stops []deviation.ColorStop) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	builders := []struct {
		suffix string
		build  func() (*plot.Plot, error)
	}{
		{"-profile.png", func() (*plot.Plot, error) { return monitor.ProfilePlot(st) }},
		{"-histogram.png", func() (*plot.Plot, error) { return monitor.HistogramPlot(st, stops) }},
	}
	var files []string
	for _, b := range builders {
		path, err := security.SafeJoin(dir, curveID+b.suffix)
		if err != nil {
			return files, err
		}
		p, err := b.build()
		if err != nil {
			return files, err
		}
		if err := monitor.SavePNG(path, p); err != nil {
			return files, fmt.Errorf("save %s: %w", path, err)
		}
		files = append(files, path)
	}
	return files, nil
}
