package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/deviation/store"
)

// sampleBatch bounds the rows held in memory per transaction.
const sampleBatch = 5000

func runCenterline(ctx context.Context, st *store.Store, args []string) error {
	fs := flag.NewFlagSet("centerline", flag.ContinueOnError)
	id := fs.String("id", "", "Object id of the centerline")
	radius := fs.Float64("radius", 0, "Pipe radius (0 for roads)")
	start := fs.Float64("start", 0, "Profile value at the first vertex")
	desc := fs.String("desc", "", "Free-text description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" || fs.NArg() != 1 {
		return errors.New("centerline needs -id and exactly one file")
	}

	c, err := readCenterline(fs.Arg(0), *id, *radius, *start)
	if err != nil {
		return err
	}
	if err := st.SaveCenterline(ctx, c, *desc); err != nil {
		return err
	}
	b := c.Polyline.Bounds()
	log.Printf("Saved centerline %s: profile [%.3f, %.3f]", c.ID, b.Start, b.End)
	return nil
}

// readCenterline parses a CSV or GeoJSON file, chosen by extension.
func readCenterline(path, id string, radius, start float64) (curve.Centerline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return curve.Centerline{}, err
	}
	var pts []r3.Vec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		pts, err = curve.ParseGeoJSON(data)
	default:
		pts, err = curve.ReadCSV(bytes.NewReader(data))
	}
	if err != nil {
		return curve.Centerline{}, fmt.Errorf("%s: %w", path, err)
	}
	pl, err := curve.NewPolyline(pts, start)
	if err != nil {
		return curve.Centerline{}, fmt.Errorf("%s: %w", path, err)
	}
	return curve.Centerline{ID: id, Polyline: pl, Radius: radius}, nil
}

func runSamples(ctx context.Context, st *store.Store, args []string) error {
	fs := flag.NewFlagSet("samples", flag.ContinueOnError)
	curveID := fs.String("curve", "", "Curve id the samples belong to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *curveID == "" || fs.NArg() != 1 {
		return errors.New("samples needs -curve and exactly one file")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	total := 0
	err = readSamples(f, sampleBatch, func(batch []store.Sample) error {
		if err := st.InsertSamples(ctx, *curveID, batch); err != nil {
			return err
		}
		total += len(batch)
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("Inserted %d samples for %s", total, *curveID)
	return nil
}

// readSamples streams profile,deviation[,x,y,z] rows to fn in batches of
// at most size. A header row is detected by a non-numeric first cell.
func readSamples(r io.Reader, size int, fn func([]store.Sample) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	cols := map[string]int{"profile": 0, "deviation": 1, "x": 2, "y": 3, "z": 4}
	batch := make([]store.Sample, 0, size)
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 {
			if _, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64); err != nil {
				cols = headerColumns(row)
				if _, ok := cols["profile"]; !ok {
					return errors.New("header has no profile column")
				}
				if _, ok := cols["deviation"]; !ok {
					return errors.New("header has no deviation column")
				}
				continue
			}
		}

		s, err := parseSample(row, cols)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, s)
		if len(batch) == size {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]store.Sample, 0, size)
		}
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

func headerColumns(row []string) map[string]int {
	cols := make(map[string]int, len(row))
	for i, h := range row {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func parseSample(row []string, cols map[string]int) (store.Sample, error) {
	var s store.Sample
	var err error
	if s.Profile, err = cell(row, cols["profile"]); err != nil {
		return s, fmt.Errorf("profile: %w", err)
	}
	if s.Deviation, err = cell(row, cols["deviation"]); err != nil {
		return s, fmt.Errorf("deviation: %w", err)
	}
	for name, dst := range map[string]**float64{"x": &s.X, "y": &s.Y, "z": &s.Z} {
		idx, ok := cols[name]
		if !ok || idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
			continue
		}
		v, err := cell(row, idx)
		if err != nil {
			return s, fmt.Errorf("%s: %w", name, err)
		}
		*dst = &v
	}
	return s, nil
}

func cell(row []string, idx int) (float64, error) {
	if idx >= len(row) {
		return 0, errors.New("missing value")
	}
	return strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
}
