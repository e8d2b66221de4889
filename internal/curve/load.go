package curve

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ReadCSV reads centerline vertices from CSV with a header naming x, y and
// optionally z columns (also accepted: easting/northing/elevation).
func ReadCSV(r io.Reader) ([]r3.Vec, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.New("empty csv")
	}

	idxX, idxY, idxZ := -1, -1, -1
	for i, h := range recs[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "x", "easting", "e":
			if idxX == -1 {
				idxX = i
			}
		case "y", "northing", "n":
			if idxY == -1 {
				idxY = i
			}
		case "z", "elevation", "h":
			if idxZ == -1 {
				idxZ = i
			}
		}
	}
	if idxX == -1 || idxY == -1 {
		return nil, errors.New("csv: x/y columns not found")
	}

	var pts []r3.Vec
	for line, row := range recs[1:] {
		x, errX := parseCell(row, idxX)
		y, errY := parseCell(row, idxY)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("csv row %d: invalid coordinate", line+2)
		}
		z := 0.0
		if idxZ != -1 {
			if z, err = parseCell(row, idxZ); err != nil {
				return nil, fmt.Errorf("csv row %d: invalid elevation", line+2)
			}
		}
		pts = append(pts, r3.Vec{X: x, Y: y, Z: z})
	}
	return pts, nil
}

func parseCell(row []string, idx int) (float64, error) {
	if idx >= len(row) {
		return 0, errors.New("missing column")
	}
	return strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
}

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type geoJSONFeature struct {
	Type     string           `json:"type"`
	Geometry *geoJSONGeometry `json:"geometry"`
}

type geoJSONDoc struct {
	Type        string           `json:"type"`
	Features    []geoJSONFeature `json:"features"`
	Coordinates json.RawMessage  `json:"coordinates"`
}

// ParseGeoJSON extracts the first LineString from a Geometry, Feature or
// FeatureCollection document. A missing third coordinate is taken as zero.
func ParseGeoJSON(data []byte) ([]r3.Vec, error) {
	var doc geoJSONDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("geojson: %w", err)
	}

	var geoms []geoJSONGeometry
	switch doc.Type {
	case "FeatureCollection":
		for _, f := range doc.Features {
			if f.Geometry != nil {
				geoms = append(geoms, *f.Geometry)
			}
		}
	case "Feature":
		var f geoJSONFeature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		if f.Geometry != nil {
			geoms = append(geoms, *f.Geometry)
		}
	default:
		geoms = append(geoms, geoJSONGeometry{Type: doc.Type, Coordinates: doc.Coordinates})
	}

	for _, g := range geoms {
		if g.Type != "LineString" {
			continue
		}
		var coords [][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("geojson coordinates: %w", err)
		}
		pts := make([]r3.Vec, 0, len(coords))
		for i, c := range coords {
			if len(c) < 2 {
				return nil, fmt.Errorf("geojson position %d has %d values", i, len(c))
			}
			p := r3.Vec{X: c[0], Y: c[1]}
			if len(c) > 2 {
				p.Z = c[2]
			}
			pts = append(pts, p)
		}
		return pts, nil
	}
	return nil, errors.New("geojson: no LineString found")
}
