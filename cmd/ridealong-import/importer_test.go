package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ridealong/internal/deviation/store"
)

func TestReadSamples_HeaderAndBatches(t *testing.T) {
	in := "deviation,profile,z\n0.1,10,\n-0.2,11,3.5\n0,12,\n"
	var batches [][]store.Sample
	err := readSamples(strings.NewReader(in), 2, func(b []store.Sample) error {
		batches = append(batches, b)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 1)

	s := batches[0][1]
	assert.Equal(t, 11.0, s.Profile)
	assert.Equal(t, -0.2, s.Deviation)
	require.NotNil(t, s.Z)
	assert.Equal(t, 3.5, *s.Z)
	assert.Nil(t, s.X)
	assert.Nil(t, batches[0][0].Z)
}

func TestReadSamples_NoHeader(t *testing.T) {
	var got []store.Sample
	err := readSamples(strings.NewReader("5,0.01\n6,0.02\n"), 10, func(b []store.Sample) error {
		got = append(got, b...)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 6.0, got[1].Profile)
}

func TestReadSamples_Errors(t *testing.T) {
	noop := func([]store.Sample) error { return nil }
	assert.ErrorContains(t, readSamples(strings.NewReader("x,y\n1,2\n"), 10, noop), "profile")
	assert.ErrorContains(t, readSamples(strings.NewReader("1,abc\n"), 10, noop), "line 1")
	assert.ErrorContains(t, readSamples(strings.NewReader("1\n"), 10, noop), "missing value")
}

func TestReadCenterline(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "road.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("x,y,z\n0,0,0\n3,4,0\n"), 0o644))
	c, err := readCenterline(csvPath, "road-1", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, "road-1", c.ID)
	b := c.Polyline.Bounds()
	assert.Equal(t, 100.0, b.Start)
	assert.InDelta(t, 105, b.End, 1e-9)

	geoPath := filepath.Join(dir, "pipe.geojson")
	doc := `{"type":"LineString","coordinates":[[0,0,1],[10,0,1]]}`
	require.NoError(t, os.WriteFile(geoPath, []byte(doc), 0o644))
	c, err = readCenterline(geoPath, "pipe-1", 0.4, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.4, c.Radius)
	assert.InDelta(t, 10, c.Polyline.Bounds().End, 1e-9)

	_, err = readCenterline(filepath.Join(dir, "missing.csv"), "x", 0, 0)
	assert.Error(t, err)
}

func TestRunSamplesAndCenterline(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "import.db"))
	require.NoError(t, err)
	defer st.Close()

	csvPath := filepath.Join(dir, "road.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("x,y\n0,0\n50,0\n"), 0o644))
	require.NoError(t, runCenterline(t.Context(), st, []string{"-id", "road-1", csvPath}))

	samplesPath := filepath.Join(dir, "samples.csv")
	require.NoError(t, os.WriteFile(samplesPath, []byte("profile,deviation\n1,0.1\n2,0.2\n"), 0o644))
	require.NoError(t, runSamples(t.Context(), st, []string{"-curve", "road-1", samplesPath}))

	n, err := st.CountSamples(t.Context(), "road-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lines, err := st.LoadCenterlines(t.Context())
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.Error(t, runSamples(t.Context(), st, []string{samplesPath}), "missing -curve")
}

func TestRunPlots(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "plots.db"))
	require.NoError(t, err)
	defer st.Close()

	samples := []store.Sample{{Profile: 1, Deviation: 0.01}, {Profile: 5, Deviation: -0.03}, {Profile: 9, Deviation: 0.07}}
	require.NoError(t, st.InsertSamples(t.Context(), "road 1", samples))

	out := filepath.Join(dir, "out")
	require.NoError(t, runPlots(t.Context(), st, []string{"-curve", "road 1", "-from", "0", "-to", "10", "-out", out}))
	for _, name := range []string{"road_1-profile.png", "road_1-histogram.png"} {
		info, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size())
	}

	assert.ErrorContains(t, runPlots(t.Context(), st, []string{"-curve", "road 1", "-out", out}), "no centerline")
}
