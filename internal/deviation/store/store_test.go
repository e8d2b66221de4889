package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ridealong/internal/config"
	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/deviation"
	"github.com/banshee-data/ridealong/internal/navigator"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_MigratesToLatest(t *testing.T) {
	s := openTestStore(t)
	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(3), version)

	require.NoError(t, s.MigrateDown())
	_, err = s.db.Exec(`SELECT COUNT(*) FROM bookmarks`)
	assert.Error(t, err, "down removes the tables")

	require.NoError(t, s.MigrateUp())
	require.NoError(t, s.MigrateUp(), "up is idempotent")
}

func TestQueryDistribution_EffectiveRangeAndBuckets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var samples []Sample
	for p := 10; p <= 90; p++ {
		samples = append(samples, Sample{Profile: float64(p) + 0.5, Deviation: 0.05})
	}
	require.NoError(t, s.InsertSamples(ctx, "road-1", samples))
	require.NoError(t, s.InsertSamples(ctx, "road-2", []Sample{{Profile: 5, Deviation: 9}}))

	n, err := s.CountSamples(ctx, "road-1")
	require.NoError(t, err)
	assert.Equal(t, 81, n)

	res, err := s.QueryDistribution(ctx, deviation.Query{CurveID: "road-1", Range: curve.Range{Start: 0, End: 100}})
	require.NoError(t, err)
	assert.Equal(t, curve.Range{Start: 10, End: 91}, res.EffectiveRange, "integer hull of the stored profiles")
	require.Len(t, res.Profile, 81)
	assert.Equal(t, 10.0, res.Profile[0].Profile)
	assert.InDelta(t, 0.05, res.Profile[0].AvgDistance, 1e-12)

	res, err = s.QueryDistribution(ctx, deviation.Query{CurveID: "road-1", Range: curve.Range{Start: 20, End: 30}})
	require.NoError(t, err)
	assert.Equal(t, curve.Range{Start: 20, End: 30}, res.EffectiveRange, "clamped to the request")
	assert.Len(t, res.Profile, 10)
}

func TestQueryDistribution_BucketWidthCapsCount(t *testing.T) {
	s := openTestStore(t)
	max := 4
	c := config.Empty()
	c.MaxProfileBuckets = &max
	s.Configure(c)
	ctx := context.Background()

	require.NoError(t, s.InsertSamples(ctx, "road-1", []Sample{
		{Profile: 0, Deviation: -1},
		{Profile: 1, Deviation: 1},
		{Profile: 2.5, Deviation: 2},
		{Profile: 7, Deviation: 3},
		{Profile: 10, Deviation: 4},
	}))

	res, err := s.QueryDistribution(ctx, deviation.Query{CurveID: "road-1", Range: curve.Range{Start: 0, End: 10}})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.Profile), 4)
	require.NotEmpty(t, res.Profile)
	first := res.Profile[0]
	assert.Equal(t, 0.0, first.Profile)
	assert.Equal(t, -1.0, first.MinDistance)
	assert.Equal(t, 2.0, first.MaxDistance)
	assert.InDelta(t, 2.0/3, first.AvgDistance, 1e-12)
	for _, b := range res.Profile {
		assert.Equal(t, 0.0, b.Profile-float64(int(b.Profile)), "buckets start on integers")
	}
}

func TestQueryDistribution_EndSampleStaysInLastBucket(t *testing.T) {
	s := openTestStore(t)
	max := 4
	c := config.Empty()
	c.MaxProfileBuckets = &max
	s.Configure(c)
	ctx := context.Background()

	var samples []Sample
	for p := 0; p <= 12; p++ {
		samples = append(samples, Sample{Profile: float64(p), Deviation: float64(p)})
	}
	require.NoError(t, s.InsertSamples(ctx, "road-1", samples))

	res, err := s.QueryDistribution(ctx, deviation.Query{CurveID: "road-1", Range: curve.Range{Start: 0, End: 12}})
	require.NoError(t, err)
	require.Len(t, res.Profile, 4)
	last := res.Profile[3]
	assert.Equal(t, 9.0, last.Profile)
	assert.Equal(t, 9.0, last.MinDistance)
	assert.Equal(t, 12.0, last.MaxDistance)
	assert.InDelta(t, 10.5, last.AvgDistance, 1e-12)
}

func TestQueryDistribution_NoData(t *testing.T) {
	s := openTestStore(t)
	rng := curve.Range{Start: 3, End: 8}
	res, err := s.QueryDistribution(context.Background(), deviation.Query{CurveID: "missing", Range: rng})
	require.NoError(t, err)
	assert.Equal(t, rng, res.EffectiveRange)
	assert.Empty(t, res.Profile)
	assert.Empty(t, res.Histogram)

	_, err = s.QueryDistribution(context.Background(), deviation.Query{CurveID: "x", Range: curve.Range{Start: 5, End: 1}})
	assert.Error(t, err)
}

func TestBinDeviations(t *testing.T) {
	got := binDeviations([]float64{-0.15, -0.05, 0.05, 0.05, 0.25}, 0.1)
	require.Len(t, got, 4)
	want := []struct {
		dev   float64
		count uint64
	}{{-0.2, 1}, {-0.1, 1}, {0, 2}, {0.2, 1}}
	var total uint64
	for i, w := range want {
		assert.InDelta(t, w.dev, got[i].Deviation, 1e-9)
		assert.Equal(t, w.count, got[i].Count)
		total += got[i].Count
	}
	assert.Equal(t, uint64(5), total)

	assert.Empty(t, binDeviations(nil, 0.1))
	assert.Len(t, binDeviations([]float64{1, 1, 1}, 0.5), 1)
}

func TestBinDeviations_ExtremeOutlier(t *testing.T) {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	got := binDeviations([]float64{0.01, 0.02, 1e6}, 0.01)
	runtime.ReadMemStats(&after)

	require.Len(t, got, 3)
	assert.InDelta(t, 0.01, got[0].Deviation, 1e-9)
	assert.InDelta(t, 0.02, got[1].Deviation, 1e-9)
	assert.InDelta(t, 1e6, got[2].Deviation, 1e-6)
	assert.Equal(t, uint64(1), got[2].Count)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20), "allocation must not scale with the spread")
}

func TestBucketWidth(t *testing.T) {
	assert.Equal(t, 1.0, BucketWidth(10, 500))
	assert.Equal(t, 3.0, BucketWidth(10, 4))
	assert.Equal(t, 10.0, BucketWidth(10, 0))
}

func TestCenterlines_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pl, err := curve.NewPolyline([]r3.Vec{{}, {X: 10}, {X: 10, Y: 5}}, 100)
	require.NoError(t, err)
	require.NoError(t, s.SaveCenterline(ctx, curve.Centerline{ID: "pipe-1", Polyline: pl, Radius: 0.4}, "test pipe"))
	require.NoError(t, s.SaveCenterline(ctx, curve.Centerline{ID: "pipe-1", Polyline: pl, Radius: 0.5}, ""), "replace")

	svc := curve.NewMemoryService()
	n, err := s.LoadInto(ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	h, err := svc.Resolve(ctx, []string{"pipe-1"}, curve.SampleCenter)
	require.NoError(t, err)
	assert.Equal(t, curve.Range{Start: 100, End: 115}, h.Bounds)

	lines, err := s.LoadCenterlines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 0.5, lines[0].Radius)
	assert.Equal(t, pl.Points(), lines[0].Polyline.Points())
}

func TestBookmarks_CRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	b := &Bookmark{Name: "weld", Snapshot: navigator.Snapshot{
		ProfileNumber: 42,
		Selected:      navigator.Selection{IDs: []string{"road-1"}},
		View2D:        true,
	}}
	require.NoError(t, s.SaveBookmark(ctx, b))
	require.NotEmpty(t, b.ID)
	assert.Nil(t, b.UpdatedAtNs)

	got, err := s.GetBookmark(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "weld", got.Name)
	assert.Equal(t, 42.0, got.Profile)
	assert.True(t, got.View2D)
	assert.Equal(t, b.Snapshot, got.Snapshot)

	b.Snapshot.ProfileNumber = 50
	require.NoError(t, s.SaveBookmark(ctx, b))
	require.NotNil(t, b.UpdatedAtNs)

	list, err := s.ListBookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 50.0, list[0].Profile)

	require.NoError(t, s.DeleteBookmark(ctx, b.ID))
	_, err = s.GetBookmark(ctx, b.ID)
	assert.ErrorIs(t, err, ErrBookmarkNotFound)
	assert.ErrorIs(t, s.DeleteBookmark(ctx, b.ID), ErrBookmarkNotFound)

	assert.Error(t, s.SaveBookmark(ctx, &Bookmark{}), "empty selection is rejected")
}

func TestAttachAdminRoutes(t *testing.T) {
	s := openTestStore(t)
	mux := http.NewServeMux()
	require.NoError(t, s.AttachAdminRoutes(mux))

	for _, path := range []string{"/debug/tailsql/", "/debug/db-stats"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "127.0.0.1:12345"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.NotEqual(t, http.StatusNotFound, w.Code, path)
	}

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TableStats{}, st)
}
