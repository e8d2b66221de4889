package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/deviation"
)

// Sample is one deviation measurement at a station of a curve.
type Sample struct {
	Profile   float64
	Deviation float64
	// X, Y, Z locate the measurement when known.
	X, Y, Z *float64
}

// InsertSamples stores samples for curveID in one transaction.
func (s *Store) InsertSamples(ctx context.Context, curveID string, samples []Sample) error {
	if curveID == "" {
		return fmt.Errorf("curve id is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert samples: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO deviation_samples (curve_id, profile, deviation, x, y, z)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert samples: %w", err)
	}
	defer stmt.Close()

	for i, smp := range samples {
		if math.IsNaN(smp.Profile) || math.IsNaN(smp.Deviation) {
			return fmt.Errorf("sample %d has NaN values", i)
		}
		if _, err := stmt.ExecContext(ctx, curveID, smp.Profile, smp.Deviation,
			nullFloat64(smp.X), nullFloat64(smp.Y), nullFloat64(smp.Z)); err != nil {
			return fmt.Errorf("insert sample %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit samples: %w", err)
	}
	return nil
}

// CountSamples returns the number of samples stored for curveID.
func (s *Store) CountSamples(ctx context.Context, curveID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deviation_samples WHERE curve_id = ?`, curveID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

// QueryDistribution answers a distribution query. The effective range is
// the integer hull of the stored profiles within the request; profile
// buckets have an integer width chosen so at most the configured number of
// buckets is returned.
func (s *Store) QueryDistribution(ctx context.Context, q deviation.Query) (*deviation.Result, error) {
	if !q.Range.Valid() {
		return nil, fmt.Errorf("invalid range [%v, %v]", q.Range.Start, q.Range.End)
	}

	var lo, hi sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT MIN(profile), MAX(profile) FROM deviation_samples
		WHERE curve_id = ? AND profile BETWEEN ? AND ?
	`, q.CurveID, q.Range.Start, q.Range.End).Scan(&lo, &hi)
	if err != nil {
		return nil, fmt.Errorf("query extent: %w", err)
	}
	if !lo.Valid || !hi.Valid {
		return &deviation.Result{
			EffectiveRange: q.Range,
			Profile:        []deviation.ProfileBucket{},
			Histogram:      []deviation.HistogramBucket{},
		}, nil
	}

	eff := q.Range.ClampRange(curve.Range{Start: math.Floor(lo.Float64), End: math.Ceil(hi.Float64)})
	profile, err := s.profileBuckets(ctx, q, eff)
	if err != nil {
		return nil, err
	}
	hist, err := s.histogram(ctx, q, eff)
	if err != nil {
		return nil, err
	}
	return &deviation.Result{EffectiveRange: eff, Profile: profile, Histogram: hist}, nil
}

// BucketWidth returns the integer bucket width used for span.
func BucketWidth(span float64, maxBuckets int) float64 {
	if maxBuckets <= 0 {
		maxBuckets = 1
	}
	return math.Max(1, math.Ceil(span/float64(maxBuckets)))
}

func (s *Store) profileBuckets(ctx context.Context, q deviation.Query, eff curve.Range) ([]deviation.ProfileBucket, error) {
	origin := math.Floor(eff.Start)
	span := eff.End - origin
	width := BucketWidth(span, s.maxBuckets)
	// a sample on eff.End belongs to the last bucket, not a new one
	last := int64(math.Max(1, math.Ceil(span/width))) - 1

	rows, err := s.db.QueryContext(ctx, `
		SELECT MIN(CAST((profile - ?) / ? AS INTEGER), ?) AS bucket,
		       MIN(deviation), AVG(deviation), MAX(deviation)
		FROM deviation_samples
		WHERE curve_id = ? AND profile BETWEEN ? AND ?
		GROUP BY bucket
		ORDER BY bucket
	`, origin, width, last, q.CurveID, eff.Start, eff.End)
	if err != nil {
		return nil, fmt.Errorf("query profile buckets: %w", err)
	}
	defer rows.Close()

	out := []deviation.ProfileBucket{}
	for rows.Next() {
		var bucket int64
		var b deviation.ProfileBucket
		if err := rows.Scan(&bucket, &b.MinDistance, &b.AvgDistance, &b.MaxDistance); err != nil {
			return nil, fmt.Errorf("scan profile bucket: %w", err)
		}
		b.Profile = origin + float64(bucket)*width
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile buckets: %w", err)
	}
	return out, nil
}

func (s *Store) histogram(ctx context.Context, q deviation.Query, eff curve.Range) ([]deviation.HistogramBucket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT deviation FROM deviation_samples
		WHERE curve_id = ? AND profile BETWEEN ? AND ?
		ORDER BY deviation
	`, q.CurveID, eff.Start, eff.End)
	if err != nil {
		return nil, fmt.Errorf("query deviations: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan deviation: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deviations: %w", err)
	}
	return binDeviations(values, s.resolution), nil
}

// binDeviations bins sorted values into buckets of width res, labelled by
// their lower edge. Only non-empty buckets are produced, so the work is
// bounded by the number of values, not by their spread.
func binDeviations(sorted []float64, res float64) []deviation.HistogramBucket {
	out := []deviation.HistogramBucket{}
	if len(sorted) == 0 || !(res > 0) {
		return out
	}

	for i := 0; i < len(sorted); {
		bin := math.Floor(sorted[i] / res)
		j := i + 1
		for j < len(sorted) && math.Floor(sorted[j]/res) == bin {
			j++
		}
		out = append(out, deviation.HistogramBucket{
			Deviation: bin * res,
			Count:     uint64(j - i),
		})
		i = j
	}
	return out
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
