package store

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ridealong/internal/curve"
)

// SaveCenterline stores c, replacing any centerline with the same id.
func (s *Store) SaveCenterline(ctx context.Context, c curve.Centerline, description string) error {
	if c.ID == "" || c.Polyline == nil {
		return fmt.Errorf("centerline needs an id and a polyline")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save centerline: %w", err)
	}
	defer tx.Rollback()

	// foreign_keys is a per-connection pragma, so vertices are removed explicitly
	for _, q := range []string{
		`DELETE FROM centerline_vertices WHERE curve_id = ?`,
		`DELETE FROM centerlines WHERE curve_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, c.ID); err != nil {
			return fmt.Errorf("replace centerline %s: %w", c.ID, err)
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO centerlines (curve_id, radius, start_station, description, created_at_ns)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Radius, c.Polyline.Bounds().Start, nullString(description), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert centerline %s: %w", c.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO centerline_vertices (curve_id, seq, x, y, z) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare vertices: %w", err)
	}
	defer stmt.Close()
	for i, p := range c.Polyline.Points() {
		if _, err := stmt.ExecContext(ctx, c.ID, i, p.X, p.Y, p.Z); err != nil {
			return fmt.Errorf("insert vertex %d of %s: %w", i, c.ID, err)
		}
	}
	return tx.Commit()
}

// LoadCenterlines returns every stored centerline ordered by id.
func (s *Store) LoadCenterlines(ctx context.Context) ([]curve.Centerline, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.curve_id, c.radius, c.start_station, v.x, v.y, v.z
		FROM centerlines c
		JOIN centerline_vertices v ON v.curve_id = c.curve_id
		ORDER BY c.curve_id, v.seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query centerlines: %w", err)
	}
	defer rows.Close()

	type pending struct {
		id      string
		radius  float64
		station float64
		points  []r3.Vec
	}
	var all []*pending
	for rows.Next() {
		var id string
		var radius, station float64
		var p r3.Vec
		if err := rows.Scan(&id, &radius, &station, &p.X, &p.Y, &p.Z); err != nil {
			return nil, fmt.Errorf("scan centerline vertex: %w", err)
		}
		if len(all) == 0 || all[len(all)-1].id != id {
			all = append(all, &pending{id: id, radius: radius, station: station})
		}
		cur := all[len(all)-1]
		cur.points = append(cur.points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate centerlines: %w", err)
	}

	out := make([]curve.Centerline, 0, len(all))
	for _, c := range all {
		pl, err := curve.NewPolyline(c.points, c.station)
		if err != nil {
			logf("skipping centerline %s: %v", c.id, err)
			continue
		}
		out = append(out, curve.Centerline{ID: c.id, Polyline: pl, Radius: c.radius})
	}
	return out, nil
}

// LoadInto registers every stored centerline with svc and returns how many
// were added.
func (s *Store) LoadInto(ctx context.Context, svc *curve.MemoryService) (int, error) {
	lines, err := s.LoadCenterlines(ctx)
	if err != nil {
		return 0, err
	}
	for _, c := range lines {
		svc.Add(c)
	}
	return len(lines), nil
}
