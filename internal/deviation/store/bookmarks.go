package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/ridealong/internal/navigator"
)

// ErrBookmarkNotFound is returned when no bookmark has the requested id.
var ErrBookmarkNotFound = errors.New("bookmark not found")

// Bookmark is a saved follow session.
type Bookmark struct {
	ID          string             `json:"bookmark_id"`
	Name        string             `json:"name,omitempty"`
	Profile     float64            `json:"profile"`
	View2D      bool               `json:"view2d"`
	Snapshot    navigator.Snapshot `json:"snapshot"`
	CreatedAtNs int64              `json:"created_at_ns"`
	UpdatedAtNs *int64             `json:"updated_at_ns,omitempty"`
}

// SaveBookmark inserts b, or updates it when b.ID is already stored. A new
// id is assigned when b.ID is empty.
func (s *Store) SaveBookmark(ctx context.Context, b *Bookmark) error {
	if err := b.Snapshot.Validate(); err != nil {
		return fmt.Errorf("invalid bookmark: %w", err)
	}
	data, err := b.Snapshot.Encode()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	b.Profile = b.Snapshot.ProfileNumber
	b.View2D = b.Snapshot.View2D

	now := time.Now().UnixNano()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE bookmarks SET name = ?, profile = ?, view2d = ?, snapshot_json = ?, updated_at_ns = ?
		WHERE bookmark_id = ?
	`, nullString(b.Name), b.Profile, b.View2D, string(data), now, b.ID)
	if err != nil {
		return fmt.Errorf("update bookmark: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		b.UpdatedAtNs = &now
		return nil
	}

	b.CreatedAtNs = now
	b.UpdatedAtNs = nil
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (bookmark_id, name, profile, view2d, snapshot_json, created_at_ns, updated_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.ID, nullString(b.Name), b.Profile, b.View2D, string(data), b.CreatedAtNs, nullInt64(b.UpdatedAtNs))
	if err != nil {
		return fmt.Errorf("insert bookmark: %w", err)
	}
	return nil
}

// GetBookmark returns the bookmark with id.
func (s *Store) GetBookmark(ctx context.Context, id string) (*Bookmark, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT bookmark_id, name, profile, view2d, snapshot_json, created_at_ns, updated_at_ns
		FROM bookmarks WHERE bookmark_id = ?
	`, id)
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookmarkNotFound
	}
	return b, err
}

// ListBookmarks returns bookmarks newest first.
func (s *Store) ListBookmarks(ctx context.Context) ([]*Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bookmark_id, name, profile, view2d, snapshot_json, created_at_ns, updated_at_ns
		FROM bookmarks ORDER BY created_at_ns DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	out := []*Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBookmark removes the bookmark with id.
func (s *Store) DeleteBookmark(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE bookmark_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookmarkNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookmark(r rowScanner) (*Bookmark, error) {
	var (
		b       Bookmark
		name    sql.NullString
		updated sql.NullInt64
		data    string
	)
	if err := r.Scan(&b.ID, &name, &b.Profile, &b.View2D, &data, &b.CreatedAtNs, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan bookmark: %w", err)
	}
	b.Name = name.String
	if updated.Valid {
		v := updated.Int64
		b.UpdatedAtNs = &v
	}
	if err := json.Unmarshal([]byte(data), &b.Snapshot); err != nil {
		return nil, fmt.Errorf("decode bookmark %s: %w", b.ID, err)
	}
	return &b, nil
}
