package store

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/ridealong/internal/httputil"
)

// TableStats counts the rows of each table.
type TableStats struct {
	Samples     int `json:"samples"`
	Curves      int `json:"curves"`
	Centerlines int `json:"centerlines"`
	Bookmarks   int `json:"bookmarks"`
}

// Stats returns row counts for the admin page.
func (s *Store) Stats(ctx context.Context) (TableStats, error) {
	var st TableStats
	for _, q := range []struct {
		dst   *int
		query string
	}{
		{&st.Samples, `SELECT COUNT(*) FROM deviation_samples`},
		{&st.Curves, `SELECT COUNT(DISTINCT curve_id) FROM deviation_samples`},
		{&st.Centerlines, `SELECT COUNT(*) FROM centerlines`},
		{&st.Bookmarks, `SELECT COUNT(*) FROM bookmarks`},
	} {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dst); err != nil {
			return TableStats{}, fmt.Errorf("stats: %w", err)
		}
	}
	return st, nil
}

// AttachAdminRoutes mounts the debug pages: live SQL, a database backup
// download and table counts.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(s.path), s.db, &tailsql.DBOptions{
		Label: "Ridealong DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(s.handleBackup))

	debug.Handle("db-stats", "Row counts per table", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, err := s.Stats(r.Context())
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, st)
	}))
	return nil
}

func (s *Store) handleBackup(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "ridealong-backup-")
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup dir: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logf("failed to remove backup dir: %v", err)
		}
	}()

	name := fmt.Sprintf("backup-%d.db", time.Now().Unix())
	backupPath := filepath.Join(dir, name)
	if _, err := s.db.ExecContext(r.Context(), "VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	f, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Encoding", "gzip")

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, f); err != nil {
		logf("backup copy failed: %v", err)
	}
}
