// Package api exposes a follow session over HTTP as JSON.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/ridealong/internal/crosssection"
	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/deviation/store"
	"github.com/banshee-data/ridealong/internal/httputil"
	"github.com/banshee-data/ridealong/internal/monitor"
	"github.com/banshee-data/ridealong/internal/navigator"
	"github.com/banshee-data/ridealong/internal/session"
	"github.com/banshee-data/ridealong/internal/version"
)

// ANSI escape codes for the request log
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// requestTimeout bounds curve resolution and bookmark I/O.
const requestTimeout = 10 * time.Second

// BookmarkStore lists and deletes bookmarks.
type BookmarkStore interface {
	ListBookmarks(ctx context.Context) ([]*store.Bookmark, error)
	GetBookmark(ctx context.Context, id string) (*store.Bookmark, error)
	DeleteBookmark(ctx context.Context, id string) error
}

type Server struct {
	sess      *session.Session
	bookmarks BookmarkStore
}

// NewServer serves sess. bookmarks may be nil.
func NewServer(sess *session.Session, bookmarks BookmarkStore) *Server {
	return &Server{sess: sess, bookmarks: bookmarks}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes and the debug chart pages.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/session/state", s.handleState)
	mux.HandleFunc("/api/session/curve", s.handleSelectCurve)
	mux.HandleFunc("/api/session/exit", s.handleExit)
	mux.HandleFunc("/api/session/step", s.handleStep)
	mux.HandleFunc("/api/session/goto", s.handleGoTo)
	mux.HandleFunc("/api/session/view2d", s.handleView2D)
	mux.HandleFunc("/api/session/clipping", s.handleClipping)
	mux.HandleFunc("/api/session/settings", s.handleSettings)
	mux.HandleFunc("/api/session/brush", s.handleBrush)
	mux.HandleFunc("/api/session/roads", s.handleDrawRoads)
	mux.HandleFunc("/api/session/deviations", s.handleDeviations)
	mux.HandleFunc("/api/session/retry", s.handleRetry)
	mux.HandleFunc("/api/session/distribution", s.handleDistribution)
	mux.HandleFunc("/api/session/histogram", s.handleHistogram)
	mux.HandleFunc("/api/session/crosssection", s.handleCrossSection)
	mux.HandleFunc("/api/session/bookmark", s.handleBookmarks)
	mux.HandleFunc("/api/session/bookmark/", s.handleBookmarkByID)
	monitor.NewCharts(s.sess).RegisterRoutes(mux)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"session": s.sess.ID(),
		"version": version.Version,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.sess.View())
}

type selectCurveRequest struct {
	IDs       []string                     `json:"ids"`
	Positions []navigator.SelectedPosition `json:"positions"`
	Mode      string                       `json:"mode"`
}

func (s *Server) handleSelectCurve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req selectCurveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sel := navigator.Selection{IDs: req.IDs, Positions: req.Positions}
	err := s.sess.SelectCurve(ctx, sel, curve.ParseSampleMode(req.Mode))
	switch {
	case errors.Is(err, session.ErrSuperseded):
		httputil.WriteJSONError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, curve.ErrNotResolved):
		httputil.NotFound(w, err.Error())
		return
	case err != nil:
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, s.sess.View())
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.sess.Exit()
	httputil.WriteJSONOK(w, s.sess.View())
}

// moved reports the navigation state after a move, with 422 when no
// sample was available.
func (s *Server) moved(w http.ResponseWriter, ok bool) {
	if !ok {
		httputil.WriteJSONError(w, http.StatusUnprocessableEntity, "no sample available")
		return
	}
	httputil.WriteJSONOK(w, s.sess.Navigation())
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		Dir int `json:"dir"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Dir == 0 {
		httputil.BadRequest(w, "dir must be +1 or -1")
		return
	}
	s.moved(w, s.sess.Step(req.Dir))
}

func (s *Server) handleGoTo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		Profile *float64 `json:"profile"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Profile == nil {
		httputil.BadRequest(w, "profile is required")
		return
	}
	s.moved(w, s.sess.GoTo(*req.Profile))
}

func (s *Server) handleView2D(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	s.sess.SetView2D(req.Enabled)
	httputil.WriteJSONOK(w, s.sess.Navigation())
}

func (s *Server) handleClipping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		Distance float64 `json:"distance"`
		Commit   bool    `json:"commit"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if !s.sess.SetClippingDistance(req.Distance, req.Commit) {
		httputil.BadRequest(w, "distance must be positive")
		return
	}
	httputil.WriteJSONOK(w, s.sess.Navigation())
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req session.SettingsPatch
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	s.sess.ApplySettings(req)
	httputil.WriteJSONOK(w, s.sess.View())
}

// brushRequest carries either a profile range, raw brush pixels, or
// neither to reset to the full range.
type brushRequest struct {
	Range  *curve.Range `json:"range"`
	Pixels *[2]float64  `json:"pixels"`
	Width  float64      `json:"width,omitempty"`
}

func (s *Server) handleBrush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req brushRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Width > 0 {
		s.sess.SetBrushWidth(req.Width)
	}
	switch {
	case req.Pixels != nil:
		if _, ok := s.sess.BrushEnd(req.Pixels[0], req.Pixels[1]); !ok {
			httputil.WriteJSONError(w, http.StatusUnprocessableEntity, "empty brush selection")
			return
		}
	default:
		s.sess.SetBrushRange(req.Range)
	}
	httputil.WriteJSONOK(w, s.sess.Distribution())
}

func (s *Server) handleDrawRoads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	s.sess.SetDrawRoads(req.IDs)
	httputil.WriteJSONOK(w, s.sess.CrossSection())
}

func (s *Server) handleDeviations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req navigator.Deviations
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	s.sess.SetDeviations(&req)
	httputil.WriteJSONOK(w, s.sess.View())
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		Target string `json:"target"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	var issued bool
	switch req.Target {
	case "distribution":
		issued = s.sess.RetryDistribution()
	case "crosssection":
		issued = s.sess.RetryCrossSection()
	default:
		httputil.BadRequest(w, fmt.Sprintf("unknown retry target %q", req.Target))
		return
	}
	httputil.WriteJSONOK(w, map[string]bool{"retried": issued})
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.sess.Distribution())
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	height := 0.0
	if h := r.URL.Query().Get("height"); h != "" {
		v, err := strconv.ParseFloat(h, 64)
		if err != nil || v <= 0 {
			httputil.BadRequest(w, "invalid 'height' parameter")
			return
		}
		height = v
	}
	httputil.WriteJSONOK(w, s.sess.Histogram(height))
}

func (s *Server) handleCrossSection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	st := s.sess.CrossSection()
	if st.Sections == nil {
		st.Sections = []crosssection.CrossSection{}
	}
	httputil.WriteJSONOK(w, st)
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	switch r.Method {
	case http.MethodGet:
		if s.bookmarks == nil {
			httputil.WriteJSONOK(w, []*store.Bookmark{})
			return
		}
		list, err := s.bookmarks.ListBookmarks(ctx)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, list)
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		b, err := s.sess.Bookmark(ctx, req.Name)
		switch {
		case errors.Is(err, session.ErrNotActive):
			httputil.WriteJSONError(w, http.StatusConflict, err.Error())
			return
		case errors.Is(err, session.ErrNoBookmarks):
			httputil.WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
			return
		case err != nil:
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, b)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleBookmarkByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/session/bookmark/")
	if id == "" || strings.Contains(id, "/") {
		httputil.NotFound(w, "bookmark not found")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	switch r.Method {
	case http.MethodGet:
		if s.bookmarks == nil {
			httputil.NotFound(w, store.ErrBookmarkNotFound.Error())
			return
		}
		b, err := s.bookmarks.GetBookmark(ctx, id)
		if err != nil {
			s.bookmarkError(w, err)
			return
		}
		httputil.WriteJSONOK(w, b)
	case http.MethodPost:
		if err := s.sess.Restore(ctx, id); err != nil {
			s.bookmarkError(w, err)
			return
		}
		httputil.WriteJSONOK(w, s.sess.View())
	case http.MethodDelete:
		if s.bookmarks == nil {
			httputil.NotFound(w, store.ErrBookmarkNotFound.Error())
			return
		}
		if err := s.bookmarks.DeleteBookmark(ctx, id); err != nil {
			s.bookmarkError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) bookmarkError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrBookmarkNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, session.ErrNoBookmarks):
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, curve.ErrNotResolved):
		httputil.WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}
