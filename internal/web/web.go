// Package web is the HTTP surface over the engine: agenda queries, event
// creation and iCalendar export/import.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"lifelist/internal/agenda"
	"lifelist/internal/config"
	"lifelist/internal/dateparse"
	"lifelist/internal/engine"
	"lifelist/internal/ics"
	appLog "lifelist/internal/log"
	"lifelist/internal/model"
	"lifelist/internal/store"
)

// maxBodyBytes caps request bodies on the write routes.
const maxBodyBytes = 1 << 20

// Server provides the HTTP API.
type Server struct {
	cfg     *config.Config
	engine  *engine.Engine
	fetcher *ics.Fetcher
	now     func() time.Time
	mux     *http.ServeMux
}

// NewServer constructs a Server over eng.
func NewServer(cfg *config.Config, eng *engine.Engine) *Server {
	s := &Server{
		cfg:     cfg,
		engine:  eng,
		fetcher: newFetcher(cfg),
		now:     time.Now,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func newFetcher(cfg *config.Config) *ics.Fetcher {
	if cfg != nil && cfg.ImportPrivateHosts {
		return ics.NewFetcher(&http.Client{Timeout: 15 * time.Second})
	}
	return ics.NewFetcher(nil)
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := s.logRequests(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password leaves auth off.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="lifelist", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start).String())
	})
}

// ListenAndServe serves on cfg.Listen until ctx is done, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, cfg *config.Config, eng *engine.Engine) error {
	s := NewServer(cfg, eng)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/new", s.handleNew)
	s.mux.HandleFunc("GET /api/calendar.ics", s.handleCalendar)
	s.mux.HandleFunc("POST /api/import", s.handleImport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleEvents returns the grouped agenda for the next count occurrences
// from date (default: now) in timezone.
//
//	GET /api/events?count=10&timezone=America/Los_Angeles&date=March+3
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	count := s.cfg.DefaultCount
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "count must be a non-negative integer")
			return
		}
		count = n
	}

	loc, err := s.requestLocation(q.Get("timezone"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	from := s.now().In(loc)
	if v := q.Get("date"); v != "" {
		p := &dateparse.Parser{Location: loc, Now: s.now}
		from, err = p.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	appLog.Info("api events request",
		"count", count,
		"date", model.DayKey(from),
		"timezone", loc.String(),
	)
	writeJSON(w, http.StatusOK, s.engine.Agenda(from, count))
}

// handleNew appends one event, given as JSON or YAML, to the data file.
func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	ev, err := store.DecodeEvent(body, s.engine.Parser())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.Add(ev); err != nil {
		s.writeEngineError(w, "api new failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, agenda.Summarize(ev))
}

// handleCalendar exports the source events as an iCalendar feed.
func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.engine.Events(), s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="lifelist.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

type importResponse struct {
	Imported int `json:"imported"`
}

// handleImport appends the events of an iCalendar payload. The payload
// is the request body, or the document at ?url= when given.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var (
		body []byte
		err  error
	)
	if u := r.URL.Query().Get("url"); u != "" {
		body, err = s.fetcher.Fetch(r.Context(), u)
		if errors.Is(err, ics.ErrForbiddenTarget) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		if err != nil {
			appLog.Error("api import fetch failed", err)
			writeError(w, http.StatusBadGateway, "failed to fetch calendar: "+err.Error())
			return
		}
	} else {
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
	}

	events, err := ics.Parse(body, resolveLocationOrLocal(s.cfg))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar: "+err.Error())
		return
	}
	if len(events) == 0 {
		writeError(w, http.StatusBadRequest, "calendar has no importable events")
		return
	}
	if err := s.engine.Add(events...); err != nil {
		s.writeEngineError(w, "api import failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, importResponse{Imported: len(events)})
}

// requestLocation resolves a timezone query parameter, defaulting to the
// configured zone.
func (s *Server) requestLocation(name string) (*time.Location, error) {
	if name == "" {
		return resolveLocationOrLocal(s.cfg), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q is not a known IANA zone", name)
	}
	return loc, nil
}

func (s *Server) writeEngineError(w http.ResponseWriter, msg string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		appLog.Error(msg, err)
	} else {
		appLog.Warn(msg, "status", status, "error", err.Error())
	}
	writeError(w, status, err.Error())
}

// errorStatus maps engine errors to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusServiceUnavailable
	case model.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func resolveLocationOrLocal(cfg *config.Config) *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
