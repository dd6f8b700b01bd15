package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/percentile-data/growth.report/internal/config"
	"github.com/percentile-data/growth.report/internal/db"
	"github.com/percentile-data/growth.report/internal/httputil"
	"github.com/percentile-data/growth.report/internal/monitoring"
	"github.com/percentile-data/growth.report/internal/refcache"
	"github.com/percentile-data/growth.report/internal/timeline"
	"github.com/percentile-data/growth.report/internal/timeutil"
	"github.com/percentile-data/growth.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server carries the handler dependencies: storage, the percentile engine,
// the reference cache behind it, and the loaded configuration.
type Server struct {
	db     *db.DB
	cache  *refcache.Cache
	engine *timeline.Engine
	cfg    *config.ServerConfig
	clock  timeutil.Clock
}

func NewServer(database *db.DB, cache *refcache.Cache, cfg *config.ServerConfig) *Server {
	return &Server{
		db:     database,
		cache:  cache,
		engine: timeline.New(cache, cfg.GetDefaultSource()),
		cfg:    cfg,
		clock:  timeutil.RealClock{},
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
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
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/persons", s.handlePersonsOrCreate)
	mux.HandleFunc("/api/persons/", s.handlePersonSubroutes)
	mux.HandleFunc("/api/measurements/", s.handleMeasurementSubroutes)
	mux.HandleFunc("/api/evaluate", s.handleEvaluate)
	mux.HandleFunc("/api/references", s.handleReferences)
	mux.HandleFunc("/api/references/", s.handleReferenceDataset)
	mux.HandleFunc("/api/import", s.handleImport)
	mux.HandleFunc("/api/export", s.handleExport)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"git_sha": version.GitSHA,
	})
}
