package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/AumkarMali/backendVibeVideo/internal/connectors"
	"github.com/AumkarMali/backendVibeVideo/internal/dlp"
	"github.com/AumkarMali/backendVibeVideo/internal/engine"
	"github.com/AumkarMali/backendVibeVideo/internal/ledger"
	"github.com/AumkarMali/backendVibeVideo/internal/merge"
	"github.com/AumkarMali/backendVibeVideo/internal/metrics"
	"github.com/AumkarMali/backendVibeVideo/internal/staging"
)

const (
	// multipart parts above this size spill to disk
	formMemoryBytes = 8 << 20
	formOverhead    = 1 << 20

	defaultMaxUploadBytes = 512 << 20
	defaultMaxMergeFiles  = 20
)

// Deps are the collaborators a Server needs. Scanner, Archiver and Gatherer
// are optional.
type Deps struct {
	Stager         *staging.Stager
	Dispatcher     *engine.Dispatcher
	Merger         *merge.Service
	Scanner        dlp.Scanner
	Archiver       *connectors.Archiver
	Ledger         *ledger.Ledger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	MaxUploadBytes int64
	MaxMergeFiles  int
	Logger         zerolog.Logger
}

// Server handles the process and merge endpoints.
type Server struct {
	stager         *staging.Stager
	dispatcher     *engine.Dispatcher
	merger         *merge.Service
	scanner        dlp.Scanner
	archiver       *connectors.Archiver
	ledger         *ledger.Ledger
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	maxUploadBytes int64
	maxMergeFiles  int
	logger         zerolog.Logger
	router         chi.Router
}

func New(d Deps) *Server {
	s := &Server{
		stager:         d.Stager,
		dispatcher:     d.Dispatcher,
		merger:         d.Merger,
		scanner:        d.Scanner,
		archiver:       d.Archiver,
		ledger:         d.Ledger,
		metrics:        d.Metrics,
		gatherer:       d.Gatherer,
		maxUploadBytes: d.MaxUploadBytes,
		maxMergeFiles:  d.MaxMergeFiles,
		logger:         d.Logger.With().Str("component", "http").Logger(),
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}
	if s.maxMergeFiles < merge.MinAssets {
		s.maxMergeFiles = defaultMaxMergeFiles
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", healthz)
	r.Get("/operations", s.handleOperations)
	r.Post("/process", s.handleProcess)
	r.Post("/merge", s.handleMerge)
	r.Get("/requests/{id}", s.handleRequestDetail)
	r.Get("/debug/routes", s.handleRoutes)
	r.Get("/debug/store", s.handleStoreState)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// requestLogger writes one zerolog line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Str("remote", r.RemoteAddr).
					Str("req_id", middleware.GetReqID(r.Context())).
					Dur("elapsed", time.Since(start)).
					Msg("http request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// corsMiddleware allows browser calls from the web client.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Type,Content-Disposition,X-Request-ID,X-Operation,X-Artifact-Name")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
