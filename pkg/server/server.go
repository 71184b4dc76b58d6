package server

import (
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/limn/pkg/buildinfo"
	"github.com/matzehuels/limn/pkg/observability"
	"github.com/matzehuels/limn/pkg/pipeline"
	"github.com/matzehuels/limn/pkg/session"
	"github.com/matzehuels/limn/pkg/store"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// Server serves the session API.
type Server struct {
	sessions *session.Manager
	store    store.Store
	logger   *log.Logger
	runner   *pipeline.Runner
	gatherer prometheus.Gatherer
	router   chi.Router
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore enables persisting snapshots. Without a store the snapshot
// persistence routes answer 501.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithRunner enables the stateless POST /solve route.
func WithRunner(r *pipeline.Runner) Option {
	return func(s *Server) { s.runner = r }
}

// WithMetrics mounts /metrics for the given gatherer.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New creates a server for the given session manager.
func New(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/edits", s.handleEdits)
			r.Delete("/widgets/{name}", s.handleRemoveWidget)
			r.Post("/widgets/{name}/hide", s.handleHide(true))
			r.Post("/widgets/{name}/unhide", s.handleHide(false))
			r.Get("/snapshot", s.handleSnapshot)
			r.Post("/snapshot", s.handleSaveSnapshot)
		})
	})
	r.Get("/snapshots/{id}", s.handleLoadSnapshot)
	if s.runner != nil {
		r.Post("/solve", s.handleSolve)
	}
	return r
}

// observe sets the Server header, reports requests to the HTTP hooks and
// logs them at debug level. The route is the matched pattern, known only
// after routing.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set("Server", buildinfo.ServerHeader())
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, route)
		hooks.OnResponse(r.Context(), r.Method, route, status, d)
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status, "duration", d)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status   string         `json:"status"`
		Sessions int            `json:"sessions"`
		Build    buildinfo.Info `json:"build"`
	}{"ok", s.sessions.Len(), buildinfo.Get()})
}
