package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/wlog/internal/auth"
	"github.com/claude/wlog/internal/metrics"
	"github.com/claude/wlog/internal/storage"
	"github.com/claude/wlog/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	workout     *workout.Service
	auth        *auth.Authenticator
	sessions    storage.Sessions
	metrics     *metrics.Manager
	gatherer    prometheus.Gatherer
	corsOrigins []string
	log         *slog.Logger
	router      chi.Router
}

// Options carries the optional parts of a Server.
type Options struct {
	Metrics *metrics.Manager
	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

// New creates a new Server with all routes configured.
func New(svc *workout.Service, authn *auth.Authenticator, sessions storage.Sessions, opts Options, log *slog.Logger) *Server {
	s := &Server{
		workout:     svc,
		auth:        authn,
		sessions:    sessions,
		metrics:     opts.Metrics,
		gatherer:    opts.Gatherer,
		corsOrigins: opts.CORSOrigins,
		log:         log,
		router:      chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log, s.metrics))
	if len(s.corsOrigins) > 0 {
		s.router.Use(CORS(s.corsOrigins))
	}

	s.router.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// OAuth flow (no session yet)
	s.router.Get("/auth/login", s.handleLogin)
	s.router.Get("/api/auth/callback", s.handleCallback)
	s.router.Post("/api/auth/logout", s.handleLogout)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionAuth(s.auth, s.log))

		r.Get("/me", s.handleMe)
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handleSaveConfig)
		r.Delete("/config", s.handleClearConfig)
		r.Get("/databases", s.handleSearchDatabases)

		r.Get("/exercises", s.handleListExercises)
		r.Post("/exercises", s.handleCreateExercise)
		r.Get("/exercises/options", s.handleExerciseOptions)
		r.Put("/exercises/{id}", s.handleUpdateExercise)
		r.Delete("/exercises/{id}", s.handleDeleteExercise)

		r.Post("/logs", s.handleSubmitLog)

		r.Get("/routines", s.handleListRoutines)
		r.Post("/routines", s.handleSaveRoutine)
		r.Delete("/routines/{id}", s.handleDeleteRoutine)
	})
}
