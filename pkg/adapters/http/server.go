package http

import (
	"log/slog"
	"net/http"

	"github.com/civicchat/orchestra/internal/logging"
	"github.com/civicchat/orchestra/internal/sanitize"
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/observability"
	"github.com/civicchat/orchestra/pkg/ports"
	"github.com/civicchat/orchestra/pkg/threads"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

// Engine defines what the HTTP layer needs from the orchestrator.
type Engine interface {
	ports.Workflow
	Graph(target domain.AgentID) (*domain.Graph, error)
	Describe(target domain.AgentID) (string, error)
	NewState(ctx domain.RequestContext, messages ...domain.Message) domain.WorkflowState
}

// Server holds the HTTP handlers of the orchestrator.
type Server struct {
	engine       Engine
	threads      *threads.Manager
	auth         Authenticator
	metrics      *observability.Metrics
	logger       *slog.Logger
	corsOrigin   string
	maxBodyBytes int64
	maxTextBytes int
	mounts       map[string]http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithAuthenticator sets how callers are identified. The default rejects everyone.
func WithAuthenticator(a Authenticator) Option {
	return func(s *Server) {
		s.auth = a
	}
}

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger used for access logs and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCORSOrigin sets the Access-Control-Allow-Origin value. Empty disables CORS headers.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) {
		s.corsOrigin = origin
	}
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithMaxTextBytes bounds the text of a single request.
func WithMaxTextBytes(n int) Option {
	return func(s *Server) {
		s.maxTextBytes = n
	}
}

// WithMount serves h under pattern, behind authentication.
func WithMount(pattern string, h http.Handler) Option {
	return func(s *Server) {
		s.mounts[pattern] = h
	}
}

// NewServer creates the HTTP server for engine, storing histories in mgr.
func NewServer(engine Engine, mgr *threads.Manager, opts ...Option) *Server {
	s := &Server{
		engine:       engine,
		threads:      mgr,
		auth:         DenyAll,
		logger:       logging.NewNop(),
		corsOrigin:   "*",
		maxBodyBytes: DefaultMaxBodyBytes,
		maxTextBytes: sanitize.DefaultMaxSize,
		mounts:       map[string]http.Handler{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(s.cors)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(middleware.RequestSize(s.maxBodyBytes))

		r.Get("/graph", s.handleGraph)

		r.Route("/agents/{name}", func(r chi.Router) {
			r.Post("/", s.handleAgent)
			r.Post("/stream", s.handleAgentStream)
		})

		r.Route("/threads", func(r chi.Router) {
			r.Post("/", s.handleCreateThread)
			r.Get("/{id}", s.handleGetThread)
			r.Delete("/{id}", s.handleDeleteThread)
			r.Post("/{id}/messages", s.handleThreadMessage)
			r.Post("/{id}/messages/stream", s.handleThreadStream)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", s.handleCreateConversation)
			r.Post("/process", s.handleProcessConversation)
			r.Post("/stream", s.handleStreamConversation)
			r.Get("/{id}", s.handleGetConversation)
		})

		for pattern, h := range s.mounts {
			r.Mount(pattern, h)
		}
	})

	return r
}
