// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/0xcro3dile/coursechat-go/internal/domain/usecases"
	"github.com/0xcro3dile/coursechat-go/internal/infrastructure/metrics"
)

// Options configures the listener.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // must cover a full oracle call
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	// Optional health probes.
	OracleState func() string
	IndexSize   func(ctx context.Context) (int, error)
}

// Server is the HTTP server for the course question API.
type Server struct {
	// router is swapped whole when the catalog reloads; a request keeps the
	// snapshot it loaded.
	router  atomic.Pointer[usecases.QueryUseCase]
	metrics *metrics.Collector
	logger  zerolog.Logger
	opts    Options
	handler http.Handler
}

// NewServer creates a new HTTP server answering from router.
func NewServer(router *usecases.QueryUseCase, collector *metrics.Collector, opts Options, logger zerolog.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 120 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}

	s := &Server{
		metrics: collector,
		logger:  logger.With().Str("component", "http").Logger(),
		opts:    opts,
	}
	s.router.Store(router)
	s.handler = s.routes()
	return s
}

// SetRouter replaces the router used by subsequent requests.
func (s *Server) SetRouter(router *usecases.QueryUseCase) {
	s.router.Store(router)
}

// Router returns the router currently serving requests.
func (s *Server) Router() *usecases.QueryUseCase {
	return s.router.Load()
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Get("/health", s.handleHealth)
		r.Get("/courses", s.handleCourses)
		r.Get("/courses/{courseID}", s.handleCourse)
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	return r
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	s.logger.Info().Str("addr", s.opts.Addr).Msg("coursechat server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("shutdown")
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
