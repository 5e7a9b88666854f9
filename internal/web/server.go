// Package web serves the upload, cleaning and conversion flow over HTTP.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/nconklindev/datasweep/internal/config"
	"github.com/nconklindev/datasweep/internal/logging"
	"github.com/nconklindev/datasweep/internal/pipeline"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

type Server struct {
	cfg         config.ServerConfig
	previewRows int
	pipelineOpt pipeline.Options
	router      *chi.Mux
	handler     http.Handler
	server      *http.Server
}

// NewServer builds the router for cfg. Call Start to listen.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:         cfg.Server,
		previewRows: cfg.Preview.Rows,
		pipelineOpt: pipeline.Options{StrictDirection: cfg.Convert.StrictDirection},
		router:      chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.handler = cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition"},
	}).Handler(s.router)

	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/files", s.handleFiles)
		r.Post("/convert", s.handleConvert)
	})
}

// Handler returns the server's full handler chain, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	logging.FromContext(context.Background()).Info("starting server", "addr", s.cfg.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger logs one line per request with chi's request id attached.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logging.FromContext(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", r.RemoteAddr,
		)
	})
}
