// Package httpapi exposes the query router over HTTP.
package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"case-assistant/internal/agent/payload"
	"case-assistant/internal/agent/session"
	"case-assistant/internal/common/logger"
	"case-assistant/internal/repository"
)

const (
	defaultBodyLimit      = 64 * 1024
	defaultRequestTimeout = 15 * time.Second
)

// Router is the conversational surface served over HTTP.
type Router interface {
	Handle(ctx context.Context, query, sessionID string) payload.Payload
	Reset(sessionID string) payload.Payload
	RecordAnswer(sessionID, question, answer string) bool
	Session(sessionID string) session.State
}

type HealthChecker interface {
	Health(ctx context.Context) repository.HealthReport
}

type Options struct {
	BodyLimit      int
	RequestTimeout time.Duration
	// Ready gates /ready. Nil means always ready.
	Ready func() bool
}

type Server struct {
	app     *fiber.App
	router  Router
	health  HealthChecker
	logger  logger.Logger
	timeout time.Duration
	ready   func() bool
}

func New(router Router, health HealthChecker, log logger.Logger, opts Options) *Server {
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = defaultBodyLimit
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Ready == nil {
		opts.Ready = func() bool { return true }
	}

	s := &Server{
		router:  router,
		health:  health,
		logger:  log.WithFields(map[string]interface{}{"component": "http-api"}),
		timeout: opts.RequestTimeout,
		ready:   opts.Ready,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "case-assistant",
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(requestID())
	s.app.Use(otelfiber.Middleware())
	s.app.Use(s.accessLog())

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.liveness)
	s.app.Get("/ready", s.readiness)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api/v1")
	api.Post("/query", s.query)
	api.Get("/sessions/:id", s.getSession)
	api.Delete("/sessions/:id", s.resetSession)
	api.Post("/sessions/:id/answer", s.recordAnswer)
	api.Get("/health/repository", s.repositoryHealth)
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP API listening", map[string]interface{}{"address": addr})
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
