// Package server exposes the query pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/zen-systems/retailgate/pkg/agent"
	"github.com/zen-systems/retailgate/pkg/sqlexec"
)

// DefaultTimeout bounds one pipeline call, covering every model call
// and SQL retry it makes.
const DefaultTimeout = 120 * time.Second

// QueryHandler answers one query end to end.
type QueryHandler interface {
	Handle(ctx context.Context, query string) agent.Response
}

// QueryRequest is the POST /query payload.
type QueryRequest struct {
	Query string `json:"query"`
}

// Server serves the pipeline over HTTP.
type Server struct {
	echo    *echo.Echo
	handler QueryHandler
	logger  *zap.SugaredLogger
	timeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTimeout bounds each pipeline call.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// New creates a server over the given query handler.
func New(handler QueryHandler, opts ...Option) *Server {
	s := &Server{
		handler: handler,
		logger:  zap.NewNop().Sugar(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/healthz", s.health)
	e.POST("/query", s.query)

	s.echo = e
	return s
}

func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	s.logger.Infow("http error",
		"status", code,
		"method", req.Method,
		"path", req.URL.Path,
		"remote", c.RealIP(),
		"error", err.Error(),
	)
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

func (s *Server) health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) query(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query must not be empty")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()

	resp := s.handler.Handle(ctx, req.Query)
	s.logger.Infow("query handled",
		"request_id", resp.RequestID,
		"decision", string(resp.Decision),
		"error", resp.Error,
	)

	status := http.StatusOK
	if resp.Error == string(sqlexec.FailUnavailable) {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

// Start listens on addr until Shutdown or failure.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying http.Handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
