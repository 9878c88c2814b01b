// Package httpapi exposes a small control surface for triggering and
// inspecting pipeline runs.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"tintero.dev/escriba/internal/pipeline"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (pipeline.RunReport, error)
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RunTimeout      time.Duration
	SheetBackend    string
	PublishTarget   string
}

// Server serves the runs API. At most one run is in flight at a time; a
// second trigger while one is running is rejected with 409.
type Server struct {
	runner Runner
	logger zerolog.Logger
	opts   Options

	mu      sync.Mutex
	running bool
	latest  *pipeline.RunReport
}

func NewServer(runner Runner, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8080
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	runTimeout := opts.RunTimeout
	if runTimeout <= 0 {
		runTimeout = 30 * time.Minute
	}

	return &Server{
		runner: runner,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			RunTimeout:      runTimeout,
			SheetBackend:    opts.SheetBackend,
			PublishTarget:   opts.PublishTarget,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.runner == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.newEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("escriba control server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("escriba control server stopped")
	return nil
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.POST("/runs", s.handleTriggerRun)
	api.GET("/runs/latest", s.handleLatestRun)

	return e
}

type triggerRunRequest struct {
	DryRun       bool `json:"dry_run"`
	SkipSemantic bool `json:"skip_semantic"`
}

type triggerRunResponse struct {
	RunID        string `json:"run_id"`
	DryRun       bool   `json:"dry_run"`
	SkipSemantic bool   `json:"skip_semantic"`
}

func (s *Server) handleTriggerRun(c echo.Context) error {
	var req triggerRunRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body", nil)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fail(c, http.StatusConflict, "a run is already in progress", nil)
	}
	s.running = true
	s.mu.Unlock()

	opts := pipeline.RunOptions{
		DryRun:       req.DryRun,
		SkipSemantic: req.SkipSemantic,
	}

	triggerID := uuid.NewString()
	go s.executeRun(triggerID, opts)

	return successWithStatus(c, http.StatusAccepted, triggerRunResponse{
		RunID:        triggerID,
		DryRun:       req.DryRun,
		SkipSemantic: req.SkipSemantic,
	})
}

func (s *Server) executeRun(triggerID string, opts pipeline.RunOptions) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.RunTimeout)
	defer cancel()

	report, err := s.runner.Run(ctx, opts)
	if err != nil {
		s.logger.Error().Err(err).Str("trigger_id", triggerID).Msg("triggered run failed")
	}

	s.mu.Lock()
	s.latest = &report
	s.running = false
	s.mu.Unlock()
}

func (s *Server) handleLatestRun(c echo.Context) error {
	s.mu.Lock()
	latest := s.latest
	s.mu.Unlock()

	if latest == nil {
		return failNotFound(c, "no run has completed yet")
	}
	return success(c, latest)
}

func (s *Server) handleHealth(c echo.Context) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return success(c, map[string]any{
		"status":         "ok",
		"run_in_flight":  running,
		"sheet_backend":  s.opts.SheetBackend,
		"publish_target": s.opts.PublishTarget,
	})
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := fmt.Sprintf("%v", httpErr.Message)
		if writeErr := fail(c, httpErr.Code, message, nil); writeErr != nil {
			s.logger.Error().Err(writeErr).Msg("failed to write error response")
		}
		return
	}

	if writeErr := internalError(c, "internal server error"); writeErr != nil {
		s.logger.Error().Err(writeErr).Msg("failed to write error response")
	}
}
