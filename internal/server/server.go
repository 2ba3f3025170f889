// Package server provides the HTTP API for debugd: task submission,
// task lookup, SSE streaming, and the status surface.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/debugd/internal/config"
	"github.com/fyrsmithlabs/debugd/internal/memory"
	"github.com/fyrsmithlabs/debugd/internal/team"
	"github.com/fyrsmithlabs/debugd/internal/version"
)

// Solver runs one debugging task. Implemented by *team.Team.
type Solver interface {
	Solve(ctx context.Context, bugReport string, extra map[string]interface{}) *team.RunResult
	SolveStream(ctx context.Context, bugReport string, extra map[string]interface{}) <-chan team.Event
	Status() team.Status
}

// Server provides HTTP endpoints for debugd.
type Server struct {
	echo     *echo.Echo
	solver   Solver
	bridge   *memory.Bridge
	registry *Registry
	logger   *zap.Logger
	cfg      config.ServerConfig
}

// NewServer creates the HTTP server.
func NewServer(cfg config.ServerConfig, solver Solver, bridge *memory.Bridge, logger *zap.Logger) (*Server, error) {
	if solver == nil {
		return nil, fmt.Errorf("solver cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:     e,
		solver:   solver,
		bridge:   bridge,
		registry: NewRegistry(),
		logger:   logger,
		cfg:      cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/solve", s.handleSolve)
	v1.POST("/solve/stream", s.handleSolveStream)
	v1.GET("/tasks/:id", s.handleGetTask)
	v1.GET("/status", s.handleStatus)
}

// SolveRequest is the request body for POST /api/v1/solve.
type SolveRequest struct {
	BugReport string                 `json:"bug_report"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// SolveResponse is the response body for POST /api/v1/solve.
type SolveResponse struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Team    team.Status    `json:"team"`
	Memory  memory.Stats   `json:"memory"`
	Tasks   map[string]int `json:"tasks"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleSolve accepts a bug report and runs it in the background. The
// task record carries the eventual result; mid-run failures are a
// failed task record, not an HTTP error.
func (s *Server) handleSolve(c echo.Context) error {
	var req SolveRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid solve request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.BugReport == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "bug_report field is required")
	}

	taskID := uuid.New().String()
	task := s.registry.Create(taskID)

	go func() {
		s.registry.SetProcessing(taskID)
		result := s.solver.Solve(context.Background(), req.BugReport, req.Context)
		s.registry.Complete(taskID, result)
	}()

	return c.JSON(http.StatusAccepted, SolveResponse{
		TaskID:    taskID,
		Status:    task.Status,
		CreatedAt: task.CreatedAt,
	})
}

func (s *Server) handleGetTask(c echo.Context) error {
	task, err := s.registry.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	return c.JSON(http.StatusOK, task)
}

// handleSolveStream runs the task and streams lifecycle events over
// SSE: task_created, turn, task_completed, error.
func (s *Server) handleSolveStream(c echo.Context) error {
	var req SolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.BugReport == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "bug_report field is required")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	events := s.solver.SolveStream(ctx, req.BugReport, req.Context)
	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			s.logger.Warn("failed to encode event", zap.Error(err))
			continue
		}
		if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
			return nil // client went away
		}
		resp.Flush()
	}
	return nil
}

func (s *Server) handleStatus(c echo.Context) error {
	var memStats memory.Stats
	if s.bridge != nil {
		memStats = s.bridge.Statistics(c.Request().Context())
	}
	return c.JSON(http.StatusOK, StatusResponse{
		Status:  "ready",
		Version: version.Version,
		Team:    s.solver.Status(),
		Memory:  memStats,
		Tasks:   s.registry.Count(),
	})
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
