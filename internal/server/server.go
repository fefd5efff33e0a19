// Package server exposes the query engine, job worker and observability
// reports over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codescout-ai/codescout/internal/engine"
	"github.com/codescout-ai/codescout/internal/models"
	"github.com/codescout-ai/codescout/internal/scheduler"
)

// QueryService answers questions about indexed projects.
type QueryService interface {
	Answer(ctx context.Context, projectID, question string, history []models.ConversationTurn) (*models.CachedAnswer, error)
}

// JobWorker processes at most one queued indexing job per call.
type JobWorker interface {
	RunOnce(ctx context.Context) (scheduler.Outcome, error)
}

// ReportBuilder aggregates per-project observability reports.
type ReportBuilder interface {
	Report(ctx context.Context, projectID string, windowDays int) (*models.Report, error)
}

// Server wires the HTTP API to the engine, scheduler and aggregator.
type Server struct {
	engine     QueryService
	worker     JobWorker
	aggregator ReportBuilder
	logger     *slog.Logger
	http       *http.Server
}

// New creates the server and registers all routes.
func New(eng QueryService, worker JobWorker, agg ReportBuilder, logger *slog.Logger, port int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:     eng,
		worker:     worker,
		aggregator: agg,
		logger:     logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/health", s.handleHealth)
	api := router.Group("/api")
	{
		api.POST("/query", s.handleQuery)
		api.POST("/worker/run", s.handleWorkerRun)
		api.GET("/projects/:id/report", s.handleReport)
	}

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

type queryRequest struct {
	ProjectID string                    `json:"project_id" binding:"required"`
	Question  string                    `json:"question" binding:"required"`
	History   []models.ConversationTurn `json:"conversation_history"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id and question are required"})
		return
	}

	ans, err := s.engine.Answer(c.Request.Context(), req.ProjectID, req.Question, req.History)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, engine.ErrProjectNotIndexed):
			c.JSON(http.StatusNotFound, gin.H{"error": "project is not indexed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": engine.ErrQueryFailed.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, ans)
}

// handleWorkerRun processes at most one indexing job. A periodic external
// trigger calls this; concurrent calls are safe because the claim is atomic.
func (s *Server) handleWorkerRun(c *gin.Context) {
	out, err := s.worker.RunOnce(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "worker run failed"})
		return
	}
	resp := gin.H{"status": out.Status}
	if out.JobID != "" {
		resp["job_id"] = out.JobID
		resp["project_id"] = out.ProjectID
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleReport(c *gin.Context) {
	projectID := c.Param("id")
	windowDays := 7
	if d := c.Query("window_days"); d != "" {
		if _, err := fmt.Sscanf(d, "%d", &windowDays); err != nil || windowDays <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window_days must be a positive integer"})
			return
		}
	}

	report, err := s.aggregator.Report(c.Request.Context(), projectID, windowDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
