// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caselode/filings-extractor/internal/common"
	"github.com/caselode/filings-extractor/internal/entity"
	"github.com/caselode/filings-extractor/internal/export"
	"github.com/caselode/filings-extractor/internal/repository"
)

// Runner is the pipeline surface the server needs.
type Runner interface {
	Run(ctx context.Context, doc entity.Document) (*entity.ConsolidatedResult, error)
}

// Server holds the state for the REST API.
type Server struct {
	runner   Runner
	runs     repository.RunRepository
	reviews  repository.ReviewRepository
	exporter *export.Service
	logger   *slog.Logger
	router   *gin.Engine
}

func NewServer(runner Runner, runs repository.RunRepository, reviews repository.ReviewRepository, exporter *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		runner:   runner,
		runs:     runs,
		reviews:  reviews,
		exporter: exporter,
		logger:   logger,
		router:   gin.Default(),
	}
	s.setupRoutes()
	return s
}

// Run starts the server on the specified address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.POST("/v1/extractions", s.handleExtract)
	s.router.GET("/v1/extractions", s.handleListRuns)
	s.router.GET("/v1/extractions/:id", s.handleGetRun)
	s.router.GET("/v1/extractions/:id/export", s.handleExport)
	s.router.GET("/v1/review-queue", s.handleReviewQueue)
	s.router.POST("/v1/review-queue/:id/resolve", s.handleResolveReview)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}

// handleError maps domain errors onto HTTP statuses.
func (s *Server) handleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrSegmentationFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrProviderCall):
		status = http.StatusBadGateway
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		c.JSON(status, gin.H{"code": appErr.Code, "error": appErr.Message})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
