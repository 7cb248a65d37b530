package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caselode/filings-extractor/constants"
	"github.com/caselode/filings-extractor/internal/common"
	"github.com/caselode/filings-extractor/internal/entity"
)

type extractRequest struct {
	DocumentBase64 string                  `json:"document_base64"`
	DocumentKind   string                  `json:"document_kind"`
	Metadata       entity.DocumentMetadata `json:"metadata"`
}

// handleExtract runs the pipeline synchronously for one uploaded document.
// Extraction calls are sequential inside a run, so a large batched document
// can take a while; callers set their own request timeout.
func (s *Server) handleExtract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, common.NewAppError("BAD_REQUEST", "invalid request body", common.ErrInvalidInput))
		return
	}
	kind, ok := constants.ParseKind(req.DocumentKind)
	if !ok {
		s.handleError(c, common.NewAppError("BAD_KIND",
			"document_kind must be one of CASE_FILING, GAZETTE_ISSUE", common.ErrInvalidInput))
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.DocumentBase64)
	if err != nil || len(raw) == 0 {
		s.handleError(c, common.NewAppError("BAD_DOCUMENT",
			"document_base64 must be non-empty base64", common.ErrInvalidInput))
		return
	}

	doc := entity.Document{
		ID:       uuid.New(),
		Kind:     kind,
		Bytes:    raw,
		Metadata: req.Metadata,
	}

	res, err := s.runner.Run(c.Request.Context(), doc)
	if err != nil {
		status := constants.RunStatusFailed
		if errors.Is(err, common.ErrSegmentationFailed) {
			status = constants.RunStatusSegmentationFailed
		}
		if dbErr := s.runs.RecordFailure(c.Request.Context(), doc.ID, kind, status, err.Error()); dbErr != nil {
			s.logger.Error("server.extract.record_failure", "run_id", doc.ID, "error", dbErr)
		}
		s.handleError(c, err)
		return
	}

	if err := s.runs.SaveResult(c.Request.Context(), res); err != nil {
		s.handleError(c, err)
		return
	}
	if res.RequiresReview {
		priority := 2
		reason := "quality score below review threshold"
		if res.Summary.BatchesFailed > 0 {
			priority = 1
			reason = "partial result: one or more batches failed"
		}
		item := entity.ReviewItem{
			ItemType: "extraction_run",
			ItemID:   res.RunID,
			Reason:   reason,
			Priority: priority,
		}
		if err := s.reviews.Enqueue(c.Request.Context(), item); err != nil {
			s.logger.Error("server.extract.enqueue_review", "run_id", res.RunID, "error", err)
		}
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) handleGetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.handleError(c, common.NewAppError("BAD_ID", "run id must be a uuid", common.ErrInvalidInput))
		return
	}
	res, status, err := s.runs.GetResult(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusOK, gin.H{"run_id": id, "status": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "result": res})
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.runs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleExport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.handleError(c, common.NewAppError("BAD_ID", "run id must be a uuid", common.ErrInvalidInput))
		return
	}
	blob, err := s.exporter.ExportRunXLSX(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="extraction-`+id.String()+`.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", blob)
}

func (s *Server) handleReviewQueue(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := s.reviews.ListPending(c.Request.Context(), limit)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleResolveReview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.handleError(c, common.NewAppError("BAD_ID", "review item id must be a uuid", common.ErrInvalidInput))
		return
	}
	if err := s.reviews.Resolve(c.Request.Context(), id); err != nil {
		s.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
