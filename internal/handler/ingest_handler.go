package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-ranking-api/internal/dto"
	"github.com/noah-isme/lms-ranking-api/pkg/response"
)

type ingestService interface {
	RecordPerformance(ctx context.Context, req dto.RecordPerformanceRequest) (*dto.IngestResult, error)
	AwardPoints(ctx context.Context, req dto.AwardPointsRequest) (*dto.IngestResult, error)
}

// IngestHandler accepts performance scores and point events pushed by the LMS.
type IngestHandler struct {
	service ingestService
}

// NewIngestHandler builds an ingest handler.
func NewIngestHandler(service ingestService) *IngestHandler {
	return &IngestHandler{service: service}
}

// RecordPerformance godoc
// @Summary Append performance records
// @Tags Ingest
// @Accept json
// @Produce json
// @Param payload body dto.RecordPerformanceRequest true "Performance records"
// @Success 201 {object} response.Envelope
// @Router /performance-records [post]
func (h *IngestHandler) RecordPerformance(c *gin.Context) {
	var req dto.RecordPerformanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid performance payload"))
		return
	}
	result, err := h.service.RecordPerformance(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil)
}

// AwardPoints godoc
// @Summary Append point ledger events
// @Tags Ingest
// @Accept json
// @Produce json
// @Param payload body dto.AwardPointsRequest true "Point events"
// @Success 201 {object} response.Envelope
// @Router /user-points [post]
func (h *IngestHandler) AwardPoints(c *gin.Context) {
	var req dto.AwardPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid points payload"))
		return
	}
	result, err := h.service.AwardPoints(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil)
}
