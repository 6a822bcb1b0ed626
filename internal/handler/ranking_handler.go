package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-ranking-api/internal/dto"
	"github.com/noah-isme/lms-ranking-api/internal/models"
	appErrors "github.com/noah-isme/lms-ranking-api/pkg/errors"
	"github.com/noah-isme/lms-ranking-api/pkg/response"
)

type rankingService interface {
	GenerateOverallRankings(ctx context.Context, gradeLevelID string) (*dto.RankingResult, error)
	GenerateSubjectRankings(ctx context.Context, subjectID, gradeLevelID string) (*dto.RankingResult, error)
	ListRankings(ctx context.Context, filter models.RankingFilter) ([]models.StudentRanking, *models.Pagination, bool, error)
	UserRankings(ctx context.Context, userID string) ([]models.StudentRanking, error)
}

// RankingHandler exposes student ranking endpoints.
type RankingHandler struct {
	service rankingService
}

// NewRankingHandler builds a ranking handler.
func NewRankingHandler(service rankingService) *RankingHandler {
	return &RankingHandler{service: service}
}

// GenerateOverall godoc
// @Summary Recompute overall rankings for a grade level
// @Tags Rankings
// @Produce json
// @Param gradeLevelId path string true "Grade level ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rankings/grade-levels/{gradeLevelId}/overall [post]
func (h *RankingHandler) GenerateOverall(c *gin.Context) {
	result, err := h.service.GenerateOverallRankings(c.Request.Context(), c.Param("gradeLevelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GenerateSubject godoc
// @Summary Recompute subject rankings for a grade level
// @Tags Rankings
// @Produce json
// @Param gradeLevelId path string true "Grade level ID"
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rankings/grade-levels/{gradeLevelId}/subjects/{subjectId} [post]
func (h *RankingHandler) GenerateSubject(c *gin.Context) {
	result, err := h.service.GenerateSubjectRankings(c.Request.Context(), c.Param("subjectId"), c.Param("gradeLevelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List ranking snapshots
// @Tags Rankings
// @Produce json
// @Param grade_level_id query string false "Grade level ID"
// @Param subject_id query string false "Subject ID"
// @Param type query string false "overall or subject"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /rankings [get]
func (h *RankingHandler) List(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rankingType := models.RankingType(strings.TrimSpace(c.Query("type")))
	if rankingType != "" && rankingType != models.RankingTypeOverall && rankingType != models.RankingTypeSubject {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type must be overall or subject"))
		return
	}
	filter := models.RankingFilter{
		GradeLevelID: strings.TrimSpace(c.Query("grade_level_id")),
		SubjectID:    strings.TrimSpace(c.Query("subject_id")),
		Type:         rankingType,
		Page:         page,
	}
	items, pagination, hit, err := h.service.ListRankings(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination, withCacheMeta(c, hit))
}

// UserRankings godoc
// @Summary List every ranking row for one student
// @Tags Rankings
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/rankings [get]
func (h *RankingHandler) UserRankings(c *gin.Context) {
	items, err := h.service.UserRankings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
