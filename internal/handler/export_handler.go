package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-ranking-api/internal/models"
	"github.com/noah-isme/lms-ranking-api/internal/service"
	appErrors "github.com/noah-isme/lms-ranking-api/pkg/errors"
	"github.com/noah-isme/lms-ranking-api/pkg/response"
)

type exportService interface {
	ExportRankings(ctx context.Context, scope models.RankingScope, format service.ExportFormat) (*service.ExportFile, error)
	ExportLeaderboard(ctx context.Context, id string, format service.ExportFormat, includeHidden bool) (*service.ExportFile, error)
}

// ExportHandler streams ranking and leaderboard downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds an export handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Rankings godoc
// @Summary Download a ranking snapshot
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param grade_level_id query string true "Grade level ID"
// @Param subject_id query string false "Subject ID (omit for overall)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /rankings/export [get]
func (h *ExportHandler) Rankings(c *gin.Context) {
	gradeLevelID := strings.TrimSpace(c.Query("grade_level_id"))
	if gradeLevelID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "grade_level_id is required"))
		return
	}
	scope := models.RankingScope{GradeLevelID: gradeLevelID}
	if subjectID := strings.TrimSpace(c.Query("subject_id")); subjectID != "" {
		scope.SubjectID = &subjectID
	}
	file, err := h.service.ExportRankings(c.Request.Context(), scope, exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// Leaderboard godoc
// @Summary Download leaderboard standings
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Leaderboard ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /leaderboards/{id}/export [get]
func (h *ExportHandler) Leaderboard(c *gin.Context) {
	includeHidden := claimsFromContext(c).IsAdmin()
	file, err := h.service.ExportLeaderboard(c.Request.Context(), c.Param("id"), exportFormat(c), includeHidden)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

func exportFormat(c *gin.Context) service.ExportFormat {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", string(service.ExportFormatCSV))))
	return service.ExportFormat(format)
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	response.File(c, file.Filename, file.ContentType, file.Data)
}
