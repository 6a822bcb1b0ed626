package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/lms-ranking-api/internal/dto"
	"github.com/noah-isme/lms-ranking-api/internal/middleware"
	"github.com/noah-isme/lms-ranking-api/internal/models"
	appErrors "github.com/noah-isme/lms-ranking-api/pkg/errors"
	"github.com/noah-isme/lms-ranking-api/pkg/jobs"
	"github.com/noah-isme/lms-ranking-api/pkg/response"
)

type leaderboardService interface {
	CreateLeaderboard(ctx context.Context, req dto.CreateLeaderboardRequest) (*models.Leaderboard, error)
	UpdateLeaderboardSettings(ctx context.Context, id string, req dto.UpdateLeaderboardRequest) (*models.Leaderboard, error)
	DeleteLeaderboard(ctx context.Context, id string) error
	UpdateLeaderboard(ctx context.Context, id string) (*dto.LeaderboardDetail, error)
	UpdateAllActiveLeaderboards(ctx context.Context) (*dto.BatchRefreshResult, error)
	Get(ctx context.Context, id string) (*dto.LeaderboardDetail, error)
	List(ctx context.Context, filter models.LeaderboardFilter) ([]models.Leaderboard, *models.Pagination, error)
	Entries(ctx context.Context, id string, page models.PageRequest, includeHidden bool) ([]models.LeaderboardEntry, *models.Pagination, bool, error)
	UserStanding(ctx context.Context, id, userID string, includeHidden bool) (*dto.UserStanding, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) (bool, error)
}

// LeaderboardHandler exposes leaderboard management and read endpoints.
type LeaderboardHandler struct {
	service leaderboardService
	queue   jobEnqueuer
}

// NewLeaderboardHandler builds a leaderboard handler. queue may be nil, in which case async refreshes are rejected.
func NewLeaderboardHandler(service leaderboardService, queue jobEnqueuer) *LeaderboardHandler {
	return &LeaderboardHandler{service: service, queue: queue}
}

// List godoc
// @Summary List leaderboards
// @Tags Leaderboards
// @Produce json
// @Param scope_type query string false "site, course or category"
// @Param scope_id query string false "Scope entity ID"
// @Param active query bool false "Only active leaderboards"
// @Success 200 {object} response.Envelope
// @Router /leaderboards [get]
func (h *LeaderboardHandler) List(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.LeaderboardFilter{
		ScopeType:  models.LeaderboardScopeType(strings.TrimSpace(c.Query("scope_type"))),
		ScopeID:    strings.TrimSpace(c.Query("scope_id")),
		ActiveOnly: boolQuery(c, "active"),
		Page:       page,
	}
	if filter.ScopeType != "" && !filter.ScopeType.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown scope_type"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Create godoc
// @Summary Create a leaderboard and compute its first standings
// @Tags Leaderboards
// @Accept json
// @Produce json
// @Param payload body dto.CreateLeaderboardRequest true "Leaderboard definition"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaderboards [post]
func (h *LeaderboardHandler) Create(c *gin.Context) {
	var req dto.CreateLeaderboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid leaderboard payload"))
		return
	}
	lb, err := h.service.CreateLeaderboard(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.service.UpdateLeaderboard(c.Request.Context(), lb.ID)
	if err != nil {
		middleware.SetMeta(c, "entries_refreshed", false)
		middleware.SetMeta(c, "refresh_error", appErrors.FromError(err).Message)
		response.JSON(c, http.StatusCreated, dto.LeaderboardDetail{Leaderboard: *lb}, nil, middleware.ExtractMeta(c))
		return
	}
	middleware.SetMeta(c, "entries_refreshed", true)
	response.JSON(c, http.StatusCreated, detail, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a leaderboard
// @Tags Leaderboards
// @Produce json
// @Param id path string true "Leaderboard ID"
// @Success 200 {object} response.Envelope
// @Router /leaderboards/{id} [get]
func (h *LeaderboardHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Edit leaderboard settings
// @Tags Leaderboards
// @Accept json
// @Produce json
// @Param id path string true "Leaderboard ID"
// @Param payload body dto.UpdateLeaderboardRequest true "Settings"
// @Success 200 {object} response.Envelope
// @Router /leaderboards/{id} [put]
func (h *LeaderboardHandler) Update(c *gin.Context) {
	var req dto.UpdateLeaderboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid leaderboard payload"))
		return
	}
	lb, err := h.service.UpdateLeaderboardSettings(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lb, nil)
}

// Delete godoc
// @Summary Delete a leaderboard and its entries
// @Tags Leaderboards
// @Param id path string true "Leaderboard ID"
// @Success 204
// @Router /leaderboards/{id} [delete]
func (h *LeaderboardHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteLeaderboard(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Refresh godoc
// @Summary Recompute one leaderboard
// @Tags Leaderboards
// @Produce json
// @Param id path string true "Leaderboard ID"
// @Param async query bool false "Queue the refresh instead of running it inline"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /leaderboards/{id}/refresh [post]
func (h *LeaderboardHandler) Refresh(c *gin.Context) {
	id := c.Param("id")
	if boolQuery(c, "async") {
		queueJob(c, h.queue, jobs.Job{Type: jobs.TypeRefreshLeaderboard, Key: jobs.TypeRefreshLeaderboard + ":" + id, Payload: id})
		return
	}
	detail, err := h.service.UpdateLeaderboard(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// RefreshAll godoc
// @Summary Recompute every active leaderboard
// @Tags Leaderboards
// @Produce json
// @Param async query bool false "Queue the refresh instead of running it inline"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /leaderboards/refresh [post]
func (h *LeaderboardHandler) RefreshAll(c *gin.Context) {
	if boolQuery(c, "async") {
		queueJob(c, h.queue, jobs.Job{Type: jobs.TypeRefreshAllBoards, Key: jobs.TypeRefreshAllBoards})
		return
	}
	result, err := h.service.UpdateAllActiveLeaderboards(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Entries godoc
// @Summary List leaderboard standings
// @Tags Leaderboards
// @Produce json
// @Param id path string true "Leaderboard ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /leaderboards/{id}/entries [get]
func (h *LeaderboardHandler) Entries(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	includeHidden := claimsFromContext(c).IsAdmin()
	items, pagination, hit, err := h.service.Entries(c.Request.Context(), c.Param("id"), page, includeHidden)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination, withCacheMeta(c, hit))
}

// UserStanding godoc
// @Summary Get one user's standing on a leaderboard
// @Tags Leaderboards
// @Produce json
// @Param id path string true "Leaderboard ID"
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /leaderboards/{id}/entries/{userId} [get]
func (h *LeaderboardHandler) UserStanding(c *gin.Context) {
	claims := claimsFromContext(c)
	userID := c.Param("userId")
	includeHidden := claims.IsAdmin() || (claims != nil && claims.UserID == userID)
	standing, err := h.service.UserStanding(c.Request.Context(), c.Param("id"), userID, includeHidden)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, standing, nil)
}

func queueJob(c *gin.Context, queue jobEnqueuer, job jobs.Job) {
	if queue == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "background queue is disabled"))
		return
	}
	job.ID = uuid.NewString()
	queued, err := queue.Enqueue(job)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"job_id": job.ID, "type": job.Type, "queued": queued})
}
