package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-ranking-api/internal/dto"
	"github.com/noah-isme/lms-ranking-api/internal/models"
	"github.com/noah-isme/lms-ranking-api/pkg/jobs"
	"github.com/noah-isme/lms-ranking-api/pkg/response"
)

type scheduleService interface {
	Create(ctx context.Context, req dto.CreateScheduleRequest) (*models.RankingSchedule, error)
	List(ctx context.Context, activeOnly bool) ([]models.RankingSchedule, error)
	RunDue(ctx context.Context, now time.Time) (*dto.RunDueResult, error)
	RunNow(ctx context.Context, id string) (*dto.ScheduleRunResult, error)
}

// ScheduleHandler exposes ranking schedule endpoints.
type ScheduleHandler struct {
	service scheduleService
	queue   jobEnqueuer
	now     func() time.Time
}

// NewScheduleHandler builds a schedule handler.
func NewScheduleHandler(service scheduleService, queue jobEnqueuer) *ScheduleHandler {
	return &ScheduleHandler{service: service, queue: queue, now: time.Now}
}

// List godoc
// @Summary List ranking schedules
// @Tags Ranking Schedules
// @Produce json
// @Param active query bool false "Only active schedules"
// @Success 200 {object} response.Envelope
// @Router /ranking-schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), boolQuery(c, "active"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Create a ranking schedule
// @Tags Ranking Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduleRequest true "Schedule definition"
// @Success 201 {object} response.Envelope
// @Router /ranking-schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid schedule payload"))
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// RunDue godoc
// @Summary Run every schedule that is due now
// @Tags Ranking Schedules
// @Produce json
// @Param async query bool false "Queue the run instead of executing inline"
// @Success 200 {object} response.Envelope
// @Router /ranking-schedules/run-due [post]
func (h *ScheduleHandler) RunDue(c *gin.Context) {
	if boolQuery(c, "async") {
		queueJob(c, h.queue, jobs.Job{Type: jobs.TypeRunDueSchedules, Key: jobs.TypeRunDueSchedules})
		return
	}
	result, err := h.service.RunDue(c.Request.Context(), h.now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RunNow godoc
// @Summary Run one schedule regardless of its due date
// @Tags Ranking Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param async query bool false "Queue the run instead of executing inline"
// @Success 200 {object} response.Envelope
// @Router /ranking-schedules/{id}/run [post]
func (h *ScheduleHandler) RunNow(c *gin.Context) {
	id := c.Param("id")
	if boolQuery(c, "async") {
		queueJob(c, h.queue, jobs.Job{Type: jobs.TypeRunSchedule, Key: jobs.TypeRunSchedule + ":" + id, Payload: id})
		return
	}
	result, err := h.service.RunNow(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
