package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-ranking-api/internal/dto"
	"github.com/noah-isme/lms-ranking-api/internal/models"
	appErrors "github.com/noah-isme/lms-ranking-api/pkg/errors"
	"github.com/noah-isme/lms-ranking-api/pkg/jobs"
)

type scheduleServiceMock struct {
	lastReq    dto.CreateScheduleRequest
	activeOnly bool
	dueAt      time.Time
	runIDs     []string
	runErr     error
}

func (m *scheduleServiceMock) Create(ctx context.Context, req dto.CreateScheduleRequest) (*models.RankingSchedule, error) {
	m.lastReq = req
	return &models.RankingSchedule{ID: "sch-1", Name: req.Name}, nil
}

func (m *scheduleServiceMock) List(ctx context.Context, activeOnly bool) ([]models.RankingSchedule, error) {
	m.activeOnly = activeOnly
	return []models.RankingSchedule{}, nil
}

func (m *scheduleServiceMock) RunDue(ctx context.Context, now time.Time) (*dto.RunDueResult, error) {
	m.dueAt = now
	return &dto.RunDueResult{Evaluated: 1}, nil
}

func (m *scheduleServiceMock) RunNow(ctx context.Context, id string) (*dto.ScheduleRunResult, error) {
	m.runIDs = append(m.runIDs, id)
	if m.runErr != nil {
		return nil, m.runErr
	}
	return &dto.ScheduleRunResult{ScheduleID: id, Completed: true}, nil
}

func newScheduleRouter(svc *scheduleServiceMock, queue jobEnqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewScheduleHandler(svc, queue)
	h.now = func() time.Time { return time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC) }
	r := gin.New()
	r.GET("/ranking-schedules", h.List)
	r.POST("/ranking-schedules", h.Create)
	r.POST("/ranking-schedules/run-due", h.RunDue)
	r.POST("/ranking-schedules/:id/run", h.RunNow)
	return r
}

func TestScheduleHandlerCreateAndList(t *testing.T) {
	svc := &scheduleServiceMock{}
	r := newScheduleRouter(svc, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/ranking-schedules", dto.CreateScheduleRequest{Name: "Nightly", Frequency: "daily", SubjectIDs: []string{"math"}}))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"math"}, svc.lastReq.SubjectIDs)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ranking-schedules?active=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.activeOnly)
}

func TestScheduleHandlerRunDueUsesClock(t *testing.T) {
	svc := &scheduleServiceMock{}
	r := newScheduleRouter(svc, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ranking-schedules/run-due", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC), svc.dueAt)
}

func TestScheduleHandlerRunNow(t *testing.T) {
	svc := &scheduleServiceMock{runErr: appErrors.Clone(appErrors.ErrNotFound, "schedule not found")}
	queue := &queueMock{}
	r := newScheduleRouter(svc, queue)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ranking-schedules/missing/run", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ranking-schedules/sch-1/run?async=true", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, jobs.TypeRunSchedule, queue.jobs[0].Type)
	assert.Equal(t, "sch-1", queue.jobs[0].Payload)
	assert.Equal(t, []string{"missing"}, svc.runIDs)
}
