package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-ranking-api/internal/dto"
	"github.com/noah-isme/lms-ranking-api/internal/middleware"
	"github.com/noah-isme/lms-ranking-api/internal/models"
	appErrors "github.com/noah-isme/lms-ranking-api/pkg/errors"
	"github.com/noah-isme/lms-ranking-api/pkg/jobs"
)

type leaderboardServiceMock struct {
	createErr     error
	refreshErr    error
	refreshed     []string
	deleted       []string
	includeHidden *bool
	standingFor   string
	allCalls      int
}

func (m *leaderboardServiceMock) CreateLeaderboard(ctx context.Context, req dto.CreateLeaderboardRequest) (*models.Leaderboard, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Leaderboard{ID: "lb-1", Name: req.Name, Slug: "weekly"}, nil
}

func (m *leaderboardServiceMock) UpdateLeaderboardSettings(ctx context.Context, id string, req dto.UpdateLeaderboardRequest) (*models.Leaderboard, error) {
	return &models.Leaderboard{ID: id}, nil
}

func (m *leaderboardServiceMock) DeleteLeaderboard(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *leaderboardServiceMock) UpdateLeaderboard(ctx context.Context, id string) (*dto.LeaderboardDetail, error) {
	m.refreshed = append(m.refreshed, id)
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return &dto.LeaderboardDetail{Leaderboard: models.Leaderboard{ID: id}, EntryCount: 2}, nil
}

func (m *leaderboardServiceMock) UpdateAllActiveLeaderboards(ctx context.Context) (*dto.BatchRefreshResult, error) {
	m.allCalls++
	return &dto.BatchRefreshResult{Updated: []string{"lb-1"}}, nil
}

func (m *leaderboardServiceMock) Get(ctx context.Context, id string) (*dto.LeaderboardDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "leaderboard not found")
}

func (m *leaderboardServiceMock) List(ctx context.Context, filter models.LeaderboardFilter) ([]models.Leaderboard, *models.Pagination, error) {
	return []models.Leaderboard{}, &models.Pagination{Page: 1, PageSize: 50}, nil
}

func (m *leaderboardServiceMock) Entries(ctx context.Context, id string, page models.PageRequest, includeHidden bool) ([]models.LeaderboardEntry, *models.Pagination, bool, error) {
	m.includeHidden = &includeHidden
	return []models.LeaderboardEntry{{UserID: "u1", Rank: 1, Points: 50}}, &models.Pagination{Page: 1, PageSize: 50, TotalCount: 1}, false, nil
}

func (m *leaderboardServiceMock) UserStanding(ctx context.Context, id, userID string, includeHidden bool) (*dto.UserStanding, error) {
	m.includeHidden = &includeHidden
	m.standingFor = userID
	return &dto.UserStanding{LeaderboardID: id, UserID: userID, Rank: 1}, nil
}

type queueMock struct {
	jobs []jobs.Job
}

func (q *queueMock) Enqueue(job jobs.Job) (bool, error) {
	q.jobs = append(q.jobs, job)
	return true, nil
}

func newLeaderboardRouter(svc *leaderboardServiceMock, queue jobEnqueuer, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewLeaderboardHandler(svc, queue)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	r.GET("/leaderboards", h.List)
	r.POST("/leaderboards", h.Create)
	r.POST("/leaderboards/refresh", h.RefreshAll)
	r.GET("/leaderboards/:id", h.Get)
	r.DELETE("/leaderboards/:id", h.Delete)
	r.POST("/leaderboards/:id/refresh", h.Refresh)
	r.GET("/leaderboards/:id/entries", h.Entries)
	r.GET("/leaderboards/:id/entries/:userId", h.UserStanding)
	return r
}

func postJSON(path string, payload interface{}) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestLeaderboardHandlerCreateRunsInitialRefresh(t *testing.T) {
	svc := &leaderboardServiceMock{}
	r := newLeaderboardRouter(svc, nil, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/leaderboards", dto.CreateLeaderboardRequest{Name: "Weekly", ScopeType: "site", TimePeriod: "weekly"}))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"lb-1"}, svc.refreshed)
	assert.Contains(t, w.Body.String(), `"entries_refreshed":true`)
}

func TestLeaderboardHandlerCreateKeepsBoardWhenRefreshFails(t *testing.T) {
	svc := &leaderboardServiceMock{refreshErr: errors.New("db timeout")}
	r := newLeaderboardRouter(svc, nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/leaderboards", dto.CreateLeaderboardRequest{Name: "Weekly", ScopeType: "site", TimePeriod: "weekly"}))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"entries_refreshed":false`)
}

func TestLeaderboardHandlerCreateValidation(t *testing.T) {
	svc := &leaderboardServiceMock{createErr: appErrors.Clone(appErrors.ErrValidation, "scope_id is required")}
	r := newLeaderboardRouter(svc, nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/leaderboards", dto.CreateLeaderboardRequest{Name: "Course", ScopeType: "course", TimePeriod: "weekly"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.refreshed)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/leaderboards", bytes.NewBufferString(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaderboardHandlerRefreshAsync(t *testing.T) {
	svc := &leaderboardServiceMock{}
	queue := &queueMock{}
	r := newLeaderboardRouter(svc, queue, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/leaderboards/lb-9/refresh?async=true", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, jobs.TypeRefreshLeaderboard, queue.jobs[0].Type)
	assert.Equal(t, "lb-9", queue.jobs[0].Payload)
	assert.Empty(t, svc.refreshed)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/leaderboards/refresh", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.allCalls)
}

func TestLeaderboardHandlerAsyncWithoutQueue(t *testing.T) {
	r := newLeaderboardRouter(&leaderboardServiceMock{}, nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/leaderboards/refresh?async=1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaderboardHandlerEntriesVisibility(t *testing.T) {
	svc := &leaderboardServiceMock{}
	r := newLeaderboardRouter(svc, nil, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboards/lb-1/entries", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.includeHidden)
	assert.False(t, *svc.includeHidden)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboards/lb-1/entries/u1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *svc.includeHidden)
	assert.Equal(t, "u1", svc.standingFor)

	admin := newLeaderboardRouter(svc, nil, &models.JWTClaims{UserID: "a", Role: models.RoleSuperAdmin})
	w = httptest.NewRecorder()
	admin.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboards/lb-1/entries", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *svc.includeHidden)
}

func TestLeaderboardHandlerGetAndDelete(t *testing.T) {
	svc := &leaderboardServiceMock{}
	r := newLeaderboardRouter(svc, nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboards/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/leaderboards/lb-1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"lb-1"}, svc.deleted)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboards?scope_type=planet", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
