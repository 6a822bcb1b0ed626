package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-ranking-api/internal/dto"
	appErrors "github.com/noah-isme/lms-ranking-api/pkg/errors"
)

type ingestServiceMock struct {
	records int
	events  int
	err     error
}

func (m *ingestServiceMock) RecordPerformance(ctx context.Context, req dto.RecordPerformanceRequest) (*dto.IngestResult, error) {
	m.records += len(req.Records)
	return &dto.IngestResult{Inserted: len(req.Records)}, m.err
}

func (m *ingestServiceMock) AwardPoints(ctx context.Context, req dto.AwardPointsRequest) (*dto.IngestResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.events += len(req.Events)
	return &dto.IngestResult{Inserted: len(req.Events)}, nil
}

func TestIngestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &ingestServiceMock{}
	h := NewIngestHandler(svc)
	r := gin.New()
	r.POST("/performance-records", h.RecordPerformance)
	r.POST("/user-points", h.AwardPoints)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/performance-records", dto.RecordPerformanceRequest{Records: []dto.PerformanceRecordInput{
		{UserID: "s1", GradeLevelID: "g10", MetricID: "m1", Percentage: 88},
	}}))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, svc.records)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/user-points", dto.AwardPointsRequest{Events: []dto.AwardPointsInput{
		{UserID: "u1", Points: 30, SourceType: "activity"},
		{UserID: "u1", Points: -5, SourceType: "activity"},
	}}))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, svc.events)
	assert.Contains(t, w.Body.String(), `"inserted":2`)
}

func TestIngestHandlerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &ingestServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "source_id is required")}
	h := NewIngestHandler(svc)
	r := gin.New()
	r.POST("/user-points", h.AwardPoints)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/user-points", bytes.NewBufferString(`[]`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/user-points", dto.AwardPointsRequest{Events: []dto.AwardPointsInput{{UserID: "u1", Points: 5, SourceType: "quiz"}}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "source_id is required")
}
