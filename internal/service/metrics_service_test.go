package service

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest("GET", "/api/v1/rankings", 200, 20*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveEngineRun(EngineRankingOverall, nil, 12, time.Second)
	m.ObserveEngineRun(EngineLeaderboard, errors.New("boom"), 0, time.Second)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(2), snap.EngineRuns)
	assert.Equal(t, uint64(1), snap.EngineFailures)
	assert.Equal(t, uint64(12), snap.RowsWritten)
}

func TestMetricsServiceHandlerExposesEngineSeries(t *testing.T) {
	m := NewMetricsService()
	m.ObserveEngineRun(EngineRankingSubject, nil, 3, 50*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ranking_engine_runs_total{engine="ranking_subject",outcome="success"} 1`)
	assert.Contains(t, string(body), `ranking_engine_rows_written_total{engine="ranking_subject"} 3`)
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveEngineRun(EngineSchedule, nil, 1, time.Second)
	m.RecordCacheOperation(true, time.Millisecond)
	assert.Equal(t, uint64(0), m.Snapshot().EngineRuns)
}
