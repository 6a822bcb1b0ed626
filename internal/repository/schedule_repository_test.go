package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "frequency", "last_run_at", "is_active", "subject_ids", "grade_level_ids", "created_at", "updated_at"}).
		AddRow("s1", "Nightly", "daily", nil, true, "{math,physics}", "{g10}", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM ranking_schedules WHERE is_active = TRUE ORDER BY name ASC, id ASC")).
		WillReturnRows(rows)

	schedules, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, []string{"math", "physics"}, []string(schedules[0].SubjectIDs))
	assert.Equal(t, []string{"g10"}, []string(schedules[0].GradeLevelIDs))
	assert.Nil(t, schedules[0].LastRunAt)
}

func TestScheduleRepositoryMarkRun(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	at := time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ranking_schedules SET last_run_at = $1, updated_at = $1 WHERE id = $2")).
		WithArgs(at, "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRun(context.Background(), "s1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
