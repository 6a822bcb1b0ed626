package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-ranking-api/internal/models"
)

func TestPointRepositoryTotalsSiteWindow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPointRepository(db)

	from := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_points up\nWHERE 1=1 AND up.created_at >= $1\nGROUP BY up.user_id")).
		WithArgs(from).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "points"}).AddRow("u1", 50).AddRow("u2", -5))

	totals, err := repo.Totals(context.Background(), models.PointFilter{ScopeType: models.ScopeSite, Window: models.TimeWindow{From: &from}})
	require.NoError(t, err)
	assert.Equal(t, []models.UserPointTotal{{UserID: "u1", Points: 50}, {UserID: "u2", Points: -5}}, totals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointRepositoryTotalsCourseScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPointRepository(db)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("(SELECT q.course_id FROM quizzes q WHERE q.id = up.source_id)")).
		WithArgs(from, to, "course-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "points"}))

	totals, err := repo.Totals(context.Background(), models.PointFilter{
		ScopeType: models.ScopeCourse,
		ScopeID:   "course-1",
		Window:    models.TimeWindow{From: &from, To: &to},
	})
	require.NoError(t, err)
	assert.Empty(t, totals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointRepositoryTotalsCategoryScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPointRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND c.category_id = $1")).
		WithArgs("cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "points"}).AddRow("u3", 10))

	totals, err := repo.Totals(context.Background(), models.PointFilter{ScopeType: models.ScopeCategory, ScopeID: "cat-1"})
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, "u3", totals[0].UserID)
}

func TestPointRepositoryTotalsRejectsUnknownScope(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPointRepository(db)

	_, err := repo.Totals(context.Background(), models.PointFilter{ScopeType: "galaxy"})
	assert.Error(t, err)
}

func TestPointRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPointRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_points")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.Insert(context.Background(), []models.UserPoint{
		{ID: "p1", UserID: "u1", Points: 30, SourceType: models.SourceActivity, CreatedAt: time.Now()},
		{ID: "p2", UserID: "u1", Points: -10, SourceType: models.SourceActivity, CreatedAt: time.Now()},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
