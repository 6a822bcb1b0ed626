package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-ranking-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func sampleRankings(scope models.RankingScope) []models.StudentRanking {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	return []models.StudentRanking{
		{ID: "r1", UserID: "u1", SubjectID: scope.SubjectID, GradeLevelID: scope.GradeLevelID, RankingType: scope.Type(), Score: 90, Percentile: 100, Rank: 1, TotalStudents: 2, ComputedAt: now},
		{ID: "r2", UserID: "u2", SubjectID: scope.SubjectID, GradeLevelID: scope.GradeLevelID, RankingType: scope.Type(), Score: 70, Percentile: 0, Rank: 2, TotalStudents: 2, ComputedAt: now},
	}
}

func TestRankingRepositoryReplaceScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRankingRepository(db)

	subject := "math"
	scope := models.RankingScope{GradeLevelID: "g10", SubjectID: &subject}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("ranking:g10:math").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_rankings")).
		WithArgs("g10", "subject", "math").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_rankings")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceScope(context.Background(), scope, sampleRankings(scope)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRankingRepositoryReplaceScopeEmptyOnlyDeletes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRankingRepository(db)

	scope := models.RankingScope{GradeLevelID: "g10"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WithArgs("ranking:g10:overall").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_rankings")).
		WithArgs("g10", "overall", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceScope(context.Background(), scope, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRankingRepositoryReplaceScopeRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRankingRepository(db)

	scope := models.RankingScope{GradeLevelID: "g10"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_rankings")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_rankings")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.ReplaceScope(context.Background(), scope, sampleRankings(scope))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert ranking snapshot")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRankingRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRankingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM student_rankings WHERE 1=1 AND grade_level_id = $1 AND ranking_type = $2")).
		WithArgs("g10", "overall").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	rows := sqlmock.NewRows([]string{"id", "user_id", "subject_id", "grade_level_id", "ranking_type", "score", "percentile", "rank", "total_students", "computed_at"}).
		AddRow("r1", "u1", nil, "g10", "overall", 90.0, 100.0, 1, 2, time.Now()).
		AddRow("r2", "u2", nil, "g10", "overall", 70.0, 0.0, 2, 2, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_rankings WHERE 1=1 AND grade_level_id = $1 AND ranking_type = $2 ORDER BY")).
		WithArgs("g10", "overall", 50, 0).
		WillReturnRows(rows)

	items, total, err := repo.List(context.Background(), models.RankingFilter{GradeLevelID: "g10", Type: models.RankingTypeOverall})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Rank)
	assert.Nil(t, items[0].SubjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
