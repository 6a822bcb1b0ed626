package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScopeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM grade_levels WHERE id = $1)")).
		WithArgs("g10").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)")).
		WithArgs("cat-9").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.GradeLevelExists(context.Background(), "g10")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CategoryExists(context.Background(), "cat-9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScopeRepositoryListGradeLevelIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScopeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM grade_levels ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("g10").AddRow("g11"))

	ids, err := repo.ListGradeLevelIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"g10", "g11"}, ids)
}
