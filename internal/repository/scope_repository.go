package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ScopeRepository answers existence questions about catalogue entities owned by the LMS.
type ScopeRepository struct {
	db *sqlx.DB
}

// NewScopeRepository constructs the repository.
func NewScopeRepository(db *sqlx.DB) *ScopeRepository {
	return &ScopeRepository{db: db}
}

// GradeLevelExists reports whether the grade level is known.
func (r *ScopeRepository) GradeLevelExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, "grade_levels", id)
}

// SubjectExists reports whether the subject is known.
func (r *ScopeRepository) SubjectExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, "subjects", id)
}

// CourseExists reports whether the course is known.
func (r *ScopeRepository) CourseExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, "courses", id)
}

// CategoryExists reports whether the category is known.
func (r *ScopeRepository) CategoryExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, "categories", id)
}

// ListGradeLevelIDs returns every grade level id in a stable order.
func (r *ScopeRepository) ListGradeLevelIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM grade_levels ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("list grade levels: %w", err)
	}
	return ids, nil
}

func (r *ScopeRepository) exists(ctx context.Context, table, id string) (bool, error) {
	var found bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", table)
	if err := r.db.GetContext(ctx, &found, query, id); err != nil {
		return false, fmt.Errorf("check %s %s: %w", table, id, err)
	}
	return found, nil
}
