package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-ranking-api/internal/models"
	"github.com/noah-isme/lms-ranking-api/pkg/database"
)

// sourceCourseExpr resolves the course a ledger row is attributable to, if any.
const sourceCourseExpr = `CASE up.source_type
	WHEN 'course' THEN up.source_id
	WHEN 'quiz' THEN (SELECT q.course_id FROM quizzes q WHERE q.id = up.source_id)
	WHEN 'lesson' THEN (SELECT l.course_id FROM lessons l WHERE l.id = up.source_id)
END`

// PointRepository reads and appends the user point ledger.
type PointRepository struct {
	db *sqlx.DB
}

// NewPointRepository constructs the repository.
func NewPointRepository(db *sqlx.DB) *PointRepository {
	return &PointRepository{db: db}
}

// Totals sums ledger points per user for rows inside the filter's scope and window.
func (r *PointRepository) Totals(ctx context.Context, filter models.PointFilter) ([]models.UserPointTotal, error) {
	var query strings.Builder
	query.WriteString(`
SELECT up.user_id, SUM(up.points) AS points
FROM user_points up
WHERE 1=1`)
	var args []interface{}
	if filter.Window.From != nil {
		args = append(args, *filter.Window.From)
		fmt.Fprintf(&query, " AND up.created_at >= $%d", len(args))
	}
	if filter.Window.To != nil {
		args = append(args, *filter.Window.To)
		fmt.Fprintf(&query, " AND up.created_at <= $%d", len(args))
	}
	switch filter.ScopeType {
	case models.ScopeSite:
	case models.ScopeCourse:
		args = append(args, filter.ScopeID)
		fmt.Fprintf(&query, "\nAND (%s) = $%d", sourceCourseExpr, len(args))
	case models.ScopeCategory:
		args = append(args, filter.ScopeID)
		fmt.Fprintf(&query, "\nAND EXISTS (SELECT 1 FROM courses c WHERE c.id = (%s) AND c.category_id = $%d)", sourceCourseExpr, len(args))
	default:
		return nil, fmt.Errorf("unsupported scope type %q", filter.ScopeType)
	}
	query.WriteString("\nGROUP BY up.user_id")

	var totals []models.UserPointTotal
	if err := r.db.SelectContext(ctx, &totals, query.String(), args...); err != nil {
		return nil, fmt.Errorf("sum user points: %w", err)
	}
	return totals, nil
}

// Insert appends ledger rows in a single transaction.
func (r *PointRepository) Insert(ctx context.Context, points []models.UserPoint) error {
	if len(points) == 0 {
		return nil
	}
	const query = `INSERT INTO user_points (id, user_id, points, source_type, source_id, description, created_at)
VALUES (:id, :user_id, :points, :source_type, :source_id, :description, :created_at)`
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertInBatches(ctx, tx, query, points); err != nil {
			return fmt.Errorf("insert user points: %w", err)
		}
		return nil
	})
}
