package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-ranking-api/internal/models"
	"github.com/noah-isme/lms-ranking-api/pkg/database"
)

// PerformanceRepository reads and appends performance records.
type PerformanceRepository struct {
	db *sqlx.DB
}

// NewPerformanceRepository constructs the repository.
func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

// CurrentScores returns the latest record per (user, subject, metric) for the scope.
// A nil subject selects every subject at the grade level.
func (r *PerformanceRepository) CurrentScores(ctx context.Context, scope models.RankingScope) ([]models.CurrentScore, error) {
	var query strings.Builder
	query.WriteString(`
SELECT DISTINCT ON (pr.user_id, pr.subject_id, pr.metric_id)
	pr.user_id, pr.subject_id, pr.metric_id, pr.percentage
FROM performance_records pr
WHERE pr.grade_level_id = $1`)
	args := []interface{}{scope.GradeLevelID}
	if scope.SubjectID != nil {
		args = append(args, *scope.SubjectID)
		fmt.Fprintf(&query, " AND pr.subject_id = $%d", len(args))
	}
	query.WriteString("\nORDER BY pr.user_id, pr.subject_id, pr.metric_id, pr.calculated_at DESC, pr.id DESC")

	var scores []models.CurrentScore
	if err := r.db.SelectContext(ctx, &scores, query.String(), args...); err != nil {
		return nil, fmt.Errorf("select current scores: %w", err)
	}
	return scores, nil
}

// Insert appends performance records in a single transaction.
func (r *PerformanceRepository) Insert(ctx context.Context, records []models.PerformanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	const query = `INSERT INTO performance_records (id, user_id, subject_id, grade_level_id, metric_id, percentage, calculated_at)
VALUES (:id, :user_id, :subject_id, :grade_level_id, :metric_id, :percentage, :calculated_at)`
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertInBatches(ctx, tx, query, records); err != nil {
			return fmt.Errorf("insert performance records: %w", err)
		}
		return nil
	})
}
