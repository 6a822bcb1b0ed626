package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-ranking-api/internal/models"
	"github.com/noah-isme/lms-ranking-api/pkg/database"
)

// RankingRepository owns the student_rankings snapshot table.
type RankingRepository struct {
	db *sqlx.DB
}

// NewRankingRepository constructs the repository.
func NewRankingRepository(db *sqlx.DB) *RankingRepository {
	return &RankingRepository{db: db}
}

// ReplaceScope swaps the snapshot for scope with rows atomically. Writers to the same scope are
// serialised by a transaction-level advisory lock; readers see either the old or the new snapshot.
func (r *RankingRepository) ReplaceScope(ctx context.Context, scope models.RankingScope, rows []models.StudentRanking) error {
	const deleteQuery = `DELETE FROM student_rankings
WHERE grade_level_id = $1 AND ranking_type = $2 AND subject_id IS NOT DISTINCT FROM $3`
	const insertQuery = `INSERT INTO student_rankings (id, user_id, subject_id, grade_level_id, ranking_type, score, percentile, rank, total_students, computed_at)
VALUES (:id, :user_id, :subject_id, :grade_level_id, :ranking_type, :score, :percentile, :rank, :total_students, :computed_at)`

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := database.AdvisoryXactLock(ctx, tx, scope.Key()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, deleteQuery, scope.GradeLevelID, string(scope.Type()), scope.SubjectID); err != nil {
			return fmt.Errorf("delete ranking snapshot: %w", err)
		}
		if err := insertInBatches(ctx, tx, insertQuery, rows); err != nil {
			return fmt.Errorf("insert ranking snapshot: %w", err)
		}
		return nil
	})
}

// List returns ranking rows matching the filter ordered by rank, with the total match count.
func (r *RankingRepository) List(ctx context.Context, filter models.RankingFilter) ([]models.StudentRanking, int, error) {
	var where strings.Builder
	where.WriteString(" WHERE 1=1")
	var args []interface{}
	if filter.GradeLevelID != "" {
		args = append(args, filter.GradeLevelID)
		fmt.Fprintf(&where, " AND grade_level_id = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		fmt.Fprintf(&where, " AND ranking_type = $%d", len(args))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		fmt.Fprintf(&where, " AND subject_id = $%d", len(args))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		fmt.Fprintf(&where, " AND user_id = $%d", len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM student_rankings"+where.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("count rankings: %w", err)
	}

	page := filter.Page.Normalize()
	query := `SELECT id, user_id, subject_id, grade_level_id, ranking_type, score, percentile, rank, total_students, computed_at
FROM student_rankings` + where.String() +
		fmt.Sprintf(" ORDER BY grade_level_id ASC, ranking_type ASC, subject_id ASC NULLS FIRST, rank ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, page.PageSize, page.Offset())

	var rows []models.StudentRanking
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rankings: %w", err)
	}
	return rows, total, nil
}

// ListScope returns the full snapshot for one scope ordered by rank.
func (r *RankingRepository) ListScope(ctx context.Context, scope models.RankingScope) ([]models.StudentRanking, error) {
	const query = `SELECT id, user_id, subject_id, grade_level_id, ranking_type, score, percentile, rank, total_students, computed_at
FROM student_rankings
WHERE grade_level_id = $1 AND ranking_type = $2 AND subject_id IS NOT DISTINCT FROM $3
ORDER BY rank ASC`
	var rows []models.StudentRanking
	if err := r.db.SelectContext(ctx, &rows, query, scope.GradeLevelID, string(scope.Type()), scope.SubjectID); err != nil {
		return nil, fmt.Errorf("list ranking scope: %w", err)
	}
	return rows, nil
}
