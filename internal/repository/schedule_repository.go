package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-ranking-api/internal/models"
)

const scheduleColumns = `id, name, frequency, last_run_at, is_active, subject_ids, grade_level_ids, created_at, updated_at`

// ScheduleRepository persists ranking schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a schedule.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.RankingSchedule) error {
	const query = `INSERT INTO ranking_schedules (` + scheduleColumns + `)
VALUES (:id, :name, :frequency, :last_run_at, :is_active, :subject_ids, :grade_level_ids, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("insert ranking schedule: %w", err)
	}
	return nil
}

// GetByID returns sql.ErrNoRows when the schedule does not exist.
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*models.RankingSchedule, error) {
	var schedule models.RankingSchedule
	if err := r.db.GetContext(ctx, &schedule, `SELECT `+scheduleColumns+` FROM ranking_schedules WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get ranking schedule: %w", err)
	}
	return &schedule, nil
}

// List returns every schedule ordered by name.
func (r *ScheduleRepository) List(ctx context.Context, activeOnly bool) ([]models.RankingSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM ranking_schedules`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC, id ASC`
	var schedules []models.RankingSchedule
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list ranking schedules: %w", err)
	}
	return schedules, nil
}

// MarkRun stamps last_run_at.
func (r *ScheduleRepository) MarkRun(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE ranking_schedules SET last_run_at = $1, updated_at = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("mark ranking schedule run: %w", err)
	}
	return nil
}
