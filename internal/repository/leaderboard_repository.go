package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-ranking-api/internal/models"
	"github.com/noah-isme/lms-ranking-api/pkg/database"
)

const leaderboardColumns = `id, name, slug, description, scope_type, scope_id, time_period, is_active, start_date, end_date, last_updated_at, created_at, updated_at`

// LeaderboardRepository persists leaderboards and their entry snapshots.
type LeaderboardRepository struct {
	db *sqlx.DB
}

// NewLeaderboardRepository constructs the repository.
func NewLeaderboardRepository(db *sqlx.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// Create inserts a leaderboard row.
func (r *LeaderboardRepository) Create(ctx context.Context, lb *models.Leaderboard) error {
	const query = `INSERT INTO leaderboards (` + leaderboardColumns + `)
VALUES (:id, :name, :slug, :description, :scope_type, :scope_id, :time_period, :is_active, :start_date, :end_date, :last_updated_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lb); err != nil {
		return fmt.Errorf("insert leaderboard: %w", err)
	}
	return nil
}

// Update persists editable leaderboard settings.
func (r *LeaderboardRepository) Update(ctx context.Context, lb *models.Leaderboard) error {
	const query = `UPDATE leaderboards SET name = :name, slug = :slug, description = :description, time_period = :time_period,
is_active = :is_active, start_date = :start_date, end_date = :end_date, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, lb)
	if err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a leaderboard; entries cascade.
func (r *LeaderboardRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM leaderboards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete leaderboard: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetByID returns sql.ErrNoRows when the leaderboard does not exist.
func (r *LeaderboardRepository) GetByID(ctx context.Context, id string) (*models.Leaderboard, error) {
	var lb models.Leaderboard
	if err := r.db.GetContext(ctx, &lb, `SELECT `+leaderboardColumns+` FROM leaderboards WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	return &lb, nil
}

// SlugsLike returns existing slugs equal to base or of the form base-N, ignoring excludeID.
func (r *LeaderboardRepository) SlugsLike(ctx context.Context, base, excludeID string) ([]string, error) {
	pattern := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(base) + `-%`
	var slugs []string
	const query = `SELECT slug FROM leaderboards WHERE (slug = $1 OR slug LIKE $2) AND id <> $3`
	if err := r.db.SelectContext(ctx, &slugs, query, base, pattern, excludeID); err != nil {
		return nil, fmt.Errorf("select leaderboard slugs: %w", err)
	}
	return slugs, nil
}

// List returns leaderboards matching the filter and the total count.
func (r *LeaderboardRepository) List(ctx context.Context, filter models.LeaderboardFilter) ([]models.Leaderboard, int, error) {
	var where strings.Builder
	where.WriteString(" WHERE 1=1")
	var args []interface{}
	if filter.ActiveOnly {
		where.WriteString(" AND is_active = TRUE")
	}
	if filter.ScopeType != "" {
		args = append(args, string(filter.ScopeType))
		fmt.Fprintf(&where, " AND scope_type = $%d", len(args))
	}
	if filter.ScopeID != "" {
		args = append(args, filter.ScopeID)
		fmt.Fprintf(&where, " AND scope_id = $%d", len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM leaderboards"+where.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("count leaderboards: %w", err)
	}

	page := filter.Page.Normalize()
	query := `SELECT ` + leaderboardColumns + ` FROM leaderboards` + where.String() +
		fmt.Sprintf(" ORDER BY name ASC, id ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, page.PageSize, page.Offset())

	var items []models.Leaderboard
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leaderboards: %w", err)
	}
	return items, total, nil
}

// ListActiveIDs returns ids of every active leaderboard.
func (r *LeaderboardRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM leaderboards WHERE is_active = TRUE ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("list active leaderboards: %w", err)
	}
	return ids, nil
}

// ReplaceEntries swaps the entry snapshot of a leaderboard and stamps last_updated_at in one transaction.
// The leaderboard row is locked FOR UPDATE so concurrent refreshes of the same leaderboard serialise.
func (r *LeaderboardRepository) ReplaceEntries(ctx context.Context, leaderboardID string, entries []models.LeaderboardEntry, updatedAt time.Time) error {
	const insertQuery = `INSERT INTO leaderboard_entries (id, leaderboard_id, user_id, rank, points, is_public)
VALUES (:id, :leaderboard_id, :user_id, :rank, :points, :is_public)`

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var lockedID string
		if err := tx.GetContext(ctx, &lockedID, `SELECT id FROM leaderboards WHERE id = $1 FOR UPDATE`, leaderboardID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sql.ErrNoRows
			}
			return fmt.Errorf("lock leaderboard: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM leaderboard_entries WHERE leaderboard_id = $1`, leaderboardID); err != nil {
			return fmt.Errorf("delete leaderboard entries: %w", err)
		}
		if err := insertInBatches(ctx, tx, insertQuery, entries); err != nil {
			return fmt.Errorf("insert leaderboard entries: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE leaderboards SET last_updated_at = $1 WHERE id = $2`, updatedAt, leaderboardID); err != nil {
			return fmt.Errorf("stamp leaderboard: %w", err)
		}
		return nil
	})
}

// Entries returns a page of entries ordered by rank together with the total entry count.
func (r *LeaderboardRepository) Entries(ctx context.Context, leaderboardID string, page models.PageRequest, publicOnly bool) ([]models.LeaderboardEntry, int, error) {
	where := " WHERE leaderboard_id = $1"
	if publicOnly {
		where += " AND is_public = TRUE"
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM leaderboard_entries"+where, leaderboardID); err != nil {
		return nil, 0, fmt.Errorf("count leaderboard entries: %w", err)
	}

	page = page.Normalize()
	query := `SELECT id, leaderboard_id, user_id, rank, points, is_public FROM leaderboard_entries` + where + ` ORDER BY rank ASC LIMIT $2 OFFSET $3`
	var entries []models.LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, leaderboardID, page.PageSize, page.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list leaderboard entries: %w", err)
	}
	return entries, total, nil
}

// EntryForUser returns sql.ErrNoRows when the user has no entry on the leaderboard.
func (r *LeaderboardRepository) EntryForUser(ctx context.Context, leaderboardID, userID string) (*models.LeaderboardEntry, error) {
	const query = `SELECT id, leaderboard_id, user_id, rank, points, is_public FROM leaderboard_entries WHERE leaderboard_id = $1 AND user_id = $2`
	var entry models.LeaderboardEntry
	if err := r.db.GetContext(ctx, &entry, query, leaderboardID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get leaderboard entry: %w", err)
	}
	return &entry, nil
}
