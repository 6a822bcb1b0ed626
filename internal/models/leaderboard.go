package models

import "time"

// LeaderboardScopeType selects which point-ledger rows feed a leaderboard.
type LeaderboardScopeType string

const (
	ScopeSite     LeaderboardScopeType = "site"
	ScopeCourse   LeaderboardScopeType = "course"
	ScopeCategory LeaderboardScopeType = "category"
)

// Valid reports whether the scope type is known.
func (t LeaderboardScopeType) Valid() bool {
	switch t {
	case ScopeSite, ScopeCourse, ScopeCategory:
		return true
	}
	return false
}

// TimePeriod selects the rolling window a leaderboard aggregates.
type TimePeriod string

const (
	PeriodAllTime TimePeriod = "all_time"
	PeriodYearly  TimePeriod = "yearly"
	PeriodMonthly TimePeriod = "monthly"
	PeriodWeekly  TimePeriod = "weekly"
)

// Valid reports whether the period is known.
func (p TimePeriod) Valid() bool {
	switch p {
	case PeriodAllTime, PeriodYearly, PeriodMonthly, PeriodWeekly:
		return true
	}
	return false
}

// Leaderboard defines a ranked view over the point ledger.
type Leaderboard struct {
	ID            string               `db:"id" json:"id"`
	Name          string               `db:"name" json:"name"`
	Slug          string               `db:"slug" json:"slug"`
	Description   string               `db:"description" json:"description"`
	ScopeType     LeaderboardScopeType `db:"scope_type" json:"scope_type"`
	ScopeID       *string              `db:"scope_id" json:"scope_id,omitempty"`
	TimePeriod    TimePeriod           `db:"time_period" json:"time_period"`
	IsActive      bool                 `db:"is_active" json:"is_active"`
	StartDate     *time.Time           `db:"start_date" json:"start_date,omitempty"`
	EndDate       *time.Time           `db:"end_date" json:"end_date,omitempty"`
	LastUpdatedAt *time.Time           `db:"last_updated_at" json:"last_updated_at,omitempty"`
	CreatedAt     time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time            `db:"updated_at" json:"updated_at"`
}

// LeaderboardEntry is one user's standing on a leaderboard.
type LeaderboardEntry struct {
	ID            string `db:"id" json:"id"`
	LeaderboardID string `db:"leaderboard_id" json:"leaderboard_id"`
	UserID        string `db:"user_id" json:"user_id"`
	Rank          int    `db:"rank" json:"rank"`
	Points        int64  `db:"points" json:"points"`
	IsPublic      bool   `db:"is_public" json:"is_public"`
}

// LeaderboardFilter scopes leaderboard list queries.
type LeaderboardFilter struct {
	ScopeType  LeaderboardScopeType
	ScopeID    string
	ActiveOnly bool
	Page       PageRequest
}

// TimeWindow bounds point aggregation. Nil bounds are open.
type TimeWindow struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}
