package models

import "time"

// PointSourceType tags what produced a ledger row.
type PointSourceType string

const (
	SourceCourse   PointSourceType = "course"
	SourceQuiz     PointSourceType = "quiz"
	SourceLesson   PointSourceType = "lesson"
	SourceBadge    PointSourceType = "badge"
	SourceActivity PointSourceType = "activity"
)

// Valid reports whether the source type is known.
func (t PointSourceType) Valid() bool {
	switch t {
	case SourceCourse, SourceQuiz, SourceLesson, SourceBadge, SourceActivity:
		return true
	}
	return false
}

// UserPoint is an append-only point ledger row. Points may be negative for corrections.
type UserPoint struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	Points      int64           `db:"points" json:"points"`
	SourceType  PointSourceType `db:"source_type" json:"source_type"`
	SourceID    *string         `db:"source_id" json:"source_id,omitempty"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// UserPointTotal is the summed ledger for one user inside a scope and window.
type UserPointTotal struct {
	UserID string `db:"user_id" json:"user_id"`
	Points int64  `db:"points" json:"points"`
}

// PointFilter resolves which ledger rows count toward a leaderboard.
type PointFilter struct {
	ScopeType LeaderboardScopeType
	ScopeID   string
	Window    TimeWindow
}
