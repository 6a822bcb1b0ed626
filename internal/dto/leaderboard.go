package dto

import (
	"time"

	"github.com/noah-isme/lms-ranking-api/internal/models"
)

// CreateLeaderboardRequest is the admin payload for defining a leaderboard.
type CreateLeaderboardRequest struct {
	Name        string     `json:"name" validate:"required,max=150"`
	Description string     `json:"description" validate:"max=2000"`
	ScopeType   string     `json:"scope_type" validate:"required,oneof=site course category"`
	ScopeID     *string    `json:"scope_id"`
	TimePeriod  string     `json:"time_period" validate:"required,oneof=all_time yearly monthly weekly"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	IsActive    *bool      `json:"is_active"`
}

// UpdateLeaderboardRequest edits leaderboard settings. Nil fields are left unchanged.
type UpdateLeaderboardRequest struct {
	Name           *string    `json:"name" validate:"omitempty,max=150"`
	Description    *string    `json:"description" validate:"omitempty,max=2000"`
	TimePeriod     *string    `json:"time_period" validate:"omitempty,oneof=all_time yearly monthly weekly"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	ClearDateRange bool       `json:"clear_date_range"`
	IsActive       *bool      `json:"is_active"`
}

// LeaderboardDetail couples a leaderboard with its resolved window.
type LeaderboardDetail struct {
	models.Leaderboard
	Window     models.TimeWindow `json:"window"`
	EntryCount int               `json:"entry_count"`
}

// LeaderboardFailure records one leaderboard that failed during a batch refresh.
type LeaderboardFailure struct {
	LeaderboardID string `json:"leaderboard_id"`
	Reason        string `json:"reason"`
}

// BatchRefreshResult summarises a refresh of every active leaderboard.
type BatchRefreshResult struct {
	Updated  []string             `json:"updated"`
	Failures []LeaderboardFailure `json:"failures,omitempty"`
}

// UserStanding is one user's position on a leaderboard.
type UserStanding struct {
	LeaderboardID string `json:"leaderboard_id"`
	UserID        string `json:"user_id"`
	Rank          int    `json:"rank"`
	Points        int64  `json:"points"`
	TotalEntries  int    `json:"total_entries"`
}
