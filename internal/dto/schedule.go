package dto

import "time"

// CreateScheduleRequest defines a ranking schedule.
type CreateScheduleRequest struct {
	Name          string   `json:"name" validate:"required,max=150"`
	Frequency     string   `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	SubjectIDs    []string `json:"subject_ids" validate:"dive,required"`
	GradeLevelIDs []string `json:"grade_level_ids" validate:"dive,required"`
	IsActive      *bool    `json:"is_active"`
}

// ScopeFailure records a ranking scope that failed during a schedule run.
type ScopeFailure struct {
	GradeLevelID string  `json:"grade_level_id"`
	SubjectID    *string `json:"subject_id,omitempty"`
	Reason       string  `json:"reason"`
}

// ScheduleRunResult summarises one schedule execution.
type ScheduleRunResult struct {
	ScheduleID      string         `json:"schedule_id"`
	ScopesProcessed int            `json:"scopes_processed"`
	Failures        []ScopeFailure `json:"failures,omitempty"`
	Completed       bool           `json:"completed"`
	RanAt           time.Time      `json:"ran_at"`
}

// RunDueResult summarises a tick of the schedule runner.
type RunDueResult struct {
	Evaluated int                 `json:"evaluated"`
	Runs      []ScheduleRunResult `json:"runs"`
}
