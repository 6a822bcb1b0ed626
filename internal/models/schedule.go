package models

import (
	"time"

	"github.com/lib/pq"
)

// ScheduleFrequency is the recompute cadence of a ranking schedule.
type ScheduleFrequency string

const (
	FrequencyDaily   ScheduleFrequency = "daily"
	FrequencyWeekly  ScheduleFrequency = "weekly"
	FrequencyMonthly ScheduleFrequency = "monthly"
)

// Valid reports whether the frequency is known.
func (f ScheduleFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// RankingSchedule declares which ranking scopes to recompute and how often.
type RankingSchedule struct {
	ID            string            `db:"id" json:"id"`
	Name          string            `db:"name" json:"name"`
	Frequency     ScheduleFrequency `db:"frequency" json:"frequency"`
	LastRunAt     *time.Time        `db:"last_run_at" json:"last_run_at,omitempty"`
	IsActive      bool              `db:"is_active" json:"is_active"`
	SubjectIDs    pq.StringArray    `db:"subject_ids" json:"subject_ids"`
	GradeLevelIDs pq.StringArray    `db:"grade_level_ids" json:"grade_level_ids"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// NextRunAt returns when the schedule becomes due again, or nil when it has never run.
func (s RankingSchedule) NextRunAt() *time.Time {
	if s.LastRunAt == nil {
		return nil
	}
	var next time.Time
	switch s.Frequency {
	case FrequencyWeekly:
		next = s.LastRunAt.AddDate(0, 0, 7)
	case FrequencyMonthly:
		next = addMonthClamped(*s.LastRunAt)
	default:
		next = s.LastRunAt.AddDate(0, 0, 1)
	}
	return &next
}

// addMonthClamped moves t one calendar month ahead, capping the day at the end of the target month.
func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	lastDay := time.Date(year, month+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	hour, minute, sec := t.Clock()
	return time.Date(year, month+1, day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// IsDue reports whether the schedule should run at now.
func (s RankingSchedule) IsDue(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	next := s.NextRunAt()
	if next == nil {
		return true
	}
	return !now.Before(*next)
}
