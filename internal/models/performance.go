package models

import "time"

// PerformanceRecord is a student's score against a (subject, grade level, metric) tuple.
// Records are never updated; a newer CalculatedAt supersedes older rows for the same tuple.
type PerformanceRecord struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	SubjectID    *string   `db:"subject_id" json:"subject_id,omitempty"`
	GradeLevelID string    `db:"grade_level_id" json:"grade_level_id"`
	MetricID     string    `db:"metric_id" json:"metric_id"`
	Percentage   float64   `db:"percentage" json:"percentage"`
	CalculatedAt time.Time `db:"calculated_at" json:"calculated_at"`
}

// CurrentScore is the latest percentage for one (user, subject, metric) inside a grade level.
type CurrentScore struct {
	UserID     string  `db:"user_id"`
	SubjectID  *string `db:"subject_id"`
	MetricID   string  `db:"metric_id"`
	Percentage float64 `db:"percentage"`
}
