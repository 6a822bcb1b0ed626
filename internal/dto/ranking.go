package dto

import "time"

// RankingResult summarises one ranking regeneration.
type RankingResult struct {
	GradeLevelID      string    `json:"grade_level_id"`
	SubjectID         *string   `json:"subject_id,omitempty"`
	RankingType       string    `json:"ranking_type"`
	RankingsGenerated int       `json:"rankings_generated"`
	TotalStudents     int       `json:"total_students"`
	ComputedAt        time.Time `json:"computed_at"`
}
