package models

import "time"

// RankingType distinguishes overall from per-subject rankings.
type RankingType string

const (
	RankingTypeOverall RankingType = "overall"
	RankingTypeSubject RankingType = "subject"
)

// StudentRanking is one row of a ranking snapshot.
type StudentRanking struct {
	ID            string      `db:"id" json:"id"`
	UserID        string      `db:"user_id" json:"user_id"`
	SubjectID     *string     `db:"subject_id" json:"subject_id,omitempty"`
	GradeLevelID  string      `db:"grade_level_id" json:"grade_level_id"`
	RankingType   RankingType `db:"ranking_type" json:"ranking_type"`
	Score         float64     `db:"score" json:"score"`
	Percentile    float64     `db:"percentile" json:"percentile"`
	Rank          int         `db:"rank" json:"rank"`
	TotalStudents int         `db:"total_students" json:"total_students"`
	ComputedAt    time.Time   `db:"computed_at" json:"computed_at"`
}

// RankingScope identifies the set of rows a ranking run replaces.
type RankingScope struct {
	GradeLevelID string
	SubjectID    *string
}

// Type derives the ranking type from the presence of a subject.
func (s RankingScope) Type() RankingType {
	if s.SubjectID == nil {
		return RankingTypeOverall
	}
	return RankingTypeSubject
}

// Key is a stable identifier used for locks and cache keys.
func (s RankingScope) Key() string {
	subject := "overall"
	if s.SubjectID != nil {
		subject = *s.SubjectID
	}
	return "ranking:" + s.GradeLevelID + ":" + subject
}

// RankingFilter scopes ranking list queries.
type RankingFilter struct {
	GradeLevelID string
	SubjectID    string
	Type         RankingType
	UserID       string
	Page         PageRequest
}
