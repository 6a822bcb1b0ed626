package dto

import "time"

// PerformanceRecordInput is one inbound performance score.
type PerformanceRecordInput struct {
	UserID       string     `json:"user_id" validate:"required"`
	SubjectID    *string    `json:"subject_id"`
	GradeLevelID string     `json:"grade_level_id" validate:"required"`
	MetricID     string     `json:"metric_id" validate:"required"`
	Percentage   float64    `json:"percentage" validate:"gte=0,lte=100"`
	CalculatedAt *time.Time `json:"calculated_at"`
}

// RecordPerformanceRequest is a batch of performance scores.
type RecordPerformanceRequest struct {
	Records []PerformanceRecordInput `json:"records" validate:"required,min=1,max=5000,dive"`
}

// AwardPointsInput is one inbound point ledger event.
type AwardPointsInput struct {
	UserID      string     `json:"user_id" validate:"required"`
	Points      int64      `json:"points" validate:"ne=0"`
	SourceType  string     `json:"source_type" validate:"required,oneof=course quiz lesson badge activity"`
	SourceID    *string    `json:"source_id"`
	Description string     `json:"description" validate:"max=500"`
	CreatedAt   *time.Time `json:"created_at"`
}

// AwardPointsRequest is a batch of ledger events.
type AwardPointsRequest struct {
	Events []AwardPointsInput `json:"events" validate:"required,min=1,max=5000,dive"`
}

// IngestResult reports how many rows were appended.
type IngestResult struct {
	Inserted int `json:"inserted"`
}
