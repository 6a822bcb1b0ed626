package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-ranking-api/internal/dto"
	"github.com/noah-isme/lms-ranking-api/internal/models"
	appErrors "github.com/noah-isme/lms-ranking-api/pkg/errors"
)

type performanceWriter interface {
	Insert(ctx context.Context, records []models.PerformanceRecord) error
}

type pointWriter interface {
	Insert(ctx context.Context, points []models.UserPoint) error
}

// IngestService appends inbound performance records and point ledger events. It never updates or deletes.
type IngestService struct {
	performance performanceWriter
	points      pointWriter
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewIngestService constructs the ingestion service.
func NewIngestService(performance performanceWriter, points pointWriter, validate *validator.Validate, logger *zap.Logger) *IngestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{performance: performance, points: points, validator: validate, logger: logger, now: time.Now}
}

// RecordPerformance appends a batch of performance scores. Older records for the same tuple remain as history.
func (s *IngestService) RecordPerformance(ctx context.Context, req dto.RecordPerformanceRequest) (*dto.IngestResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	now := s.now().UTC()
	records := make([]models.PerformanceRecord, 0, len(req.Records))
	for _, in := range req.Records {
		calculatedAt := now
		if in.CalculatedAt != nil {
			calculatedAt = in.CalculatedAt.UTC()
		}
		records = append(records, models.PerformanceRecord{
			ID:           uuid.NewString(),
			UserID:       strings.TrimSpace(in.UserID),
			SubjectID:    trimmedOrNil(in.SubjectID),
			GradeLevelID: strings.TrimSpace(in.GradeLevelID),
			MetricID:     strings.TrimSpace(in.MetricID),
			Percentage:   in.Percentage,
			CalculatedAt: calculatedAt,
		})
	}
	if err := s.performance.Insert(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store performance records")
	}
	s.logger.Info("performance records ingested", zap.Int("count", len(records)))
	return &dto.IngestResult{Inserted: len(records)}, nil
}

// AwardPoints appends point ledger events. Negative points are corrections.
func (s *IngestService) AwardPoints(ctx context.Context, req dto.AwardPointsRequest) (*dto.IngestResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	now := s.now().UTC()
	points := make([]models.UserPoint, 0, len(req.Events))
	for _, in := range req.Events {
		sourceType := models.PointSourceType(in.SourceType)
		sourceID := trimmedOrNil(in.SourceID)
		if sourceType != models.SourceActivity && sourceID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "source_id is required for source_type "+in.SourceType)
		}
		createdAt := now
		if in.CreatedAt != nil {
			createdAt = in.CreatedAt.UTC()
		}
		points = append(points, models.UserPoint{
			ID:          uuid.NewString(),
			UserID:      strings.TrimSpace(in.UserID),
			Points:      in.Points,
			SourceType:  sourceType,
			SourceID:    sourceID,
			Description: strings.TrimSpace(in.Description),
			CreatedAt:   createdAt,
		})
	}
	if err := s.points.Insert(ctx, points); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store user points")
	}
	s.logger.Info("user points ingested", zap.Int("count", len(points)))
	return &dto.IngestResult{Inserted: len(points)}, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
