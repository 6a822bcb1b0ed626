package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-ranking-api/internal/dto"
	"github.com/noah-isme/lms-ranking-api/internal/models"
	appErrors "github.com/noah-isme/lms-ranking-api/pkg/errors"
)

type scheduleStore interface {
	Create(ctx context.Context, schedule *models.RankingSchedule) error
	GetByID(ctx context.Context, id string) (*models.RankingSchedule, error)
	List(ctx context.Context, activeOnly bool) ([]models.RankingSchedule, error)
	MarkRun(ctx context.Context, id string, at time.Time) error
}

type gradeLevelLister interface {
	ListGradeLevelIDs(ctx context.Context) ([]string, error)
}

type rankingGenerator interface {
	GenerateOverallRankings(ctx context.Context, gradeLevelID string) (*dto.RankingResult, error)
	GenerateSubjectRankings(ctx context.Context, subjectID, gradeLevelID string) (*dto.RankingResult, error)
}

// ScheduleService evaluates ranking schedules and drives the ranking engine for due scopes.
type ScheduleService struct {
	store     scheduleStore
	grades    gradeLevelLister
	rankings  rankingGenerator
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleService constructs the schedule runner.
func NewScheduleService(store scheduleStore, grades gradeLevelLister, rankings rankingGenerator, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		store:     store,
		grades:    grades,
		rankings:  rankings,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Create registers a schedule. Empty target lists mean every grade level and no subject rankings.
func (s *ScheduleService) Create(ctx context.Context, req dto.CreateScheduleRequest) (*models.RankingSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	now := s.now().UTC()
	schedule := &models.RankingSchedule{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		Frequency:     models.ScheduleFrequency(req.Frequency),
		IsActive:      isActive,
		SubjectIDs:    pq.StringArray(dedupe(req.SubjectIDs)),
		GradeLevelIDs: pq.StringArray(dedupe(req.GradeLevelIDs)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create ranking schedule")
	}
	return schedule, nil
}

// List returns every schedule.
func (s *ScheduleService) List(ctx context.Context, activeOnly bool) ([]models.RankingSchedule, error) {
	schedules, err := s.store.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ranking schedules")
	}
	if schedules == nil {
		schedules = []models.RankingSchedule{}
	}
	return schedules, nil
}

// RunDue executes every active schedule that is due at now.
func (s *ScheduleService) RunDue(ctx context.Context, now time.Time) (*dto.RunDueResult, error) {
	schedules, err := s.store.List(ctx, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ranking schedules")
	}

	result := &dto.RunDueResult{Evaluated: len(schedules), Runs: []dto.ScheduleRunResult{}}
	for _, schedule := range schedules {
		if !schedule.IsDue(now) {
			continue
		}
		result.Runs = append(result.Runs, s.run(ctx, schedule, now))
	}
	s.logger.Info("due ranking schedules processed", zap.Int("evaluated", result.Evaluated), zap.Int("ran", len(result.Runs)))
	return result, nil
}

// RunNow executes a schedule immediately regardless of its due state.
func (s *ScheduleService) RunNow(ctx context.Context, id string) (*dto.ScheduleRunResult, error) {
	schedule, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ranking schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ranking schedule")
	}
	result := s.run(ctx, *schedule, s.now().UTC())
	return &result, nil
}

// run processes every scope of a schedule, continuing past failures. last_run_at is only
// stamped when all scopes succeeded so a partially failed schedule stays due.
func (s *ScheduleService) run(ctx context.Context, schedule models.RankingSchedule, now time.Time) dto.ScheduleRunResult {
	start := time.Now()
	result := dto.ScheduleRunResult{ScheduleID: schedule.ID, RanAt: now}

	gradeLevels := []string(schedule.GradeLevelIDs)
	if len(gradeLevels) == 0 {
		all, err := s.grades.ListGradeLevelIDs(ctx)
		if err != nil {
			result.Failures = append(result.Failures, dto.ScopeFailure{Reason: "list grade levels: " + err.Error()})
			s.finish(schedule, &result, start, errors.New("grade level lookup failed"))
			return result
		}
		gradeLevels = all
	}

	for _, gradeLevelID := range gradeLevels {
		if _, err := s.rankings.GenerateOverallRankings(ctx, gradeLevelID); err != nil {
			result.Failures = append(result.Failures, dto.ScopeFailure{GradeLevelID: gradeLevelID, Reason: err.Error()})
		} else {
			result.ScopesProcessed++
		}
		for _, subjectID := range schedule.SubjectIDs {
			subject := subjectID
			if _, err := s.rankings.GenerateSubjectRankings(ctx, subject, gradeLevelID); err != nil {
				result.Failures = append(result.Failures, dto.ScopeFailure{GradeLevelID: gradeLevelID, SubjectID: &subject, Reason: err.Error()})
				continue
			}
			result.ScopesProcessed++
		}
	}

	var runErr error
	if len(result.Failures) == 0 {
		if err := s.store.MarkRun(ctx, schedule.ID, now); err != nil {
			runErr = err
			result.Failures = append(result.Failures, dto.ScopeFailure{Reason: "mark run: " + err.Error()})
		} else {
			result.Completed = true
		}
	} else {
		runErr = errors.New("scope failures")
	}
	s.finish(schedule, &result, start, runErr)
	return result
}

func (s *ScheduleService) finish(schedule models.RankingSchedule, result *dto.ScheduleRunResult, start time.Time, err error) {
	s.metrics.ObserveEngineRun(EngineSchedule, err, result.ScopesProcessed, time.Since(start))
	fields := []zap.Field{
		zap.String("schedule_id", schedule.ID),
		zap.String("schedule", schedule.Name),
		zap.Int("scopes", result.ScopesProcessed),
		zap.Int("failures", len(result.Failures)),
	}
	if err != nil {
		s.logger.Warn("ranking schedule finished with failures", fields...)
		return
	}
	s.logger.Info("ranking schedule completed", fields...)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
