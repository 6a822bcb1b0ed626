package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-ranking-api/internal/dto"
	"github.com/noah-isme/lms-ranking-api/internal/models"
	appErrors "github.com/noah-isme/lms-ranking-api/pkg/errors"
)

const rankingCachePrefix = "rankings:"

type performanceReader interface {
	CurrentScores(ctx context.Context, scope models.RankingScope) ([]models.CurrentScore, error)
}

type rankingStore interface {
	ReplaceScope(ctx context.Context, scope models.RankingScope, rows []models.StudentRanking) error
	List(ctx context.Context, filter models.RankingFilter) ([]models.StudentRanking, int, error)
	ListScope(ctx context.Context, scope models.RankingScope) ([]models.StudentRanking, error)
}

type rankingScopeChecker interface {
	GradeLevelExists(ctx context.Context, id string) (bool, error)
	SubjectExists(ctx context.Context, id string) (bool, error)
}

// RankingService regenerates and serves student ranking snapshots.
type RankingService struct {
	performance performanceReader
	rankings    rankingStore
	scopes      rankingScopeChecker
	cache       *CacheService
	metrics     *MetricsService
	tiePolicy   TiePolicy
	cacheTTL    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewRankingService wires the ranking engine.
func NewRankingService(
	performance performanceReader,
	rankings rankingStore,
	scopes rankingScopeChecker,
	cache *CacheService,
	metrics *MetricsService,
	tiePolicy TiePolicy,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *RankingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tiePolicy == "" {
		tiePolicy = TiePolicyDistinct
	}
	return &RankingService{
		performance: performance,
		rankings:    rankings,
		scopes:      scopes,
		cache:       cache,
		metrics:     metrics,
		tiePolicy:   tiePolicy,
		cacheTTL:    cacheTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// GenerateOverallRankings replaces the overall ranking snapshot of a grade level.
func (s *RankingService) GenerateOverallRankings(ctx context.Context, gradeLevelID string) (*dto.RankingResult, error) {
	return s.generate(ctx, models.RankingScope{GradeLevelID: strings.TrimSpace(gradeLevelID)}, EngineRankingOverall)
}

// GenerateSubjectRankings replaces the ranking snapshot of one subject inside a grade level.
func (s *RankingService) GenerateSubjectRankings(ctx context.Context, subjectID, gradeLevelID string) (*dto.RankingResult, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject id is required")
	}
	return s.generate(ctx, models.RankingScope{GradeLevelID: strings.TrimSpace(gradeLevelID), SubjectID: &subjectID}, EngineRankingSubject)
}

func (s *RankingService) generate(ctx context.Context, scope models.RankingScope, engine string) (result *dto.RankingResult, err error) {
	start := time.Now()
	rows := 0
	defer func() {
		s.metrics.ObserveEngineRun(engine, err, rows, time.Since(start))
	}()

	if err = s.ensureScope(ctx, scope); err != nil {
		return nil, err
	}

	scores, err := s.performance.CurrentScores(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load performance records")
	}

	ranked := RankScores(MeanLatestScores(scores), s.tiePolicy)
	computedAt := s.now().UTC()
	snapshot := make([]models.StudentRanking, 0, len(ranked))
	for _, r := range ranked {
		snapshot = append(snapshot, models.StudentRanking{
			ID:            uuid.NewString(),
			UserID:        r.UserID,
			SubjectID:     scope.SubjectID,
			GradeLevelID:  scope.GradeLevelID,
			RankingType:   scope.Type(),
			Score:         r.Score,
			Percentile:    r.Percentile,
			Rank:          r.Rank,
			TotalStudents: len(ranked),
			ComputedAt:    computedAt,
		})
	}

	if err = s.rankings.ReplaceScope(ctx, scope, snapshot); err != nil {
		s.logger.Error("ranking snapshot write failed", zap.String("scope", scope.Key()), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist rankings")
	}
	rows = len(snapshot)

	if cacheErr := s.cache.Invalidate(ctx, rankingCachePrefix+"*"); cacheErr != nil {
		s.logger.Warn("ranking cache invalidation failed", zap.String("scope", scope.Key()), zap.Error(cacheErr))
	}

	s.logger.Info("rankings generated",
		zap.String("scope", scope.Key()),
		zap.String("ranking_type", string(scope.Type())),
		zap.Int("students", len(snapshot)),
		zap.Duration("duration", time.Since(start)),
	)

	return &dto.RankingResult{
		GradeLevelID:      scope.GradeLevelID,
		SubjectID:         scope.SubjectID,
		RankingType:       string(scope.Type()),
		RankingsGenerated: len(snapshot),
		TotalStudents:     len(ranked),
		ComputedAt:        computedAt,
	}, nil
}

func (s *RankingService) ensureScope(ctx context.Context, scope models.RankingScope) error {
	if scope.GradeLevelID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "grade level id is required")
	}
	ok, err := s.scopes.GradeLevelExists(ctx, scope.GradeLevelID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify grade level")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "grade level not found")
	}
	if scope.SubjectID == nil {
		return nil
	}
	ok, err = s.scopes.SubjectExists(ctx, *scope.SubjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify subject")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	return nil
}

type rankingPage struct {
	Items      []models.StudentRanking `json:"items"`
	Pagination models.Pagination       `json:"pagination"`
}

// ListRankings returns a page of ranking rows. The boolean reports a cache hit.
func (s *RankingService) ListRankings(ctx context.Context, filter models.RankingFilter) ([]models.StudentRanking, *models.Pagination, bool, error) {
	if filter.Type != "" && filter.Type != models.RankingTypeOverall && filter.Type != models.RankingTypeSubject {
		return nil, nil, false, appErrors.Clone(appErrors.ErrValidation, "type must be overall or subject")
	}
	filter.Page = filter.Page.Normalize()
	key := fmt.Sprintf("%slist:%s:%s:%s:%s:%d:%d", rankingCachePrefix, filter.GradeLevelID, filter.SubjectID, filter.Type, filter.UserID, filter.Page.Page, filter.Page.PageSize)

	var cached rankingPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached.Items, &cached.Pagination, true, nil
	}

	items, total, err := s.rankings.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rankings")
	}
	if items == nil {
		items = []models.StudentRanking{}
	}
	page := rankingPage{
		Items:      items,
		Pagination: models.Pagination{Page: filter.Page.Page, PageSize: filter.Page.PageSize, TotalCount: total},
	}
	_ = s.cache.Set(ctx, key, page, s.cacheTTL)
	return page.Items, &page.Pagination, false, nil
}

// UserRankings returns every ranking row held by a user across scopes.
func (s *RankingService) UserRankings(ctx context.Context, userID string) ([]models.StudentRanking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	items, _, _, err := s.ListRankings(ctx, models.RankingFilter{UserID: userID, Page: models.PageRequest{Page: 1, PageSize: 500}})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Snapshot returns the full ranking of one scope, used by exports.
func (s *RankingService) Snapshot(ctx context.Context, scope models.RankingScope) ([]models.StudentRanking, error) {
	if err := s.ensureScope(ctx, scope); err != nil {
		return nil, err
	}
	rows, err := s.rankings.ListScope(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ranking snapshot")
	}
	return rows, nil
}
