package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-ranking-api/internal/dto"
	"github.com/noah-isme/lms-ranking-api/internal/models"
	appErrors "github.com/noah-isme/lms-ranking-api/pkg/errors"
)

const leaderboardCachePrefix = "leaderboards:"

type leaderboardStore interface {
	Create(ctx context.Context, lb *models.Leaderboard) error
	Update(ctx context.Context, lb *models.Leaderboard) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Leaderboard, error)
	SlugsLike(ctx context.Context, base, excludeID string) ([]string, error)
	List(ctx context.Context, filter models.LeaderboardFilter) ([]models.Leaderboard, int, error)
	ListActiveIDs(ctx context.Context) ([]string, error)
	ReplaceEntries(ctx context.Context, leaderboardID string, entries []models.LeaderboardEntry, updatedAt time.Time) error
	Entries(ctx context.Context, leaderboardID string, page models.PageRequest, publicOnly bool) ([]models.LeaderboardEntry, int, error)
	EntryForUser(ctx context.Context, leaderboardID, userID string) (*models.LeaderboardEntry, error)
}

type pointTotaler interface {
	Totals(ctx context.Context, filter models.PointFilter) ([]models.UserPointTotal, error)
}

type leaderboardScopeChecker interface {
	CourseExists(ctx context.Context, id string) (bool, error)
	CategoryExists(ctx context.Context, id string) (bool, error)
}

// LeaderboardOptions carries the engine settings taken from configuration.
type LeaderboardOptions struct {
	Location      *time.Location
	EntriesPublic bool
	TiePolicy     TiePolicy
	CacheTTL      time.Duration
}

// LeaderboardService manages leaderboard definitions and regenerates their entries from the point ledger.
type LeaderboardService struct {
	store     leaderboardStore
	points    pointTotaler
	scopes    leaderboardScopeChecker
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	opts      LeaderboardOptions
	logger    *zap.Logger
	now       func() time.Time
}

// NewLeaderboardService wires the leaderboard engine.
func NewLeaderboardService(
	store leaderboardStore,
	points pointTotaler,
	scopes leaderboardScopeChecker,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	opts LeaderboardOptions,
	logger *zap.Logger,
) *LeaderboardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.TiePolicy == "" {
		opts.TiePolicy = TiePolicyDistinct
	}
	return &LeaderboardService{
		store:     store,
		points:    points,
		scopes:    scopes,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateLeaderboard persists a new leaderboard definition. Entries are not computed here.
func (s *LeaderboardService) CreateLeaderboard(ctx context.Context, req dto.CreateLeaderboardRequest) (*models.Leaderboard, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := validateDateRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	scopeType := models.LeaderboardScopeType(req.ScopeType)
	scopeID, err := s.resolveScopeID(ctx, scopeType, req.ScopeID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	leaderboardSlug, err := s.uniqueSlug(ctx, name, "")
	if err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	now := s.now().UTC()
	lb := &models.Leaderboard{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        leaderboardSlug,
		Description: strings.TrimSpace(req.Description),
		ScopeType:   scopeType,
		ScopeID:     scopeID,
		TimePeriod:  models.TimePeriod(req.TimePeriod),
		IsActive:    isActive,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, lb); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "leaderboard slug already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leaderboard")
	}

	s.logger.Info("leaderboard created", zap.String("leaderboard_id", lb.ID), zap.String("slug", lb.Slug), zap.String("scope_type", string(lb.ScopeType)))
	return lb, nil
}

// UpdateLeaderboardSettings applies an admin edit. Scope is immutable; a name change re-derives the slug.
func (s *LeaderboardService) UpdateLeaderboardSettings(ctx context.Context, id string, req dto.UpdateLeaderboardRequest) (*models.Leaderboard, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	lb, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name cannot be empty")
		}
		if name != lb.Name {
			newSlug, err := s.uniqueSlug(ctx, name, lb.ID)
			if err != nil {
				return nil, err
			}
			lb.Name = name
			lb.Slug = newSlug
		}
	}
	if req.Description != nil {
		lb.Description = strings.TrimSpace(*req.Description)
	}
	if req.TimePeriod != nil {
		lb.TimePeriod = models.TimePeriod(*req.TimePeriod)
	}
	if req.ClearDateRange {
		lb.StartDate, lb.EndDate = nil, nil
	}
	if req.StartDate != nil {
		lb.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		lb.EndDate = req.EndDate
	}
	if err := validateDateRange(lb.StartDate, lb.EndDate); err != nil {
		return nil, err
	}
	if req.IsActive != nil {
		lb.IsActive = *req.IsActive
	}
	lb.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, lb); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leaderboard not found")
		case isUniqueViolation(err):
			return nil, appErrors.Clone(appErrors.ErrConflict, "leaderboard slug already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update leaderboard")
	}
	s.invalidateLeaderboard(ctx, lb.ID)
	return lb, nil
}

// DeleteLeaderboard removes a leaderboard together with its entries.
func (s *LeaderboardService) DeleteLeaderboard(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "leaderboard not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete leaderboard")
	}
	s.invalidateLeaderboard(ctx, id)
	s.logger.Info("leaderboard deleted", zap.String("leaderboard_id", id))
	return nil
}

// UpdateLeaderboard recomputes and replaces every entry of a leaderboard.
func (s *LeaderboardService) UpdateLeaderboard(ctx context.Context, id string) (detail *dto.LeaderboardDetail, err error) {
	start := time.Now()
	rows := 0
	defer func() {
		s.metrics.ObserveEngineRun(EngineLeaderboard, err, rows, time.Since(start))
	}()

	lb, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	window := ResolveWindow(lb, now, s.opts.Location)
	filter := models.PointFilter{ScopeType: lb.ScopeType, Window: window}
	if lb.ScopeID != nil {
		filter.ScopeID = *lb.ScopeID
	}

	totals, err := s.points.Totals(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum user points")
	}

	scored := make([]ScoredUser, 0, len(totals))
	pointsByUser := make(map[string]int64, len(totals))
	for _, total := range totals {
		if total.Points <= 0 {
			continue
		}
		scored = append(scored, ScoredUser{UserID: total.UserID, Score: float64(total.Points)})
		pointsByUser[total.UserID] = total.Points
	}

	ranked := RankScores(scored, s.opts.TiePolicy)
	entries := make([]models.LeaderboardEntry, 0, len(ranked))
	for _, r := range ranked {
		entries = append(entries, models.LeaderboardEntry{
			ID:            uuid.NewString(),
			LeaderboardID: lb.ID,
			UserID:        r.UserID,
			Rank:          r.Rank,
			Points:        pointsByUser[r.UserID],
			IsPublic:      s.opts.EntriesPublic,
		})
	}

	if err = s.store.ReplaceEntries(ctx, lb.ID, entries, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leaderboard not found")
		}
		s.logger.Error("leaderboard entry write failed", zap.String("leaderboard_id", lb.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist leaderboard entries")
	}
	rows = len(entries)
	lb.LastUpdatedAt = &now
	s.invalidateLeaderboard(ctx, lb.ID)

	s.logger.Info("leaderboard updated",
		zap.String("leaderboard_id", lb.ID),
		zap.String("time_period", string(lb.TimePeriod)),
		zap.Int("entries", len(entries)),
		zap.Int("discarded", len(totals)-len(entries)),
		zap.Duration("duration", time.Since(start)),
	)
	return &dto.LeaderboardDetail{Leaderboard: *lb, Window: window, EntryCount: len(entries)}, nil
}

// UpdateAllActiveLeaderboards refreshes every active leaderboard. A failure on one does not stop the others.
func (s *LeaderboardService) UpdateAllActiveLeaderboards(ctx context.Context) (*dto.BatchRefreshResult, error) {
	ids, err := s.store.ListActiveIDs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active leaderboards")
	}

	result := &dto.BatchRefreshResult{Updated: make([]string, 0, len(ids))}
	for _, id := range ids {
		if _, err := s.UpdateLeaderboard(ctx, id); err != nil {
			s.logger.Warn("leaderboard refresh failed", zap.String("leaderboard_id", id), zap.Error(err))
			result.Failures = append(result.Failures, dto.LeaderboardFailure{LeaderboardID: id, Reason: err.Error()})
			continue
		}
		result.Updated = append(result.Updated, id)
	}

	s.logger.Info("active leaderboards refreshed", zap.Int("updated", len(result.Updated)), zap.Int("failed", len(result.Failures)))
	return result, nil
}

// Get returns a leaderboard with its current window and entry count.
func (s *LeaderboardService) Get(ctx context.Context, id string) (*dto.LeaderboardDetail, error) {
	lb, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	_, total, err := s.store.Entries(ctx, lb.ID, models.PageRequest{Page: 1, PageSize: 1}, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count leaderboard entries")
	}
	return &dto.LeaderboardDetail{
		Leaderboard: *lb,
		Window:      ResolveWindow(lb, s.now().UTC(), s.opts.Location),
		EntryCount:  total,
	}, nil
}

// List returns leaderboards matching the filter.
func (s *LeaderboardService) List(ctx context.Context, filter models.LeaderboardFilter) ([]models.Leaderboard, *models.Pagination, error) {
	if filter.ScopeType != "" && !filter.ScopeType.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "scope_type must be site, course or category")
	}
	filter.Page = filter.Page.Normalize()
	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leaderboards")
	}
	if items == nil {
		items = []models.Leaderboard{}
	}
	return items, &models.Pagination{Page: filter.Page.Page, PageSize: filter.Page.PageSize, TotalCount: total}, nil
}

type entriesPage struct {
	Items      []models.LeaderboardEntry `json:"items"`
	Pagination models.Pagination         `json:"pagination"`
}

// Entries returns a page of standings. Hidden entries are only included when includeHidden is set.
// The boolean reports a cache hit.
func (s *LeaderboardService) Entries(ctx context.Context, id string, page models.PageRequest, includeHidden bool) ([]models.LeaderboardEntry, *models.Pagination, bool, error) {
	page = page.Normalize()
	key := fmt.Sprintf("%s%s:entries:%t:%d:%d", leaderboardCachePrefix, id, includeHidden, page.Page, page.PageSize)

	var cached entriesPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached.Items, &cached.Pagination, true, nil
	}

	if _, err := s.load(ctx, id); err != nil {
		return nil, nil, false, err
	}
	items, total, err := s.store.Entries(ctx, id, page, !includeHidden)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leaderboard entries")
	}
	if items == nil {
		items = []models.LeaderboardEntry{}
	}
	result := entriesPage{Items: items, Pagination: models.Pagination{Page: page.Page, PageSize: page.PageSize, TotalCount: total}}
	_ = s.cache.Set(ctx, key, result, s.opts.CacheTTL)
	return result.Items, &result.Pagination, false, nil
}

// UserStanding returns one user's entry on a leaderboard.
func (s *LeaderboardService) UserStanding(ctx context.Context, id, userID string, includeHidden bool) (*dto.UserStanding, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	entry, err := s.store.EntryForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user has no standing on this leaderboard")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard entry")
	}
	if !entry.IsPublic && !includeHidden {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user has no standing on this leaderboard")
	}
	_, total, err := s.store.Entries(ctx, id, models.PageRequest{Page: 1, PageSize: 1}, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count leaderboard entries")
	}
	return &dto.UserStanding{
		LeaderboardID: id,
		UserID:        entry.UserID,
		Rank:          entry.Rank,
		Points:        entry.Points,
		TotalEntries:  total,
	}, nil
}

func (s *LeaderboardService) load(ctx context.Context, id string) (*models.Leaderboard, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "leaderboard id is required")
	}
	lb, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leaderboard not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}
	return lb, nil
}

func (s *LeaderboardService) resolveScopeID(ctx context.Context, scopeType models.LeaderboardScopeType, raw *string) (*string, error) {
	if scopeType == models.ScopeSite {
		return nil, nil
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("scope_id is required for %s leaderboards", scopeType))
	}
	scopeID := strings.TrimSpace(*raw)

	var (
		ok  bool
		err error
	)
	switch scopeType {
	case models.ScopeCourse:
		ok, err = s.scopes.CourseExists(ctx, scopeID)
	case models.ScopeCategory:
		ok, err = s.scopes.CategoryExists(ctx, scopeID)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported scope type")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify leaderboard scope")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", scopeType))
	}
	return &scopeID, nil
}

func (s *LeaderboardService) uniqueSlug(ctx context.Context, name, excludeID string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "leaderboard"
	}
	existing, err := s.store.SlugsLike(ctx, base, excludeID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive slug")
	}
	taken := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		taken[v] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base, nil
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}
}

func (s *LeaderboardService) invalidateLeaderboard(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, leaderboardCachePrefix+id+":*"); err != nil {
		s.logger.Warn("leaderboard cache invalidation failed", zap.String("leaderboard_id", id), zap.Error(err))
	}
}

func validateDateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
