package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-ranking-api/internal/models"
	appErrors "github.com/noah-isme/lms-ranking-api/pkg/errors"
	"github.com/noah-isme/lms-ranking-api/pkg/export"
)

// ExportFormat selects the rendered document type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type rankingSnapshotReader interface {
	Snapshot(ctx context.Context, scope models.RankingScope) ([]models.StudentRanking, error)
}

// ExportService renders ranking snapshots and leaderboard standings for download.
type ExportService struct {
	rankings     rankingSnapshotReader
	leaderboards *LeaderboardService
	renderers    map[ExportFormat]export.Renderer
	logger       *zap.Logger
	now          func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(rankings rankingSnapshotReader, leaderboards *LeaderboardService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		rankings:     rankings,
		leaderboards: leaderboards,
		renderers: map[ExportFormat]export.Renderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// ExportRankings renders the full ranking of one scope.
func (s *ExportService) ExportRankings(ctx context.Context, scope models.RankingScope, format ExportFormat) (*ExportFile, error) {
	renderer, err := s.renderer(format)
	if err != nil {
		return nil, err
	}
	rows, err := s.rankings.Snapshot(ctx, scope)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Rankings - grade level %s", scope.GradeLevelID)
	if scope.SubjectID != nil {
		title += fmt.Sprintf(" - subject %s", *scope.SubjectID)
	}
	data := export.Dataset{
		Title:          title,
		Headers:        []string{"Rank", "User", "Score", "Percentile", "Total", "Computed At"},
		NumericColumns: map[int]bool{0: true, 2: true, 3: true, 4: true},
	}
	for _, r := range rows {
		data.Rows = append(data.Rows, []string{
			strconv.Itoa(r.Rank),
			r.UserID,
			strconv.FormatFloat(r.Score, 'f', 2, 64),
			strconv.FormatFloat(r.Percentile, 'f', 2, 64),
			strconv.Itoa(r.TotalStudents),
			r.ComputedAt.UTC().Format(time.RFC3339),
		})
	}

	name := "rankings-" + scope.GradeLevelID
	if scope.SubjectID != nil {
		name += "-" + *scope.SubjectID
	} else {
		name += "-overall"
	}
	return s.render(renderer, data, name)
}

// ExportLeaderboard renders the standings of a leaderboard. Hidden entries are only included on request.
func (s *ExportService) ExportLeaderboard(ctx context.Context, id string, format ExportFormat, includeHidden bool) (*ExportFile, error) {
	renderer, err := s.renderer(format)
	if err != nil {
		return nil, err
	}
	lb, err := s.leaderboards.load(ctx, id)
	if err != nil {
		return nil, err
	}
	var entries []models.LeaderboardEntry
	for page := 1; ; page++ {
		batch, total, err := s.leaderboards.store.Entries(ctx, lb.ID, models.PageRequest{Page: page, PageSize: 500}, !includeHidden)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard entries")
		}
		entries = append(entries, batch...)
		if len(batch) == 0 || len(entries) >= total {
			break
		}
	}

	title := lb.Name
	if lb.LastUpdatedAt != nil {
		title += " (" + lb.LastUpdatedAt.UTC().Format("2006-01-02 15:04") + " UTC)"
	}
	data := export.Dataset{
		Title:          title,
		Headers:        []string{"Rank", "User", "Points"},
		NumericColumns: map[int]bool{0: true, 2: true},
	}
	for _, e := range entries {
		data.Rows = append(data.Rows, []string{strconv.Itoa(e.Rank), e.UserID, strconv.FormatInt(e.Points, 10)})
	}
	return s.render(renderer, data, "leaderboard-"+lb.Slug)
}

func (s *ExportService) renderer(format ExportFormat) (export.Renderer, error) {
	renderer, ok := s.renderers[ExportFormat(strings.ToLower(string(format)))]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return renderer, nil
}

func (s *ExportService) render(renderer export.Renderer, data export.Dataset, name string) (*ExportFile, error) {
	payload, err := renderer.Render(data)
	if err != nil {
		s.logger.Error("export render failed", zap.String("export", name), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s-%s.%s", name, s.now().UTC().Format("20060102T150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        payload,
	}, nil
}
