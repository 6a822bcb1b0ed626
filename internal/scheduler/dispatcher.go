package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-ranking-api/internal/dto"
	appErrors "github.com/noah-isme/lms-ranking-api/pkg/errors"
	"github.com/noah-isme/lms-ranking-api/pkg/jobs"
)

// ScheduleRunner executes ranking schedules.
type ScheduleRunner interface {
	RunDue(ctx context.Context, now time.Time) (*dto.RunDueResult, error)
	RunNow(ctx context.Context, id string) (*dto.ScheduleRunResult, error)
}

// LeaderboardRefresher regenerates leaderboard entries.
type LeaderboardRefresher interface {
	UpdateLeaderboard(ctx context.Context, id string) (*dto.LeaderboardDetail, error)
	UpdateAllActiveLeaderboards(ctx context.Context) (*dto.BatchRefreshResult, error)
}

// Locker is a Lease that can be handed back before it expires.
type Locker interface {
	Lease
	Release(ctx context.Context, name, owner string) error
}

// JobLock serialises job execution across replicas. A nil Locker disables it.
type JobLock struct {
	Locker Locker
	Owner  string
	TTL    time.Duration
}

// NewJobHandler routes queued jobs to the engines. Jobs that reference missing
// rows are dropped instead of retried, as are jobs whose key is already running elsewhere.
func NewJobHandler(schedules ScheduleRunner, leaderboards LeaderboardRefresher, lock JobLock, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lock.TTL <= 0 {
		lock.TTL = 30 * time.Minute
	}
	return func(ctx context.Context, job jobs.Job) error {
		if lock.Locker != nil && job.Key != "" {
			name := "job:" + job.Key
			ok, err := lock.Locker.Acquire(ctx, name, lock.Owner, lock.TTL)
			if err != nil {
				return fmt.Errorf("%s: %w", job.Type, err)
			}
			if !ok {
				logger.Info("job already running on another replica", zap.String("job_id", job.ID), zap.String("key", job.Key))
				return nil
			}
			defer func() {
				if err := lock.Locker.Release(context.Background(), name, lock.Owner); err != nil {
					logger.Warn("release job lease", zap.String("key", job.Key), zap.Error(err))
				}
			}()
		}

		var err error
		switch job.Type {
		case jobs.TypeRunDueSchedules:
			var result *dto.RunDueResult
			if result, err = schedules.RunDue(ctx, time.Now().UTC()); err == nil {
				logger.Info("scheduled ranking tick done", zap.String("job_id", job.ID), zap.Int("runs", len(result.Runs)))
			}
		case jobs.TypeRunSchedule:
			_, err = schedules.RunNow(ctx, payloadID(job))
		case jobs.TypeRefreshLeaderboard:
			_, err = leaderboards.UpdateLeaderboard(ctx, payloadID(job))
		case jobs.TypeRefreshAllBoards:
			var result *dto.BatchRefreshResult
			if result, err = leaderboards.UpdateAllActiveLeaderboards(ctx); err == nil && len(result.Failures) > 0 {
				logger.Warn("leaderboard refresh tick had failures", zap.String("job_id", job.ID), zap.Int("failures", len(result.Failures)))
			}
		default:
			logger.Error("unknown job type dropped", zap.String("job_id", job.ID), zap.String("type", job.Type))
			return nil
		}

		if err != nil && (appErrors.IsCode(err, appErrors.ErrNotFound.Code) || appErrors.IsCode(err, appErrors.ErrValidation.Code)) {
			logger.Warn("job dropped", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", job.Type, err)
		}
		return nil
	}
}

func payloadID(job jobs.Job) string {
	if id, ok := job.Payload.(string); ok {
		return id
	}
	return ""
}
