package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-ranking-api/pkg/jobs"
)

// Enqueuer accepts background jobs.
type Enqueuer interface {
	Enqueue(job jobs.Job) (bool, error)
}

// Lease grants a named lock to a single owner for a bounded time.
type Lease interface {
	Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
}

// Config describes the cron ticks.
type Config struct {
	RankingSpec     string
	LeaderboardSpec string
	LeaseTTL        time.Duration
	Owner           string
	Location        *time.Location
}

// Scheduler turns cron ticks into queued jobs. Replicas contend for a per-tick lease so each tick runs once.
type Scheduler struct {
	cron   *cron.Cron
	queue  Enqueuer
	lease  Lease
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New registers the ranking and leaderboard ticks. An empty spec disables that tick.
func New(queue Enqueuer, lease Lease, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 10 * time.Minute
	}
	if cfg.Owner == "" {
		cfg.Owner = uuid.NewString()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	cl := cronLogger{logger.Sugar().Named("cron")}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		queue:  queue,
		lease:  lease,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}

	ticks := []struct {
		spec    string
		jobType string
	}{
		{cfg.RankingSpec, jobs.TypeRunDueSchedules},
		{cfg.LeaderboardSpec, jobs.TypeRefreshAllBoards},
	}
	for _, tick := range ticks {
		if tick.spec == "" {
			continue
		}
		jobType := tick.jobType
		if _, err := s.cron.AddFunc(tick.spec, func() { s.Tick(context.Background(), jobType) }); err != nil {
			return nil, fmt.Errorf("register %s tick %q: %w", jobType, tick.spec, err)
		}
	}
	return s, nil
}

// Start begins firing ticks.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("entries", len(s.cron.Entries())), zap.String("owner", s.cfg.Owner))
}

// Stop halts the cron and returns a context done once running ticks finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Tick enqueues jobType if this replica wins the lease for the current minute.
// It reports whether a job was enqueued.
func (s *Scheduler) Tick(ctx context.Context, jobType string) bool {
	slot := s.now().UTC().Truncate(time.Minute)
	leaseName := jobType + ":" + strconv.FormatInt(slot.Unix(), 10)

	ok, err := s.lease.Acquire(ctx, leaseName, s.cfg.Owner, s.cfg.LeaseTTL)
	if err != nil {
		s.logger.Warn("scheduler lease unavailable", zap.String("job_type", jobType), zap.Error(err))
		return false
	}
	if !ok {
		s.logger.Debug("scheduler tick owned by another replica", zap.String("job_type", jobType))
		return false
	}

	enqueued, err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobType, Key: jobType})
	if err != nil {
		s.logger.Error("scheduler enqueue failed", zap.String("job_type", jobType), zap.Error(err))
		return false
	}
	if !enqueued {
		s.logger.Info("scheduler tick skipped, a run for this job type is already queued", zap.String("job_type", jobType))
		return false
	}
	return true
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
