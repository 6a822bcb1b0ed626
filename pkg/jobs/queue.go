package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job types dispatched by the scheduler and admin triggers.
const (
	TypeRunDueSchedules    = "ranking.schedules.run_due"
	TypeRunSchedule        = "ranking.schedule.run"
	TypeRefreshLeaderboard = "leaderboard.refresh"
	TypeRefreshAllBoards   = "leaderboard.refresh_all"
)

// Job represents a queued background task. While a job with a non-empty Key waits in the queue,
// further enqueues with the same Key are dropped. While it runs, one further enqueue is kept and
// dispatched after the running job finishes.
type Job struct {
	ID       string
	Type     string
	Key      string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is a lightweight in-memory job dispatcher backed by goroutines.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs     chan Job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
	inflight map[string]*keyState
}

type keyState struct {
	running bool
	rerun   *Job
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		jobs:       make(chan Job, cfg.BufferSize),
		inflight:   make(map[string]*keyState),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.workers)
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Enqueue pushes a job onto the queue. It reports false when a job with the same key is already
// waiting or a follow-up run for that key is already scheduled.
func (q *Queue) Enqueue(job Job) (bool, error) {
	q.mu.Lock()
	started := q.started
	if started && job.Key != "" && job.Attempt == 0 {
		if state, busy := q.inflight[job.Key]; busy {
			if !state.running || state.rerun != nil {
				q.mu.Unlock()
				return false, nil
			}
			state.rerun = &job
			q.mu.Unlock()
			return true, nil
		}
		q.inflight[job.Key] = &keyState{}
	}
	q.mu.Unlock()

	if !started {
		return false, fmt.Errorf("queue %s not started", q.name)
	}
	return q.push(job)
}

func (q *Queue) push(job Job) (bool, error) {
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-q.ctx.Done():
		q.release(job)
		return false, fmt.Errorf("queue %s stopped: %w", q.name, q.ctx.Err())
	case q.jobs <- job:
		return true, nil
	}
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.setRunning(job, true)
			if err := q.handler(q.ctx, job); err != nil {
				q.setRunning(job, false)
				q.handleFailure(job, err)
				continue
			}
			q.logger.Debug("job done", zap.String("queue", q.name), zap.Int("worker", workerID), zap.String("type", job.Type), zap.String("job_id", job.ID))
			q.finish(job)
		}
	}
}

func (q *Queue) setRunning(job Job, running bool) {
	if job.Key == "" {
		return
	}
	q.mu.Lock()
	if state, ok := q.inflight[job.Key]; ok {
		state.running = running
	}
	q.mu.Unlock()
}

// finish clears the key of a completed job, dispatching the follow-up run requested while it ran.
func (q *Queue) finish(job Job) {
	if job.Key == "" {
		return
	}
	q.mu.Lock()
	state, ok := q.inflight[job.Key]
	if !ok || state.rerun == nil {
		delete(q.inflight, job.Key)
		q.mu.Unlock()
		return
	}
	next := *state.rerun
	state.rerun = nil
	state.running = false
	q.mu.Unlock()

	next.Attempt = 0
	next.Enqueued = time.Time{}
	go func() {
		if _, err := q.push(next); err != nil {
			q.logger.Sugar().Errorw("failed to queue follow-up job", "queue", q.name, "job_id", next.ID, "error", err)
		}
	}()
}

func (q *Queue) release(job Job) {
	if job.Key == "" {
		return
	}
	q.mu.Lock()
	delete(q.inflight, job.Key)
	q.mu.Unlock()
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Sugar().Errorw("job exceeded retries", "queue", q.name, "job_id", job.ID, "type", job.Type, "error", err)
		q.finish(job)
		return
	}
	q.logger.Sugar().Warnw("job failed, retrying", "queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", err)

	go func(j Job) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.release(j)
			return
		case <-timer.C:
			if _, err := q.Enqueue(j); err != nil {
				q.logger.Sugar().Errorw("failed to requeue job", "queue", q.name, "job_id", j.ID, "error", err)
				q.release(j)
			}
		}
	}(job)
}
