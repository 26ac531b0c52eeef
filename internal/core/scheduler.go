package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/lessonforge/videogen/internal/domain/model"
)

// Dispatcher starts one workflow run as its own concurrent unit of work.
// Dispatch must not block on the run's completion, so the scheduler's
// public contract is unchanged when the policy is swapped.
type Dispatcher interface {
	Dispatch(ctx context.Context, run func(ctx context.Context))
}

// GoDispatcher starts one goroutine per job with no queueing delay.
// This is the alpha default.
type GoDispatcher struct{}

// Dispatch implements Dispatcher.
func (GoDispatcher) Dispatch(ctx context.Context, run func(ctx context.Context)) {
	// The run outlives the submission request; only values (logger, trace
	// metadata) are carried over, not the request's cancellation.
	go run(context.WithoutCancel(ctx))
}

// PoolDispatcher bounds concurrent workflow runs with a weighted semaphore.
// Jobs submitted past the bound wait in goroutines for a slot, so Submit
// still returns immediately.
type PoolDispatcher struct {
	sem *semaphore.Weighted
}

// NewPoolDispatcher creates a PoolDispatcher allowing size concurrent runs.
func NewPoolDispatcher(size int) *PoolDispatcher {
	if size < 1 {
		size = 1
	}
	return &PoolDispatcher{sem: semaphore.NewWeighted(int64(size))}
}

// Dispatch implements Dispatcher.
func (d *PoolDispatcher) Dispatch(ctx context.Context, run func(ctx context.Context)) {
	runCtx := context.WithoutCancel(ctx)
	go func() {
		if err := d.sem.Acquire(runCtx, 1); err != nil {
			return
		}
		defer d.sem.Release(1)
		run(runCtx)
	}()
}

// JobScheduler accepts new submissions, creates their job records, and
// dispatches one workflow engine run per job.
type JobScheduler struct {
	store      JobStore
	engine     *WorkflowEngine
	dispatcher Dispatcher
	logger     *slog.Logger
}

// SchedulerOptions bundles dependencies for NewJobScheduler.
type SchedulerOptions struct {
	Store      JobStore
	Engine     *WorkflowEngine
	Dispatcher Dispatcher
	Logger     *slog.Logger
}

// NewJobScheduler creates a JobScheduler.
func NewJobScheduler(opts SchedulerOptions) (*JobScheduler, error) {
	if opts.Store == nil {
		return nil, errors.New("job store is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("workflow engine is required")
	}
	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = GoDispatcher{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobScheduler{
		store:      opts.Store,
		engine:     opts.Engine,
		dispatcher: dispatcher,
		logger:     logger,
	}, nil
}

// Submit validates the submission, creates a queued job record, and starts
// its workflow run. It returns the job identifier immediately without
// blocking on completion.
func (s *JobScheduler) Submit(ctx context.Context, sub model.Submission) (string, error) {
	sub.ApplyDefaults()
	if err := sub.Validate(); err != nil {
		return "", fmt.Errorf("invalid submission: %w", err)
	}

	job := model.NewJob(uuid.NewString(), sub)
	if err := s.store.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	s.logger.InfoContext(ctx, "job submitted", "job_id", job.ID, "question", sub.Question)

	jobID := job.ID
	s.dispatcher.Dispatch(ctx, func(runCtx context.Context) {
		if err := s.engine.Run(runCtx, jobID); err != nil {
			s.logger.ErrorContext(runCtx, "workflow run aborted", "job_id", jobID, "error", err)
		}
	})

	return jobID, nil
}
