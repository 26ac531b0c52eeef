package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lessonforge/videogen/internal/domain/model"
)

// StageFunc invokes one pipeline stage and classifies its own failures.
type StageFunc func(ctx context.Context) model.StageResult

// StageTimeouts holds per-stage wall-clock limits.
type StageTimeouts struct {
	Plan     time.Duration
	CodeGen  time.Duration
	Validate time.Duration
	Render   time.Duration
}

// For returns the timeout configured for the given stage.
func (t StageTimeouts) For(stage model.Stage) time.Duration {
	switch stage {
	case model.StagePlan:
		return t.Plan
	case model.StageCodeGen:
		return t.CodeGen
	case model.StageValidate:
		return t.Validate
	case model.StageRender:
		return t.Render
	default:
		return 0
	}
}

// StageExecutor wraps a single pipeline stage as a retryable unit with
// uniform logging and failure signaling. Every invocation produces exactly
// two log entries (start, end); classification of correctable vs. fatal is
// the stage's responsibility, except for panics and timeouts which the
// executor classifies itself.
type StageExecutor struct {
	store    JobStore
	logger   *slog.Logger
	timeouts StageTimeouts
}

// StageExecutorOptions bundles dependencies for NewStageExecutor.
type StageExecutorOptions struct {
	Store    JobStore
	Logger   *slog.Logger
	Timeouts StageTimeouts
}

// NewStageExecutor creates a StageExecutor.
func NewStageExecutor(opts StageExecutorOptions) *StageExecutor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StageExecutor{
		store:    opts.Store,
		logger:   logger,
		timeouts: opts.Timeouts,
	}
}

// Run invokes the stage for the given job, bracketing it with start/end log
// entries on the job record and returning the stage's result unchanged.
// A panic inside the stage is wrapped as a fatal failure with the raw
// description. A wall-clock timeout is fatal for the plan stage and
// correctable for the generation stages, matching their general failure
// classification.
func (e *StageExecutor) Run(ctx context.Context, jobID string, stage model.Stage, fn StageFunc) model.StageResult {
	e.appendLog(ctx, jobID, fmt.Sprintf("%s: started", stage))

	res := e.invoke(ctx, stage, fn)

	if res.IsSuccess() {
		e.appendLog(ctx, jobID, fmt.Sprintf("%s: completed", stage))
	} else {
		e.appendLog(ctx, jobID, fmt.Sprintf("%s: failed - %s", stage, res.Reason))
	}
	return res
}

func (e *StageExecutor) invoke(ctx context.Context, stage model.Stage, fn StageFunc) model.StageResult {
	stageCtx := ctx
	cancel := context.CancelFunc(func() {})
	if d := e.timeouts.For(stage); d > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, d)
	}
	defer cancel()

	// The stage runs in its own goroutine so a stuck external call cannot
	// stall the job past its wall-clock budget. On timeout the goroutine is
	// abandoned; its late result is discarded.
	done := make(chan model.StageResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- model.StageFatal(fmt.Sprintf("%s stage panic: %v", stage, r))
			}
		}()
		done <- fn(stageCtx)
	}()

	select {
	case res := <-done:
		return res
	case <-stageCtx.Done():
		return e.timeoutResult(ctx, stage, stageCtx.Err())
	}
}

func (e *StageExecutor) timeoutResult(ctx context.Context, stage model.Stage, cause error) model.StageResult {
	reason := "stage timeout"
	if ctx.Err() != nil {
		// The whole job context was cancelled, not just this stage's budget.
		reason = fmt.Sprintf("stage aborted: %v", cause)
		return model.StageFatal(reason)
	}
	if stage == model.StagePlan {
		return model.StageFatal(reason)
	}
	return model.StageCorrectable(reason, "")
}

func (e *StageExecutor) appendLog(ctx context.Context, jobID, message string) {
	if _, err := e.store.Update(ctx, jobID, func(j *model.Job) error {
		j.AppendLog(message)
		return nil
	}); err != nil {
		e.logger.ErrorContext(ctx, "append stage log", "job_id", jobID, "message", message, "error", err)
	}
	e.logger.InfoContext(ctx, "stage event", "job_id", jobID, "event", message)
}
