package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lessonforge/videogen/internal/domain/model"
)

// WorkflowEngine sequences the pipeline stages for one job, drives the
// error-correction loop, and writes every state transition to the job store.
// Internal states run PLAN -> CODE_GEN -> VALIDATE -> RENDER with a
// correction self-loop over the last three; externally the job only ever
// shows queued, processing, completed, or failed.
type WorkflowEngine struct {
	store      JobStore
	exec       *StageExecutor
	planner    PlanGenerator
	correction *ErrorCorrectionLoop
	notifier   Notifier
	logger     *slog.Logger
}

// EngineOptions bundles dependencies for NewWorkflowEngine.
type EngineOptions struct {
	Store      JobStore
	Executor   *StageExecutor
	Planner    PlanGenerator
	Correction *ErrorCorrectionLoop
	Notifier   Notifier
	Logger     *slog.Logger
}

// NewWorkflowEngine creates a WorkflowEngine.
func NewWorkflowEngine(opts EngineOptions) (*WorkflowEngine, error) {
	if opts.Store == nil {
		return nil, errors.New("job store is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("stage executor is required")
	}
	if opts.Planner == nil {
		return nil, errors.New("plan generator is required")
	}
	if opts.Correction == nil {
		return nil, errors.New("error correction loop is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkflowEngine{
		store:      opts.Store,
		exec:       opts.Executor,
		planner:    opts.Planner,
		correction: opts.Correction,
		notifier:   opts.Notifier,
		logger:     logger,
	}, nil
}

// Run executes the workflow for one job to a terminal state. The job must
// exist and be queued; stage transitions within the job are strictly
// sequential. Run returns an error only for store-level failures that
// prevented the terminal write.
func (e *WorkflowEngine) Run(ctx context.Context, jobID string) error {
	job, err := e.store.Update(ctx, jobID, func(j *model.Job) error {
		return j.MarkProcessing()
	})
	if err != nil {
		return fmt.Errorf("start workflow for job %s: %w", jobID, err)
	}
	sub := job.Submission

	planRes := e.exec.Run(ctx, jobID, model.StagePlan, func(ctx context.Context) model.StageResult {
		return e.planner.Generate(ctx, PlanRequest{
			Question:       sub.Question,
			UserLevel:      sub.UserLevel,
			DurationDetail: sub.DurationDetail,
		})
	})
	if !planRes.IsSuccess() {
		// Plan generation has no correction path; any failure is terminal.
		return e.fail(ctx, jobID, model.StagePlan, planRes.Reason)
	}

	finalRes, failedStage := e.correction.Run(ctx, jobID, planRes.Payload, sub)
	if !finalRes.IsSuccess() {
		return e.fail(ctx, jobID, failedStage, finalRes.Reason)
	}
	return e.complete(ctx, jobID, finalRes.Payload)
}

func (e *WorkflowEngine) complete(ctx context.Context, jobID, result string) error {
	job, err := e.store.Update(ctx, jobID, func(j *model.Job) error {
		return j.MarkCompleted(result)
	})
	if err != nil {
		return fmt.Errorf("complete job %s: %w", jobID, err)
	}
	e.logger.InfoContext(ctx, "job completed", "job_id", jobID, "result", result)
	e.notify(ctx, job)
	return nil
}

func (e *WorkflowEngine) fail(ctx context.Context, jobID string, stage model.Stage, reason string) error {
	summary := sanitizeSummary(stage, reason)
	job, err := e.store.Update(ctx, jobID, func(j *model.Job) error {
		return j.MarkFailed(summary)
	})
	if err != nil {
		return fmt.Errorf("fail job %s: %w", jobID, err)
	}
	e.logger.InfoContext(ctx, "job failed", "job_id", jobID, "stage", string(stage), "reason", reason)
	e.notify(ctx, job)
	return nil
}

// sanitizeSummary maps an internal failure reason to the short user-facing
// message stored on the record. Raw diagnostics stay in the logs only.
func sanitizeSummary(stage model.Stage, reason string) string {
	if reason == MaxRetriesReason {
		return MaxRetriesReason
	}
	switch stage {
	case model.StagePlan:
		return "lesson plan generation failed"
	case model.StageCodeGen:
		return "animation code generation failed"
	case model.StageValidate:
		return "generated animation code failed validation"
	default:
		return "video rendering failed"
	}
}

// notify delivers the terminal notification when the submission carried an
// email address. Delivery failures are logged and dropped; they never alter
// job state.
func (e *WorkflowEngine) notify(ctx context.Context, job *model.Job) {
	if e.notifier == nil || job.Submission.Email == "" {
		return
	}
	n := Notification{
		Email:  job.Submission.Email,
		JobID:  job.ID,
		Status: job.Status,
	}
	if job.Result != nil {
		n.Result = *job.Result
	}
	if job.ErrorSummary != nil {
		n.Summary = *job.ErrorSummary
	}
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.WarnContext(ctx, "terminal notification failed", "job_id", job.ID, "error", err)
	}
}
