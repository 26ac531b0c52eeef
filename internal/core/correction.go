package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lessonforge/videogen/internal/domain/model"
)

// MaxRetriesReason is the fatal reason recorded when the correction budget
// is exhausted. It is surfaced to users verbatim.
const MaxRetriesReason = "max retries exceeded"

// ErrorCorrectionLoop absorbs correctable failures from the code-gen,
// validate, and render stages and retries the sub-sequence with failure
// context fed back into code generation. Retries are bounded; fatal
// failures are never retried regardless of remaining budget.
type ErrorCorrectionLoop struct {
	exec        *StageExecutor
	store       JobStore
	codegen     CodeGenerator
	validator   Validator
	renderer    Renderer
	maxAttempts int
	logger      *slog.Logger
}

// CorrectionLoopOptions bundles dependencies for NewErrorCorrectionLoop.
type CorrectionLoopOptions struct {
	Executor    *StageExecutor
	Store       JobStore
	CodeGen     CodeGenerator
	Validator   Validator
	Renderer    Renderer
	MaxAttempts int
	Logger      *slog.Logger
}

// NewErrorCorrectionLoop creates an ErrorCorrectionLoop.
func NewErrorCorrectionLoop(opts CorrectionLoopOptions) *ErrorCorrectionLoop {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorCorrectionLoop{
		exec:        opts.Executor,
		store:       opts.Store,
		codegen:     opts.CodeGen,
		validator:   opts.Validator,
		renderer:    opts.Renderer,
		maxAttempts: opts.MaxAttempts,
		logger:      logger,
	}
}

// Run drives the code-gen -> validate -> render sub-sequence for a job until
// it succeeds, fails fatally, or exhausts the correction budget. On success
// the returned result carries the artifact reference; on failure the second
// return value names the stage that produced it.
func (l *ErrorCorrectionLoop) Run(
	ctx context.Context,
	jobID string,
	plan string,
	sub model.Submission,
) (model.StageResult, model.Stage) {
	var correction *CorrectionContext

	for {
		res, stage, source := l.runOnce(ctx, jobID, plan, sub, correction)
		if !res.IsCorrectable() {
			return res, stage
		}

		attempt, err := l.nextAttempt(ctx, jobID)
		if err != nil {
			return model.StageFatal(fmt.Sprintf("record correction attempt: %v", err)), stage
		}
		if attempt > l.maxAttempts {
			return model.StageFatal(MaxRetriesReason), stage
		}

		correction = &CorrectionContext{
			PreviousSource: source,
			Diagnostics:    failureContext(res),
			Attempt:        attempt,
		}
	}
}

// runOnce executes one pass of the sub-sequence. It returns the terminal
// result of the pass, the stage that produced it, and the source generated
// during it, so the next attempt can feed the defective source back into
// regeneration.
func (l *ErrorCorrectionLoop) runOnce(
	ctx context.Context,
	jobID string,
	plan string,
	sub model.Submission,
	correction *CorrectionContext,
) (model.StageResult, model.Stage, string) {
	genRes := l.exec.Run(ctx, jobID, model.StageCodeGen, func(ctx context.Context) model.StageResult {
		return l.codegen.Generate(ctx, CodeGenRequest{
			Plan:       plan,
			VoiceModel: sub.VoiceModel,
			Correction: correction,
		})
	})
	if !genRes.IsSuccess() {
		return genRes, model.StageCodeGen, ""
	}
	source := genRes.Payload

	valRes := l.exec.Run(ctx, jobID, model.StageValidate, func(ctx context.Context) model.StageResult {
		return l.validator.Check(ctx, source)
	})
	if !valRes.IsSuccess() {
		return valRes, model.StageValidate, source
	}

	renderRes := l.exec.Run(ctx, jobID, model.StageRender, func(ctx context.Context) model.StageResult {
		return l.renderer.Execute(ctx, source, sub.RenderingQuality)
	})
	return renderRes, model.StageRender, source
}

// nextAttempt increments the job's correction counter and logs the retry.
// The returned value is the 1-based number of the attempt about to run.
func (l *ErrorCorrectionLoop) nextAttempt(ctx context.Context, jobID string) (int, error) {
	// The counter must not pass the bound even when the loop loses a race,
	// so the check happens before the increment inside the same update.
	var attempt int
	_, err := l.store.Update(ctx, jobID, func(j *model.Job) error {
		if j.AttemptCount >= l.maxAttempts {
			attempt = j.AttemptCount + 1
			return nil
		}
		j.AttemptCount++
		attempt = j.AttemptCount
		j.AppendLog(fmt.Sprintf("Error correction: attempt %d", attempt))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return attempt, nil
}

func failureContext(res model.StageResult) string {
	if res.Context != "" {
		return res.Context
	}
	return res.Reason
}
