package core_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lessonforge/videogen/internal/core"
	"github.com/lessonforge/videogen/internal/data"
	"github.com/lessonforge/videogen/internal/domain/model"
	"github.com/lessonforge/videogen/internal/mocks"
)

// scripted returns its results in order, repeating the last one once the
// script is exhausted.
type scripted struct {
	mu      sync.Mutex
	results []model.StageResult
	calls   int
}

func (s *scripted) next() model.StageResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i]
}

func (s *scripted) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type scriptedPlanner struct{ scripted }

func (s *scriptedPlanner) Generate(context.Context, core.PlanRequest) model.StageResult {
	return s.next()
}

type scriptedCodeGen struct {
	scripted
	corrections []*core.CorrectionContext
}

func (s *scriptedCodeGen) Generate(_ context.Context, req core.CodeGenRequest) model.StageResult {
	s.mu.Lock()
	s.corrections = append(s.corrections, req.Correction)
	s.mu.Unlock()
	return s.next()
}

type scriptedValidator struct{ scripted }

func (s *scriptedValidator) Check(context.Context, string) model.StageResult { return s.next() }

type scriptedRenderer struct{ scripted }

func (s *scriptedRenderer) Execute(context.Context, string, string) model.StageResult {
	return s.next()
}

type pipelineFixture struct {
	store     *data.MemStore
	engine    *core.WorkflowEngine
	planner   *scriptedPlanner
	codegen   *scriptedCodeGen
	validator *scriptedValidator
	renderer  *scriptedRenderer
}

type pipelineScript struct {
	plan     []model.StageResult
	code     []model.StageResult
	validate []model.StageResult
	render   []model.StageResult
	notifier core.Notifier
	maxTries int
}

func newPipeline(t *testing.T, script pipelineScript) *pipelineFixture {
	t.Helper()

	orSuccess := func(rs []model.StageResult, payload string) []model.StageResult {
		if len(rs) == 0 {
			return []model.StageResult{model.StageSuccess(payload)}
		}
		return rs
	}

	store := data.NewMemStore()
	planner := &scriptedPlanner{scripted{results: orSuccess(script.plan, "plan text")}}
	codegen := &scriptedCodeGen{scripted: scripted{results: orSuccess(script.code, "source text")}}
	validator := &scriptedValidator{scripted{results: orSuccess(script.validate, "")}}
	renderer := &scriptedRenderer{scripted{results: orSuccess(script.render, "media/videos/out.mp4")}}

	maxTries := script.maxTries
	if maxTries == 0 {
		maxTries = 3
	}

	exec := core.NewStageExecutor(core.StageExecutorOptions{Store: store})
	correction := core.NewErrorCorrectionLoop(core.CorrectionLoopOptions{
		Executor:    exec,
		Store:       store,
		CodeGen:     codegen,
		Validator:   validator,
		Renderer:    renderer,
		MaxAttempts: maxTries,
	})
	engine, err := core.NewWorkflowEngine(core.EngineOptions{
		Store:      store,
		Executor:   exec,
		Planner:    planner,
		Correction: correction,
		Notifier:   script.notifier,
	})
	require.NoError(t, err)

	return &pipelineFixture{
		store:     store,
		engine:    engine,
		planner:   planner,
		codegen:   codegen,
		validator: validator,
		renderer:  renderer,
	}
}

func (f *pipelineFixture) submitAndRun(t *testing.T, sub model.Submission) *model.Job {
	t.Helper()
	ctx := context.Background()
	sub.ApplyDefaults()
	require.NoError(t, f.store.Create(ctx, model.NewJob("job-1", sub)))
	require.NoError(t, f.engine.Run(ctx, "job-1"))

	job, err := f.store.Get(ctx, "job-1")
	require.NoError(t, err)
	return job
}

func countLogs(job *model.Job, prefix string) int {
	n := 0
	for _, msg := range job.LogMessages() {
		if strings.HasPrefix(msg, prefix) {
			n++
		}
	}
	return n
}

func TestEngine_HappyPath(t *testing.T) {
	t.Parallel()

	f := newPipeline(t, pipelineScript{})
	job := f.submitAndRun(t, model.Submission{Question: "What is a derivative?"})

	assert.Equal(t, model.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "media/videos/out.mp4", *job.Result)
	assert.Nil(t, job.ErrorSummary)
	assert.Zero(t, job.AttemptCount)

	// Status writes must never add log entries: four stages, a start and
	// an end line each, nothing else.
	assert.Equal(t, []string{
		"plan: started", "plan: completed",
		"code_gen: started", "code_gen: completed",
		"validate: started", "validate: completed",
		"render: started", "render: completed",
	}, job.LogMessages())
}

func TestEngine_SingleCorrectableFailureRecovers(t *testing.T) {
	t.Parallel()

	f := newPipeline(t, pipelineScript{
		render: []model.StageResult{
			model.StageCorrectable("manim execution failed", "Traceback: NameError"),
			model.StageSuccess("media/videos/out.mp4"),
		},
	})
	job := f.submitAndRun(t, model.Submission{Question: "q"})

	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.AttemptCount)
	assert.Equal(t, 1, countLogs(job, "Error correction: attempt"))
	assert.Equal(t, 2, f.codegen.callCount())

	// The retry regenerated with the failure context from the first pass.
	require.Len(t, f.codegen.corrections, 2)
	assert.Nil(t, f.codegen.corrections[0])
	require.NotNil(t, f.codegen.corrections[1])
	assert.Equal(t, 1, f.codegen.corrections[1].Attempt)
	assert.Equal(t, "source text", f.codegen.corrections[1].PreviousSource)
	assert.Contains(t, f.codegen.corrections[1].Diagnostics, "NameError")
}

func TestEngine_ExhaustedRetriesFailJob(t *testing.T) {
	t.Parallel()

	f := newPipeline(t, pipelineScript{
		validate: []model.StageResult{
			model.StageCorrectable("validation found 1 defect(s)", "missing cleanup"),
		},
		maxTries: 3,
	})
	job := f.submitAndRun(t, model.Submission{Question: "q"})

	assert.Equal(t, model.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorSummary)
	assert.Equal(t, "max retries exceeded", *job.ErrorSummary)
	assert.Nil(t, job.Result)

	// Initial pass plus three bounded retries; the counter never passes the bound.
	assert.Equal(t, 3, job.AttemptCount)
	assert.Equal(t, 4, f.codegen.callCount())
	assert.Equal(t, 3, countLogs(job, "Error correction: attempt"))
	assert.Equal(t, 4, countLogs(job, "code_gen: started"))
	// The render stage never ran.
	assert.Zero(t, f.renderer.callCount())
}

func TestEngine_FatalPlanFailureSkipsCorrection(t *testing.T) {
	t.Parallel()

	f := newPipeline(t, pipelineScript{
		plan: []model.StageResult{model.StageFatal("plan generation failed: api down")},
	})
	job := f.submitAndRun(t, model.Submission{Question: "q"})

	assert.Equal(t, model.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorSummary)
	// Raw diagnostics stay in the logs; the stored summary is the short form.
	assert.Equal(t, "lesson plan generation failed", *job.ErrorSummary)
	assert.Zero(t, job.AttemptCount)
	assert.Zero(t, f.codegen.callCount())
	assert.Equal(t, []string{"plan: started", "plan: failed - plan generation failed: api down"}, job.LogMessages())
}

func TestEngine_FatalRenderFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	f := newPipeline(t, pipelineScript{
		render: []model.StageResult{model.StageFatal("start manim: executable not found")},
	})
	job := f.submitAndRun(t, model.Submission{Question: "q"})

	assert.Equal(t, model.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorSummary)
	assert.Equal(t, "video rendering failed", *job.ErrorSummary)
	assert.Zero(t, job.AttemptCount)
	assert.Equal(t, 1, f.codegen.callCount())
}

func TestEngine_NotifiesOnCompletion(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n core.Notification) error {
			assert.Equal(t, "user@example.com", n.Email)
			assert.Equal(t, model.JobStatusCompleted, n.Status)
			assert.Equal(t, "media/videos/out.mp4", n.Result)
			return nil
		})

	f := newPipeline(t, pipelineScript{notifier: notifier})
	job := f.submitAndRun(t, model.Submission{Question: "q", Email: "user@example.com"})
	assert.Equal(t, model.JobStatusCompleted, job.Status)
}

func TestEngine_NotifierFailureDoesNotAlterJob(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any()).
		Return(assert.AnError)

	f := newPipeline(t, pipelineScript{notifier: notifier})
	job := f.submitAndRun(t, model.Submission{Question: "q", Email: "user@example.com"})

	assert.Equal(t, model.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result)
}

func TestEngine_NoEmailNoNotification(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	// No EXPECT: any call would fail the test.

	f := newPipeline(t, pipelineScript{notifier: notifier})
	job := f.submitAndRun(t, model.Submission{Question: "q"})
	assert.Equal(t, model.JobStatusCompleted, job.Status)
}

func TestEngine_RunFailsForUnknownJob(t *testing.T) {
	t.Parallel()

	f := newPipeline(t, pipelineScript{})
	err := f.engine.Run(context.Background(), "no-such-job")
	require.Error(t, err)
	assert.ErrorIs(t, err, data.ErrJobNotFound)
}
