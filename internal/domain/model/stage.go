package model

// Stage names one pipeline step.
type Stage string

const (
	// StagePlan generates the lesson plan.
	StagePlan Stage = "plan"
	// StageCodeGen generates the animation+voiceover source.
	StageCodeGen Stage = "code_gen"
	// StageValidate statically checks the generated source.
	StageValidate Stage = "validate"
	// StageRender executes the source and produces the artifact.
	StageRender Stage = "render"
)

// ResultKind tags the outcome of one stage invocation.
type ResultKind string

const (
	// ResultSuccess carries the stage's output payload.
	ResultSuccess ResultKind = "success"
	// ResultCorrectable marks a failure attributable to the generated
	// artifact, repairable by regeneration.
	ResultCorrectable ResultKind = "correctable_failure"
	// ResultFatal marks an unrecoverable failure terminating the job.
	ResultFatal ResultKind = "fatal_failure"
)

// StageResult is the transient, tagged outcome of one stage invocation.
// It routes control flow inside the workflow engine and is never stored in
// the job record; its summary is projected into log lines and, on terminal
// failure, into the error summary.
type StageResult struct {
	Kind    ResultKind
	Payload string // set on success: plan text, generated source, or artifact reference
	Reason  string // set on failure: short description
	Context string // set on correctable failure: diagnostics fed back into regeneration
}

// StageSuccess returns a success result carrying the stage payload.
func StageSuccess(payload string) StageResult {
	return StageResult{Kind: ResultSuccess, Payload: payload}
}

// StageCorrectable returns a correctable failure with diagnostics context.
func StageCorrectable(reason, context string) StageResult {
	return StageResult{Kind: ResultCorrectable, Reason: reason, Context: context}
}

// StageFatal returns a fatal failure.
func StageFatal(reason string) StageResult {
	return StageResult{Kind: ResultFatal, Reason: reason}
}

// IsSuccess reports whether the stage succeeded.
func (r StageResult) IsSuccess() bool { return r.Kind == ResultSuccess }

// IsCorrectable reports whether the failure can be retried by regeneration.
func (r StageResult) IsCorrectable() bool { return r.Kind == ResultCorrectable }

// IsFatal reports whether the failure terminates the job.
func (r StageResult) IsFatal() bool { return r.Kind == ResultFatal }
