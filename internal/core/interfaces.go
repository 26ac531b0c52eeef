// Package core provides the workflow engine and service layer for the videogen job system.
package core

import (
	"context"

	"github.com/lessonforge/videogen/internal/domain/model"
)

// This file contains the port interfaces (hexagonal architecture). The engine
// depends on these contracts; implementations live in internal/data and
// internal/adapters.

// JobStore is a concurrency-safe mapping from job identifier to job record.
// The store exclusively owns the canonical records: all reads return deep
// copies and all writes go through Update's atomic read-modify-write.
type JobStore interface {
	// Create stores a new job record. Fails if the identifier already exists.
	Create(ctx context.Context, job *model.Job) error

	// Get returns a snapshot of the job, or a not-found error for unknown
	// identifiers. Lookups never create records as a side effect.
	Get(ctx context.Context, id string) (*model.Job, error)

	// Update applies fn to the job under the store's write lock and persists
	// the mutated record. fn returning an error aborts the update. The
	// returned job is a snapshot of the updated record.
	Update(ctx context.Context, id string, fn func(*model.Job) error) (*model.Job, error)

	// List returns snapshots of all jobs. Used by the reaper.
	List(ctx context.Context) ([]*model.Job, error)

	// Delete removes a job record. Returns false if the identifier is unknown.
	Delete(ctx context.Context, id string) (bool, error)
}

// PlanRequest carries the submission fields relevant to plan generation.
type PlanRequest struct {
	Question       string
	UserLevel      string
	DurationDetail string
}

// PlanGenerator produces a structured lesson plan for a question.
type PlanGenerator interface {
	Generate(ctx context.Context, req PlanRequest) model.StageResult
}

// CorrectionContext carries failure context from a prior attempt back into
// code generation.
type CorrectionContext struct {
	PreviousSource string
	Diagnostics    string
	Attempt        int
}

// CodeGenRequest carries the inputs for animation source generation.
type CodeGenRequest struct {
	Plan       string
	VoiceModel model.VoiceModel
	Correction *CorrectionContext
}

// CodeGenerator produces animation+voiceover source text from a plan.
type CodeGenerator interface {
	Generate(ctx context.Context, req CodeGenRequest) model.StageResult
}

// Validator statically checks generated source text. Structural defects are
// reported as correctable failures carrying a diagnostic list.
type Validator interface {
	Check(ctx context.Context, source string) model.StageResult
}

// Renderer executes validated source and produces an artifact reference.
type Renderer interface {
	Execute(ctx context.Context, source, quality string) model.StageResult
}

// Notification describes one terminal job transition for delivery.
type Notification struct {
	Email   string
	JobID   string
	Status  model.JobStatus
	Result  string // artifact reference on completion
	Summary string // error summary on failure
}

// Notifier delivers terminal notifications. Delivery is fire-and-forget:
// errors are reported to the caller for logging only and never alter job
// state.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
