// Package model defines the core data types and structures used throughout the videogen job system.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the externally visible status of a job.
type JobStatus string

const (
	// JobStatusQueued indicates a job is waiting for its workflow to start.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing indicates the workflow engine is active on the job.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates the job finished with a rendered artifact.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job terminated without an artifact.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusProcessing ||
		s == JobStatusCompleted || s == JobStatusFailed
}

// Terminal returns true for statuses that permit no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether the status may move to next.
// Transitions are monotonic: queued -> processing -> {completed|failed}.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusProcessing
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// VoiceModel selects the voiceover voice for the rendered video.
type VoiceModel string

const (
	// VoiceNova is the default voiceover voice.
	VoiceNova VoiceModel = "nova"
	// VoiceAlloy is an alternative voiceover voice.
	VoiceAlloy VoiceModel = "alloy"
	// VoiceEcho is an alternative voiceover voice.
	VoiceEcho VoiceModel = "echo"
)

// Valid returns true if the VoiceModel is one of the supported voices.
func (v VoiceModel) Valid() bool {
	return v == VoiceNova || v == VoiceAlloy || v == VoiceEcho
}

// UnmarshalText implements encoding.TextUnmarshaler for VoiceModel.
func (v *VoiceModel) UnmarshalText(text []byte) error {
	vm := VoiceModel(strings.ToLower(strings.TrimSpace(string(text))))
	if vm == "" {
		*v = VoiceNova
		return nil
	}
	if !vm.Valid() {
		return fmt.Errorf("invalid voice model: %q", vm)
	}
	*v = vm
	return nil
}

// Submission is the immutable payload of one video generation request.
type Submission struct {
	Question         string     `json:"question"`
	RenderingQuality string     `json:"rendering_quality,omitempty"`
	DurationDetail   string     `json:"duration_detail,omitempty"`
	UserLevel        string     `json:"user_level,omitempty"`
	VoiceModel       VoiceModel `json:"voice_model,omitempty"`
	Email            string     `json:"email,omitempty"`
}

// ApplyDefaults fills omitted optional fields with their documented defaults.
func (s *Submission) ApplyDefaults() {
	if s.RenderingQuality == "" {
		s.RenderingQuality = "medium"
	}
	if s.DurationDetail == "" {
		s.DurationDetail = "normal"
	}
	if s.VoiceModel == "" {
		s.VoiceModel = VoiceNova
	}
}

// Validate validates the Submission fields.
func (s *Submission) Validate() error {
	if strings.TrimSpace(s.Question) == "" {
		return errors.New("question is required")
	}
	if !s.VoiceModel.Valid() {
		return fmt.Errorf("invalid voice model: %q (valid options: nova, alloy, echo)", s.VoiceModel)
	}
	if s.Email != "" && !strings.Contains(s.Email, "@") {
		return errors.New("email must be a valid address")
	}
	return nil
}

// LogEntry is one timestamped, human-readable stage event.
type LogEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Job represents one end-to-end request to turn a question into a rendered
// video. The canonical instance is owned by the JobStore; every mutation
// goes through the store's atomic update.
type Job struct {
	ID           string     `json:"id"`
	Status       JobStatus  `json:"status"`
	Submission   Submission `json:"submission"`
	Logs         []LogEntry `json:"logs"`
	AttemptCount int        `json:"attempt_count"`
	Result       *string    `json:"result,omitempty"`
	ErrorSummary *string    `json:"error_summary,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewJob creates a queued job for the given submission.
func NewJob(id string, sub Submission) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:         id,
		Status:     JobStatusQueued,
		Submission: sub,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ErrInvalidTransition is returned when a status change violates the
// monotonic state machine.
var ErrInvalidTransition = errors.New("invalid job status transition")

// AppendLog appends a timestamped entry to the job's log sequence.
// Logs are append-only and never reordered or truncated.
func (j *Job) AppendLog(message string) {
	now := time.Now().UTC()
	j.Logs = append(j.Logs, LogEntry{At: now, Message: message})
	j.UpdatedAt = now
}

// MarkProcessing moves a queued job to processing.
func (j *Job) MarkProcessing() error {
	if !j.Status.CanTransitionTo(JobStatusProcessing) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, JobStatusProcessing)
	}
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted moves a processing job to completed and records the artifact
// reference. Result and ErrorSummary are mutually exclusive and each is set
// at most once.
func (j *Job) MarkCompleted(result string) error {
	if !j.Status.CanTransitionTo(JobStatusCompleted) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, JobStatusCompleted)
	}
	if j.Result != nil || j.ErrorSummary != nil {
		return errors.New("terminal outcome already recorded")
	}
	j.Status = JobStatusCompleted
	j.Result = &result
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailed moves a processing job to failed and records a short
// user-facing error summary.
func (j *Job) MarkFailed(summary string) error {
	if !j.Status.CanTransitionTo(JobStatusFailed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, JobStatusFailed)
	}
	if j.Result != nil || j.ErrorSummary != nil {
		return errors.New("terminal outcome already recorded")
	}
	j.Status = JobStatusFailed
	j.ErrorSummary = &summary
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Clone returns a deep copy so readers never share state with the canonical
// record held by the store.
func (j *Job) Clone() *Job {
	cp := *j
	cp.Logs = make([]LogEntry, len(j.Logs))
	copy(cp.Logs, j.Logs)
	if j.Result != nil {
		r := *j.Result
		cp.Result = &r
	}
	if j.ErrorSummary != nil {
		e := *j.ErrorSummary
		cp.ErrorSummary = &e
	}
	return &cp
}

// LogMessages returns the log messages in append order.
func (j *Job) LogMessages() []string {
	out := make([]string, len(j.Logs))
	for i, entry := range j.Logs {
		out[i] = entry.Message
	}
	return out
}
