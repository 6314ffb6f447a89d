package convert

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a Job. Progress is strictly
// forward; Failed is terminal from any non-terminal state.
type Status string

const (
	// StatusPending indicates the job was created but not yet validated.
	StatusPending Status = "PENDING"
	// StatusValidated indicates the source passed size and format checks.
	StatusValidated Status = "VALIDATED"
	// StatusProbed indicates source metadata was extracted.
	StatusProbed Status = "PROBED"
	// StatusNormalized indicates target parameters were computed.
	StatusNormalized Status = "NORMALIZED"
	// StatusTranscoded indicates a GIF artifact was produced.
	StatusTranscoded Status = "TRANSCODED"
	// StatusOptimized indicates the artifact fits the output size bound.
	StatusOptimized Status = "OPTIMIZED"
	// StatusCompleted indicates the job finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the job terminated with an error.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusValidated, StatusFailed},
	StatusValidated:  {StatusProbed, StatusFailed},
	StatusProbed:     {StatusNormalized, StatusFailed},
	StatusNormalized: {StatusTranscoded, StatusFailed},
	StatusTranscoded: {StatusOptimized, StatusFailed},
	StatusOptimized:  {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Job carries the state of one conversion from source file to GIF artifact.
// A job is owned by a single goroutine; its stages execute sequentially, so
// it needs no internal locking.
type Job struct {
	// ID is the unique identifier for this job, also used to namespace its
	// temp workspace.
	ID string
	// Status is the current pipeline state.
	Status Status

	// SourcePath is the locally materialized input video, owned by the job.
	SourcePath string
	// SourceSizeBytes is the declared size of the input.
	SourceSizeBytes int64
	// SourceDuration is the probed duration in seconds; 0 means unknown.
	SourceDuration float64
	// SourceWidth and SourceHeight are the probed display dimensions.
	SourceWidth  int
	SourceHeight int

	// TargetDuration, TargetWidth, TargetHeight and TargetFPS are computed
	// by normalization. TargetFPS and the dimensions may later be lowered,
	// and PaletteSize reduced, by optimization passes only.
	TargetDuration float64
	TargetWidth    int
	TargetHeight   int
	TargetFPS      int
	// PaletteSize is the GIF palette size for the next encode.
	PaletteSize int

	// OutputPath is the produced artifact, replaced in place by
	// optimization passes.
	OutputPath string
	// FailReason holds the error message after a FAILED transition.
	FailReason string

	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// CompletedAt is when the job reached a terminal state.
	CompletedAt time.Time
}

// NewJob creates a job in PENDING state for the given materialized source.
func NewJob(sourcePath string, sourceSize int64) *Job {
	return &Job{
		ID:              uuid.NewString(),
		Status:          StatusPending,
		SourcePath:      sourcePath,
		SourceSizeBytes: sourceSize,
		CreatedAt:       time.Now(),
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}
	j.Status = status
	if status == StatusCompleted || status == StatusFailed {
		j.CompletedAt = time.Now()
	}
	return nil
}

// Fail transitions the job to FAILED, recording the reason.
func (j *Job) Fail(reason string) error {
	j.FailReason = reason
	return j.TransitionTo(StatusFailed)
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
