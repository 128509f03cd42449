package queue

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a job id is unknown.
	ErrNotFound = errors.New("job not found")
	// ErrJobRunning is returned when removal targets the job the
	// worker is currently executing.
	ErrJobRunning = errors.New("job is running")
	// ErrQueueFull is returned when the pending channel cannot accept
	// another job.
	ErrQueueFull = errors.New("render queue is full")
)

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Job is one render request. Hook fields come straight from the
// submitted request; source fields are resolved from the clip catalog
// at submission time so later artifact edits cannot change what an
// accepted job renders.
type Job struct {
	ID              string    `json:"job_id"`
	Status          Status    `json:"status"`
	HookClipID      string    `json:"hook_clip_id"`
	HookCaption     string    `json:"hook_caption"`
	BodyScript      string    `json:"body_script"`
	BodyAudioFile   string    `json:"body_audio_file,omitempty"`
	CTATagline      string    `json:"cta_tagline"`
	OutputName      string    `json:"output_name"`
	SourceFile      string    `json:"source_file"`
	StartSeconds    float64   `json:"start_seconds"`
	DurationSeconds float64   `json:"duration_seconds"`
	Result          string    `json:"result,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
