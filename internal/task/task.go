package task

import "time"

// Kind identifies which pipeline a task runs through.
type Kind string

const (
	KindDownload      Kind = "download"
	KindTranscription Kind = "transcription"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task tracks one background job from creation to its terminal state.
// Result and Error are mutually exclusive: Result is set exactly once on
// completion, Error exactly once on failure.
type Task struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Status    Status    `json:"status"`
	Progress  float64   `json:"progress"`
	Result    any       `json:"result,omitempty"`
	Error     *Error    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
