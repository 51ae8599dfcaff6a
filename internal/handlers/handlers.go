package handlers

import (
	"context"
	"time"

	"scriba/internal/pipeline"
	"scriba/internal/task"
)

// Submitter is the pipeline as the API sees it.
type Submitter interface {
	SubmitDownload(spec pipeline.DownloadSpec) (string, error)
	SubmitTranscription(spec pipeline.TranscriptionSpec) (string, error)
}

// ObjectBrowser resolves stored artifacts for the read endpoints.
type ObjectBrowser interface {
	List(ctx context.Context, prefix string) ([]string, error)
	SignedURL(ctx context.Context, key string) (string, error)
}

// taskResponse is the wire shape of a task for the status endpoints.
type taskResponse struct {
	TaskID    string      `json:"task_id"`
	Kind      string      `json:"kind"`
	Status    string      `json:"status"`
	Progress  float64     `json:"progress"`
	Result    any         `json:"result,omitempty"`
	Error     *task.Error `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func toTaskResponse(t task.Task) taskResponse {
	return taskResponse{
		TaskID:    t.ID,
		Kind:      string(t.Kind),
		Status:    string(t.Status),
		Progress:  t.Progress,
		Result:    t.Result,
		Error:     t.Error,
		CreatedAt: t.CreatedAt,
	}
}
