package handlers

import (
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"scriba/internal/fetch"
	"scriba/internal/pipeline"
	"scriba/internal/publish"
	"scriba/internal/task"
)

// TranscriptionDefaults are applied when a request omits model settings.
type TranscriptionDefaults struct {
	Language  string
	Model     string
	Precision string
}

// TranscriptionHandler serves the transcription API.
type TranscriptionHandler struct {
	pipeline Submitter
	registry *task.Registry
	browser  ObjectBrowser
	defaults TranscriptionDefaults
}

// NewTranscriptionHandler creates a new TranscriptionHandler.
func NewTranscriptionHandler(p Submitter, registry *task.Registry, browser ObjectBrowser, defaults TranscriptionDefaults) *TranscriptionHandler {
	return &TranscriptionHandler{pipeline: p, registry: registry, browser: browser, defaults: defaults}
}

type transcriptionRequest struct {
	VideoID      string `json:"video_id"`
	URL          string `json:"url"`
	Language     string `json:"language"`
	Model        string `json:"model"`
	ComputeType  string `json:"compute_type"`
	PersistMedia *bool  `json:"persist_media"`
}

// Submit queues a transcription job. The source is either a stored video
// id or a URL; when both are present the stored video wins. Requests with
// neither are rejected before any task is created.
func (h *TranscriptionHandler) Submit(c echo.Context) error {
	var req transcriptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	req.VideoID = strings.TrimSpace(req.VideoID)
	req.URL = strings.TrimSpace(req.URL)
	if req.VideoID == "" && req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "either video_id or url is required",
			"code":  task.CodeValidation,
		})
	}

	if req.Language == "" {
		req.Language = h.defaults.Language
	}
	if req.Model == "" {
		req.Model = h.defaults.Model
	}
	if req.ComputeType == "" {
		req.ComputeType = h.defaults.Precision
	}
	persist := true
	if req.PersistMedia != nil {
		persist = *req.PersistMedia
	}

	id, err := h.pipeline.SubmitTranscription(pipeline.TranscriptionSpec{
		VideoID:      req.VideoID,
		URL:          req.URL,
		Language:     req.Language,
		Model:        req.Model,
		Precision:    req.ComputeType,
		Options:      fetch.Options{Format: "mp4", Quality: "best", AudioOnly: true},
		PersistMedia: persist,
	})
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"task_id": id,
		"status":  string(task.StatusPending),
	})
}

// Status returns the current state of a transcription task.
func (h *TranscriptionHandler) Status(c echo.Context) error {
	t, ok := h.registry.Get(c.Param("task_id"))
	if !ok || t.Kind != task.KindTranscription {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "task not found"})
	}
	return c.JSON(http.StatusOK, toTaskResponse(t))
}

// List enumerates stored transcriptions by id.
func (h *TranscriptionHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	keys, err := h.browser.List(ctx, "transcriptions/")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	seen := make(map[string]bool)
	var ids []string
	for _, key := range keys {
		parts := strings.SplitN(key, "/", 3)
		if len(parts) < 3 || seen[parts[1]] {
			continue
		}
		seen[parts[1]] = true
		ids = append(ids, parts[1])
	}
	sort.Strings(ids)

	return c.JSON(http.StatusOK, map[string]any{"transcriptions": ids})
}

// Get returns signed URLs for the stored renditions of one transcription.
func (h *TranscriptionHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("transcription_id")

	keys, err := h.browser.List(ctx, publish.TranscriptionNamespace(id)+"/")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if len(keys) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "transcription not found"})
	}

	sort.Strings(keys)
	files := make(map[string]string, len(keys))
	for _, key := range keys {
		url, err := h.browser.SignedURL(ctx, key)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		ext := strings.TrimPrefix(path.Ext(key), ".")
		files[ext] = url
	}

	return c.JSON(http.StatusOK, map[string]any{
		"transcription_id": id,
		"files":            files,
	})
}
