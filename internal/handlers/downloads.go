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

// DownloadHandler serves the media download API.
type DownloadHandler struct {
	pipeline Submitter
	registry *task.Registry
	browser  ObjectBrowser
}

// NewDownloadHandler creates a new DownloadHandler.
func NewDownloadHandler(p Submitter, registry *task.Registry, browser ObjectBrowser) *DownloadHandler {
	return &DownloadHandler{pipeline: p, registry: registry, browser: browser}
}

type downloadRequest struct {
	URL          string `json:"url"`
	Format       string `json:"format"`
	Quality      string `json:"quality"`
	AudioOnly    bool   `json:"audio_only"`
	ExtractAudio bool   `json:"extract_audio"`
}

// Submit queues a download job and returns its task id.
func (h *DownloadHandler) Submit(c echo.Context) error {
	var req downloadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.URL) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "url is required",
			"code":  task.CodeValidation,
		})
	}
	if req.Format == "" {
		req.Format = "mp4"
	}
	if req.Quality == "" {
		req.Quality = "best"
	}

	id, err := h.pipeline.SubmitDownload(pipeline.DownloadSpec{
		URL: req.URL,
		Options: fetch.Options{
			Format:       req.Format,
			Quality:      req.Quality,
			AudioOnly:    req.AudioOnly,
			ExtractAudio: req.ExtractAudio,
		},
	})
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"task_id": id,
		"status":  string(task.StatusPending),
	})
}

// Status returns the current state of a download task.
func (h *DownloadHandler) Status(c echo.Context) error {
	t, ok := h.registry.Get(c.Param("task_id"))
	if !ok || t.Kind != task.KindDownload {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "task not found"})
	}
	return c.JSON(http.StatusOK, toTaskResponse(t))
}

// List enumerates stored videos by id.
func (h *DownloadHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	keys, err := h.browser.List(ctx, "videos/")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	byVideo := make(map[string][]string)
	for _, key := range keys {
		parts := strings.SplitN(key, "/", 3)
		if len(parts) < 3 {
			continue
		}
		byVideo[parts[1]] = append(byVideo[parts[1]], key)
	}

	ids := make([]string, 0, len(byVideo))
	for id := range byVideo {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	videos := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		videos = append(videos, map[string]any{
			"video_id": id,
			"files":    byVideo[id],
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"videos": videos})
}

// Get returns signed URLs for every stored file of one video.
func (h *DownloadHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	videoID := c.Param("video_id")

	keys, err := h.browser.List(ctx, publish.MediaNamespace(videoID)+"/")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if len(keys) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "video not found"})
	}

	sort.Strings(keys)
	files := make(map[string]string, len(keys))
	for _, key := range keys {
		url, err := h.browser.SignedURL(ctx, key)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		files[path.Base(key)] = url
	}

	return c.JSON(http.StatusOK, map[string]any{
		"video_id": videoID,
		"files":    files,
	})
}
