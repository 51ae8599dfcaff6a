package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	ytdl "github.com/kkdai/youtube/v2"

	"scriba/internal/task"
)

// Transient fetch failures are retried up to three attempts with
// exponential backoff; invalid-input failures surface immediately.
const fetchAttempts = 3

// retryBase is overridable in tests to keep retry paths fast.
var retryBase = 1 * time.Second

// mediaExtensions identifies files eligible to be the acquisition's
// primary output.
var mediaExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mkv":  true,
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
}

// IsMediaKey reports whether an object key or filename has a known media
// extension.
func IsMediaKey(key string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(key))]
}

// infoSidecar is the metadata sidecar written by fetchers and parsed back
// during acquisition.
type infoSidecar struct {
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
	AudioCodec string  `json:"acodec,omitempty"`
	VideoCodec string  `json:"vcodec,omitempty"`
	UploadDate string  `json:"upload_date,omitempty"`
	Extractor  string  `json:"extractor,omitempty"`
	WebpageURL string  `json:"webpage_url,omitempty"`
}

// Acquire runs the fetcher with the stage retry policy and normalizes its
// output: the most recently modified media file becomes the primary,
// exactly one .json sidecar (if present) populates the metadata, and every
// other file is auxiliary. A fresh video id namespaces the result.
func Acquire(ctx context.Context, f Fetcher, url string, opts Options, destDir string, progress Progress) (*MediaResult, string, []string, error) {
	var files []string

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryBase
	bo.MaxInterval = 10 * time.Second

	err := backoff.Retry(func() error {
		var err error
		files, err = f.Fetch(ctx, url, opts, destDir, progress)
		if err != nil && !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, fetchAttempts-1), ctx))
	if err != nil {
		return nil, "", nil, task.NewError(task.CodeAcquisition, "failed to fetch media", err)
	}

	if len(files) == 0 {
		return nil, "", nil, task.NewError(task.CodeAcquisition, "fetch produced no files", nil)
	}

	var primary string
	var primaryMod time.Time
	var sidecarPath string
	var auxiliary []string

	for _, file := range files {
		if strings.EqualFold(filepath.Ext(file), ".json") && sidecarPath == "" {
			sidecarPath = file
			continue
		}
		if IsMediaKey(file) {
			mod := modTime(file)
			if primary == "" || mod.After(primaryMod) {
				if primary != "" {
					auxiliary = append(auxiliary, primary)
				}
				primary = file
				primaryMod = mod
				continue
			}
		}
		auxiliary = append(auxiliary, file)
	}

	if primary == "" {
		return nil, "", nil, task.NewError(task.CodeAcquisition, "fetch produced no recognized media file", nil)
	}
	if sidecarPath != "" {
		auxiliary = append(auxiliary, sidecarPath)
	}

	result := &MediaResult{
		VideoID: uuid.New().String(),
		Format:  strings.TrimPrefix(strings.ToLower(filepath.Ext(primary)), "."),
	}
	if info, err := os.Stat(primary); err == nil {
		result.FileSize = info.Size()
	}
	if sidecarPath != "" {
		applySidecar(result, sidecarPath)
	}

	return result, primary, auxiliary, nil
}

func applySidecar(result *MediaResult, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var info infoSidecar
	if err := json.Unmarshal(data, &info); err != nil {
		return
	}
	result.Title = info.Title
	result.Duration = info.Duration
	result.Width = info.Width
	result.Height = info.Height
	result.FPS = info.FPS
	result.AudioCodec = info.AudioCodec
	result.VideoCodec = info.VideoCodec
	result.UploadDate = info.UploadDate
	result.Extractor = info.Extractor
	result.WebpageURL = info.WebpageURL
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// transient classifies fetch failures. Invalid video references and
// playability rejections never heal on retry; network and extractor
// hiccups do.
func transient(err error) bool {
	if errors.Is(err, ytdl.ErrVideoIDMinLength) ||
		errors.Is(err, ytdl.ErrInvalidCharactersInVideoID) {
		return false
	}
	var playErr *ytdl.ErrPlayabiltyStatus
	if errors.As(err, &playErr) {
		return false
	}
	var statusErr ytdl.ErrUnexpectedStatusCode
	if errors.As(err, &statusErr) {
		code := int(statusErr)
		return code == 429 || code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return true
}
