package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	ytdl "github.com/kkdai/youtube/v2"

	"scriba/internal/task"
)

type fakeFetcher struct {
	fetch func(ctx context.Context, url string, opts Options, destDir string, progress Progress) ([]string, error)
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, opts Options, destDir string, progress Progress) ([]string, error) {
	f.calls++
	return f.fetch(ctx, url, opts, destDir, progress)
}

func fastRetries(t *testing.T) {
	t.Helper()
	orig := retryBase
	retryBase = time.Millisecond
	t.Cleanup(func() { retryBase = orig })
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAcquireNormalizesOutput(t *testing.T) {
	dir := t.TempDir()
	media := writeFile(t, filepath.Join(dir, "talk.mp4"), "video-bytes")
	sidecar := writeFile(t, filepath.Join(dir, "talk.info.json"),
		`{"title":"A Talk","duration":120.5,"width":1280,"height":720,"extractor":"youtube"}`)

	f := &fakeFetcher{fetch: func(ctx context.Context, url string, opts Options, destDir string, progress Progress) ([]string, error) {
		return []string{media, sidecar}, nil
	}}

	result, primary, auxiliary, err := Acquire(context.Background(), f, "https://example.com/v", Options{}, dir, nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if primary != media {
		t.Fatalf("primary = %s, want %s", primary, media)
	}
	if len(auxiliary) != 1 || auxiliary[0] != sidecar {
		t.Fatalf("auxiliary = %v, want sidecar only", auxiliary)
	}
	if result.VideoID == "" {
		t.Fatal("video id not assigned")
	}
	if result.Title != "A Talk" || result.Duration != 120.5 {
		t.Fatalf("sidecar metadata not applied: %+v", result)
	}
	if result.Format != "mp4" {
		t.Fatalf("format = %s", result.Format)
	}
	if result.FileSize != int64(len("video-bytes")) {
		t.Fatalf("file size = %d", result.FileSize)
	}
}

func TestAcquireMostRecentMediaWins(t *testing.T) {
	dir := t.TempDir()
	older := writeFile(t, filepath.Join(dir, "raw.webm"), "a")
	newer := writeFile(t, filepath.Join(dir, "final.mp3"), "b")

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}

	f := &fakeFetcher{fetch: func(ctx context.Context, url string, opts Options, destDir string, progress Progress) ([]string, error) {
		return []string{older, newer}, nil
	}}

	_, primary, auxiliary, err := Acquire(context.Background(), f, "u", Options{}, dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if primary != newer {
		t.Fatalf("primary = %s, want most recently modified", primary)
	}
	if len(auxiliary) != 1 || auxiliary[0] != older {
		t.Fatalf("auxiliary = %v", auxiliary)
	}
}

func TestAcquireNoFiles(t *testing.T) {
	f := &fakeFetcher{fetch: func(ctx context.Context, url string, opts Options, destDir string, progress Progress) ([]string, error) {
		return nil, nil
	}}

	_, _, _, err := Acquire(context.Background(), f, "u", Options{}, t.TempDir(), nil)
	var te *task.Error
	if !errors.As(err, &te) || te.Code != task.CodeAcquisition {
		t.Fatalf("got %v, want acquisition error", err)
	}
}

func TestAcquireNoRecognizedMedia(t *testing.T) {
	dir := t.TempDir()
	txt := writeFile(t, filepath.Join(dir, "notes.txt"), "x")

	f := &fakeFetcher{fetch: func(ctx context.Context, url string, opts Options, destDir string, progress Progress) ([]string, error) {
		return []string{txt}, nil
	}}

	_, _, _, err := Acquire(context.Background(), f, "u", Options{}, dir, nil)
	var te *task.Error
	if !errors.As(err, &te) || te.Code != task.CodeAcquisition {
		t.Fatalf("got %v, want acquisition error", err)
	}
}

func TestAcquireRetriesTransientFailures(t *testing.T) {
	fastRetries(t)
	dir := t.TempDir()
	media := writeFile(t, filepath.Join(dir, "clip.mp4"), "x")

	f := &fakeFetcher{}
	f.fetch = func(ctx context.Context, url string, opts Options, destDir string, progress Progress) ([]string, error) {
		if f.calls < 3 {
			return nil, errors.New("connection reset")
		}
		return []string{media}, nil
	}

	_, primary, _, err := Acquire(context.Background(), f, "u", Options{}, dir, nil)
	if err != nil {
		t.Fatalf("Acquire after retries: %v", err)
	}
	if primary != media {
		t.Fatalf("primary = %s", primary)
	}
	if f.calls != 3 {
		t.Fatalf("calls = %d, want 3", f.calls)
	}
}

func TestAcquireGivesUpAfterThreeAttempts(t *testing.T) {
	fastRetries(t)

	f := &fakeFetcher{}
	f.fetch = func(ctx context.Context, url string, opts Options, destDir string, progress Progress) ([]string, error) {
		return nil, errors.New("still broken")
	}

	_, _, _, err := Acquire(context.Background(), f, "u", Options{}, t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected failure")
	}
	if f.calls != 3 {
		t.Fatalf("calls = %d, want 3", f.calls)
	}
}

func TestAcquireDoesNotRetryInvalidInput(t *testing.T) {
	fastRetries(t)

	f := &fakeFetcher{}
	f.fetch = func(ctx context.Context, url string, opts Options, destDir string, progress Progress) ([]string, error) {
		return nil, ytdl.ErrVideoIDMinLength
	}

	_, _, _, err := Acquire(context.Background(), f, "u", Options{}, t.TempDir(), nil)
	var te *task.Error
	if !errors.As(err, &te) || te.Code != task.CodeAcquisition {
		t.Fatalf("got %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("calls = %d, want 1 for permanent failure", f.calls)
	}
}

func TestIsMediaKey(t *testing.T) {
	cases := map[string]bool{
		"videos/abc/talk.mp4":      true,
		"videos/abc/audio.MP3":     true,
		"videos/abc/metadata.json": false,
		"videos/abc/talk.srt":      false,
		"noextension":              false,
	}
	for key, want := range cases {
		if got := IsMediaKey(key); got != want {
			t.Errorf("IsMediaKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestTransientClassification(t *testing.T) {
	if transient(ytdl.ErrInvalidCharactersInVideoID) {
		t.Fatal("invalid video id must be permanent")
	}
	if transient(&ytdl.ErrPlayabiltyStatus{Status: "LOGIN_REQUIRED"}) {
		t.Fatal("playability rejection must be permanent")
	}
	if !transient(ytdl.ErrUnexpectedStatusCode(429)) {
		t.Fatal("throttling must be transient")
	}
	if transient(ytdl.ErrUnexpectedStatusCode(403)) {
		t.Fatal("4xx other than 429 must be permanent")
	}
	if !transient(errors.New("anything else")) {
		t.Fatal("unknown errors default to transient")
	}
}
