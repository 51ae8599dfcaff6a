package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
)

func fastRetries(t *testing.T) {
	t.Helper()
	orig := retryBase
	retryBase = time.Millisecond
	t.Cleanup(func() { retryBase = orig })
}

func TestRetryTransientEventuallySucceeds(t *testing.T) {
	fastRetries(t)

	calls := 0
	err := retryTransient(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryTransient: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryTransientGivesUp(t *testing.T) {
	fastRetries(t)

	calls := 0
	err := retryTransient(context.Background(), func() error {
		calls++
		return errors.New("always broken")
	})
	if err == nil {
		t.Fatal("expected failure")
	}
	if calls != maxAttempts {
		t.Fatalf("calls = %d, want %d", calls, maxAttempts)
	}
}

func TestRetryTransientStopsOnPermanent(t *testing.T) {
	fastRetries(t)

	calls := 0
	err := retryTransient(context.Background(), func() error {
		calls++
		return backoff.Permanent(errors.New("access denied"))
	})
	if err == nil {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestIsTransient(t *testing.T) {
	permanentCodes := []string{
		"AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch",
		"NoSuchBucket", "NoSuchKey", "InvalidBucketName",
	}
	for _, code := range permanentCodes {
		if isTransient(minio.ErrorResponse{Code: code}) {
			t.Errorf("%s classified as transient", code)
		}
	}

	if !isTransient(minio.ErrorResponse{Code: "SlowDown"}) {
		t.Error("throttling must be transient")
	}
	if !isTransient(errors.New("connection refused")) {
		t.Error("plain network errors must be transient")
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"talk.mp4":                  "video/mp4",
		"audio.MP3":                 "audio/mpeg",
		"transcription.json":        "application/json",
		"transcription.srt":         "application/x-subrip",
		"transcription.vtt":         "text/vtt",
		"videos/abc/unknown.xyz123": "application/octet-stream",
	}
	for name, want := range cases {
		if got := ContentTypeFor(name); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}
