package asr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"scriba/internal/task"
)

// Transcoder converts arbitrary media into the PCM audio the engine
// consumes.
type Transcoder interface {
	// ExtractAudio writes a mono 16kHz PCM WAV rendition of the input.
	ExtractAudio(ctx context.Context, inputPath, outputPath string) error
}

// FFmpegTranscoder shells out to ffmpeg for audio extraction.
type FFmpegTranscoder struct{}

// NewFFmpegTranscoder creates a transcoder backed by the ffmpeg binary on
// PATH.
func NewFFmpegTranscoder() *FFmpegTranscoder {
	return &FFmpegTranscoder{}
}

// ExtractAudio converts the input to mono 16kHz pcm_s16le WAV. Transcoder
// failures (malformed input, unsupported codec, missing audio track)
// surface as audio_extraction_error.
func (t *FFmpegTranscoder) ExtractAudio(ctx context.Context, inputPath, outputPath string) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return task.NewError(task.CodeAudioExtraction, "ffmpeg not found", err)
	}
	if _, err := os.Stat(inputPath); err != nil {
		return task.NewError(task.CodeAudioExtraction, "input media not accessible", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(engineSampleRate),
		"-c:a", "pcm_s16le",
		"-y",
		outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return task.NewError(task.CodeAudioExtraction,
			"ffmpeg audio conversion failed", fmt.Errorf("%w\nOutput: %s", err, output))
	}
	return nil
}

// ProbeDuration returns the duration of a media file in seconds using
// ffprobe.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return 0, fmt.Errorf("ffprobe not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to probe duration: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}
