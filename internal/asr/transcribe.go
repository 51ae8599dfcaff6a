package asr

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"scriba/internal/task"
)

// estimatedSegmentSeconds sizes the per-segment progress step: segment
// count is estimated from audio duration and progress is clamped so an
// undershoot never pushes past the stage ceiling.
const estimatedSegmentSeconds = 5.0

// Transcription is the stage output: the full concatenated text, ordered
// timed segments, and the language used. Language is never empty.
type Transcription struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// Transcriber sequences audio extraction and speech recognition.
type Transcriber struct {
	transcoder      Transcoder
	engine          Engine
	defaultLanguage string
	logger          *zap.Logger

	// probeDuration is injectable for tests.
	probeDuration func(ctx context.Context, path string) (float64, error)
}

// NewTranscriber wires the transcoder and engine collaborators.
func NewTranscriber(transcoder Transcoder, engine Engine, defaultLanguage string, logger *zap.Logger) *Transcriber {
	return &Transcriber{
		transcoder:      transcoder,
		engine:          engine,
		defaultLanguage: defaultLanguage,
		logger:          logger,
		probeDuration:   ProbeDuration,
	}
}

// Transcribe converts the media to PCM, runs recognition, and returns the
// segment list. progress receives the stage-relative fraction in [0, 1]:
// 0 once audio is ready, then one step per emitted segment against an
// estimate derived from the audio duration.
func (t *Transcriber) Transcribe(ctx context.Context, mediaPath, language, model, precision string, progress func(float64)) (*Transcription, error) {
	if language == "" {
		language = t.defaultLanguage
	}

	base := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	audioPath := base + ".16k.wav"
	if err := t.transcoder.ExtractAudio(ctx, mediaPath, audioPath); err != nil {
		return nil, err
	}

	estimate := 1
	if duration, err := t.probeDuration(ctx, audioPath); err == nil && duration > 0 {
		estimate = int(duration/estimatedSegmentSeconds) + 1
	}

	if progress != nil {
		progress(0)
	}

	emitted := 0
	opts := TranscribeOptions{
		Model:     model,
		Precision: precision,
		Language:  language,
		BeamWidth: DefaultBeamWidth,
		OnSegment: func(Segment) {
			emitted++
			if progress == nil {
				return
			}
			fraction := float64(emitted) / float64(estimate)
			if fraction > 1 {
				fraction = 1
			}
			progress(fraction)
		},
	}

	result, err := t.engine.Transcribe(ctx, audioPath, opts)
	if err != nil {
		var te *task.Error
		if errors.As(err, &te) {
			return nil, te
		}
		return nil, task.NewError(task.CodeTranscription, "speech recognition failed", err)
	}

	texts := make([]string, 0, len(result.Segments))
	for _, seg := range result.Segments {
		texts = append(texts, seg.Text)
	}

	lang := result.Language
	if lang == "" {
		lang = language
	}

	t.logger.Info("transcription finished",
		zap.Int("segments", len(result.Segments)),
		zap.String("language", lang))

	return &Transcription{
		Text:     strings.Join(texts, " "),
		Segments: result.Segments,
		Language: lang,
	}, nil
}
