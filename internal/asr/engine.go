package asr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
	"go.uber.org/zap"
)

const (
	engineSampleRate = 16000
	// DefaultBeamWidth is the fixed recognition beam.
	DefaultBeamWidth = 5
)

// Segment is one timed span of recognized text. Index is assigned
// sequentially from 0 in emission order, which is strictly time-ordered.
type Segment struct {
	Index int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscribeOptions selects the model and recognition parameters for one
// run. OnSegment, when set, is invoked for every emitted segment in order.
type TranscribeOptions struct {
	Model     string
	Precision string
	Language  string
	BeamWidth int
	OnSegment func(Segment)
}

// EngineResult is the raw recognition output before stage normalization.
type EngineResult struct {
	Segments []Segment
	Language string
}

// Engine is the speech-to-text collaborator. Implementations load models
// lazily and keep the active one cached.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) (*EngineResult, error)
}

// SherpaEngine runs Whisper models through sherpa-onnx. A single
// recognizer instance is shared and access is serialized: a request for
// the currently loaded (model, precision, language) triple is a no-op, a
// different triple swaps the model synchronously. The language is part of
// the reload key because sherpa binds it at recognizer construction.
type SherpaEngine struct {
	modelRoot string
	logger    *zap.Logger

	mu         sync.Mutex
	recognizer *sherpa.OfflineRecognizer
	loadedKey  string
}

// NewSherpaEngine creates an engine that resolves model directories under
// modelRoot. No model is loaded until the first transcription.
func NewSherpaEngine(modelRoot string, logger *zap.Logger) *SherpaEngine {
	return &SherpaEngine{modelRoot: modelRoot, logger: logger}
}

// Close releases the loaded recognizer, if any.
func (e *SherpaEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(e.recognizer)
		e.recognizer = nil
		e.loadedKey = ""
	}
}

// Transcribe decodes the audio file block by block. Voice-activity
// filtering excludes silence spans of 500ms or more; each surviving block
// becomes one segment timed by its block boundaries.
func (e *SherpaEngine) Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) (*EngineResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureLoaded(opts); err != nil {
		return nil, err
	}

	samples, sampleRate, err := readWavSamples(audioPath)
	if err != nil {
		return nil, err
	}

	blocks := detectSpeechBlocks(samples, sampleRate, defaultVADConfig())

	result := &EngineResult{Language: opts.Language}
	for _, block := range blocks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		start := int(block.Start * float64(sampleRate))
		end := int(block.End * float64(sampleRate))
		if end > len(samples) {
			end = len(samples)
		}
		if start >= end {
			continue
		}

		text, err := e.decodeBlock(samples[start:end], sampleRate)
		if err != nil {
			return nil, err
		}
		if text == "" {
			continue
		}

		seg := Segment{
			Index: len(result.Segments),
			Start: block.Start,
			End:   block.End,
			Text:  text,
		}
		result.Segments = append(result.Segments, seg)
		if opts.OnSegment != nil {
			opts.OnSegment(seg)
		}
	}

	return result, nil
}

func (e *SherpaEngine) decodeBlock(samples []float32, sampleRate int) (string, error) {
	stream := sherpa.NewOfflineStream(e.recognizer)
	if stream == nil {
		return "", fmt.Errorf("failed to create decode stream")
	}
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(sampleRate, samples)
	e.recognizer.Decode(stream)

	result := stream.GetResult()
	if result == nil {
		return "", nil
	}
	return strings.TrimSpace(result.Text), nil
}

// ensureLoaded lazily creates the recognizer for the requested model
// triple, replacing the previous one when the triple changed. Callers
// hold e.mu.
func (e *SherpaEngine) ensureLoaded(opts TranscribeOptions) error {
	key := opts.Model + "|" + opts.Precision + "|" + opts.Language
	if e.recognizer != nil && e.loadedKey == key {
		return nil
	}

	modelDir := filepath.Join(e.modelRoot, opts.Model)
	encoder, err := findModelFile(modelDir, "encoder", opts.Precision)
	if err != nil {
		return err
	}
	decoder, err := findModelFile(modelDir, "decoder", opts.Precision)
	if err != nil {
		return err
	}
	tokens := filepath.Join(modelDir, "tokens.txt")
	if _, err := os.Stat(tokens); err != nil {
		return fmt.Errorf("tokens file not found in %s", modelDir)
	}

	beam := opts.BeamWidth
	if beam <= 0 {
		beam = DefaultBeamWidth
	}

	config := sherpa.OfflineRecognizerConfig{
		FeatConfig: sherpa.FeatureConfig{
			SampleRate: engineSampleRate,
			FeatureDim: 80,
		},
		ModelConfig: sherpa.OfflineModelConfig{
			Whisper: sherpa.OfflineWhisperModelConfig{
				Encoder:  encoder,
				Decoder:  decoder,
				Language: opts.Language,
				Task:     "transcribe",
			},
			Tokens:     tokens,
			NumThreads: 4,
			Debug:      0,
		},
		DecodingMethod: "greedy_search",
		MaxActivePaths: beam,
	}

	e.logger.Info("loading speech model",
		zap.String("model", opts.Model),
		zap.String("precision", opts.Precision),
		zap.String("language", opts.Language))

	recognizer := sherpa.NewOfflineRecognizer(&config)
	if recognizer == nil {
		return fmt.Errorf("failed to create recognizer for model %q", opts.Model)
	}

	if e.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(e.recognizer)
	}
	e.recognizer = recognizer
	e.loadedKey = key
	return nil
}

// findModelFile resolves the encoder/decoder file for a compute precision:
// "int8" prefers the quantized variant, anything else prefers the full
// precision file, each falling back to whichever exists.
func findModelFile(dir, stem, precision string) (string, error) {
	quantized := filepath.Join(dir, stem+".int8.onnx")
	full := filepath.Join(dir, stem+".onnx")

	candidates := []string{full, quantized}
	if strings.EqualFold(precision, "int8") {
		candidates = []string{quantized, full}
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s model not found in %s", stem, dir)
}
