package asr

import (
	"math"
	"testing"
)

const testSampleRate = 16000

// tone fills seconds of audio at the given amplitude.
func tone(seconds, amplitude float64) []float32 {
	n := int(seconds * testSampleRate)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(float64(i)*0.2))
	}
	return out
}

func concat(parts ...[]float32) []float32 {
	var out []float32
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestDetectSpeechBlocksSplitsOnSilence(t *testing.T) {
	samples := concat(
		tone(1.0, 0.5), // speech
		tone(1.0, 0.0), // silence
		tone(1.0, 0.5), // speech
	)

	blocks := detectSpeechBlocks(samples, testSampleRate, defaultVADConfig())
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2: %+v", len(blocks), blocks)
	}

	if blocks[0].Start > 0.05 {
		t.Fatalf("first block starts at %f, want ~0", blocks[0].Start)
	}
	if math.Abs(blocks[0].End-1.0) > 0.1 {
		t.Fatalf("first block ends at %f, want ~1.0", blocks[0].End)
	}
	if math.Abs(blocks[1].Start-2.0) > 0.1 {
		t.Fatalf("second block starts at %f, want ~2.0", blocks[1].Start)
	}
	if math.Abs(blocks[1].End-3.0) > 0.1 {
		t.Fatalf("second block ends at %f, want ~3.0", blocks[1].End)
	}
}

func TestDetectSpeechBlocksKeepsShortSilence(t *testing.T) {
	// A 200ms gap is below MinSilence and must not split the block.
	samples := concat(
		tone(1.0, 0.5),
		tone(0.2, 0.0),
		tone(1.0, 0.5),
	)

	blocks := detectSpeechBlocks(samples, testSampleRate, defaultVADConfig())
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1: %+v", len(blocks), blocks)
	}
}

func TestDetectSpeechBlocksDropsBlips(t *testing.T) {
	samples := concat(
		tone(0.05, 0.5), // below MinSpeech
		tone(1.0, 0.0),
		tone(1.0, 0.5),
	)

	blocks := detectSpeechBlocks(samples, testSampleRate, defaultVADConfig())
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1: %+v", len(blocks), blocks)
	}
	if blocks[0].Start < 0.9 {
		t.Fatalf("kept block starts at %f, expected the later speech span", blocks[0].Start)
	}
}

func TestDetectSpeechBlocksEmptyInput(t *testing.T) {
	if blocks := detectSpeechBlocks(nil, testSampleRate, defaultVADConfig()); blocks != nil {
		t.Fatalf("got %+v, want nil", blocks)
	}
}

func TestSplitLongBlocks(t *testing.T) {
	blocks := splitLongBlocks([]SpeechBlock{{Start: 0, End: 60}}, 28)
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3: %+v", len(blocks), blocks)
	}
	for i, b := range blocks {
		if b.End-b.Start > 28 {
			t.Fatalf("block %d exceeds max duration: %+v", i, b)
		}
	}
	if blocks[0].Start != 0 || blocks[2].End != 60 {
		t.Fatalf("split lost coverage: %+v", blocks)
	}
	// Blocks must stay contiguous.
	for i := 1; i < len(blocks); i++ {
		if blocks[i].Start != blocks[i-1].End {
			t.Fatalf("gap between blocks %d and %d: %+v", i-1, i, blocks)
		}
	}
}

func TestRMS(t *testing.T) {
	if got := rms(nil); got != 0 {
		t.Fatalf("rms(nil) = %f", got)
	}
	if got := rms([]float32{0.5, -0.5, 0.5, -0.5}); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("rms = %f, want 0.5", got)
	}
}
