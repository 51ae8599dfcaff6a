package asr

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeWav produces a minimal PCM WAV file for parser tests.
func writeWav(t *testing.T, path string, samples []int16, channels, sampleRate int) {
	t.Helper()

	var data bytes.Buffer
	for _, s := range samples {
		binary.Write(&data, binary.LittleEndian, s)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
}

func TestReadWavSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.wav")
	writeWav(t, path, []int16{0, 16384, -16384, 32767}, 1, 16000)

	samples, rate, err := readWavSamples(path)
	if err != nil {
		t.Fatalf("readWavSamples: %v", err)
	}
	if rate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", rate)
	}
	if len(samples) != 4 {
		t.Fatalf("got %d samples, want 4", len(samples))
	}
	if samples[0] != 0 {
		t.Fatalf("samples[0] = %f, want 0", samples[0])
	}
	if math.Abs(float64(samples[1])-0.5) > 1e-4 {
		t.Fatalf("samples[1] = %f, want ~0.5", samples[1])
	}
	if math.Abs(float64(samples[2])+0.5) > 1e-4 {
		t.Fatalf("samples[2] = %f, want ~-0.5", samples[2])
	}
}

func TestReadWavSamplesRejectsStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeWav(t, path, []int16{0, 0, 0, 0}, 2, 16000)

	if _, _, err := readWavSamples(path); err == nil {
		t.Fatal("expected error for stereo input")
	}
}

func TestReadWavSamplesRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := readWavSamples(path); err == nil {
		t.Fatal("expected error for non-WAV input")
	}
}
