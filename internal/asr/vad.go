package asr

import "math"

// SpeechBlock is one contiguous span of detected speech, in seconds from
// the start of the audio.
type SpeechBlock struct {
	Start float64
	End   float64
}

// vadConfig tunes energy-based voice-activity filtering. Silence spans
// shorter than MinSilence stay inside a block; longer spans split blocks
// and are excluded from the transcript.
type vadConfig struct {
	SilenceThreshold float64 // RMS level below which a frame is silence
	MinSilence       float64 // seconds of silence that split blocks
	MinSpeech        float64 // minimum block length to keep, seconds
	MaxBlock         float64 // forced split above this length, seconds
	FrameSize        int     // samples per RMS frame
}

func defaultVADConfig() vadConfig {
	return vadConfig{
		SilenceThreshold: 0.01,
		MinSilence:       0.5,
		MinSpeech:        0.1,
		MaxBlock:         28.0, // Whisper decodes up to 30s windows
		FrameSize:        480,  // 30ms at 16kHz
	}
}

// detectSpeechBlocks finds speech spans by frame-level RMS energy.
func detectSpeechBlocks(samples []float32, sampleRate int, cfg vadConfig) []SpeechBlock {
	if len(samples) == 0 {
		return nil
	}

	var frames []float64
	for i := 0; i < len(samples); i += cfg.FrameSize {
		end := i + cfg.FrameSize
		if end > len(samples) {
			end = len(samples)
		}
		frames = append(frames, rms(samples[i:end]))
	}

	frameDuration := float64(cfg.FrameSize) / float64(sampleRate)
	minSilenceFrames := int(cfg.MinSilence / frameDuration)
	minSpeechFrames := int(cfg.MinSpeech / frameDuration)

	var blocks []SpeechBlock
	inSpeech := false
	speechStart := 0
	silenceCount := 0

	for i, level := range frames {
		isSilent := level < cfg.SilenceThreshold

		if !inSpeech {
			if !isSilent {
				inSpeech = true
				speechStart = i
				silenceCount = 0
			}
			continue
		}

		if isSilent {
			silenceCount++
			if silenceCount >= minSilenceFrames {
				speechEnd := i - silenceCount + 1
				if speechEnd-speechStart >= minSpeechFrames {
					blocks = append(blocks, SpeechBlock{
						Start: float64(speechStart) * frameDuration,
						End:   float64(speechEnd) * frameDuration,
					})
				}
				inSpeech = false
				silenceCount = 0
			}
		} else {
			silenceCount = 0
		}
	}

	if inSpeech {
		speechEnd := len(frames)
		if speechEnd-speechStart >= minSpeechFrames {
			blocks = append(blocks, SpeechBlock{
				Start: float64(speechStart) * frameDuration,
				End:   float64(speechEnd) * frameDuration,
			})
		}
	}

	return splitLongBlocks(blocks, cfg.MaxBlock)
}

// splitLongBlocks caps block duration so each fits one decode window.
func splitLongBlocks(blocks []SpeechBlock, maxDuration float64) []SpeechBlock {
	if maxDuration <= 0 {
		return blocks
	}

	var out []SpeechBlock
	for _, block := range blocks {
		for block.End-block.Start > maxDuration {
			out = append(out, SpeechBlock{Start: block.Start, End: block.Start + maxDuration})
			block.Start += maxDuration
		}
		out = append(out, block)
	}
	return out
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
