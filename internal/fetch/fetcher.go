package fetch

import "context"

// Options controls format and quality resolution for one fetch.
type Options struct {
	// Format is the requested container, e.g. "mp4" or "webm".
	Format string
	// Quality is "best", "worst", or a height cap such as "720p".
	Quality string
	// AudioOnly selects the best audio stream and transcodes it to mp3.
	AudioOnly bool
	// ExtractAudio additionally produces an mp3 sidecar next to the video.
	ExtractAudio bool
}

// Progress receives fractional transfer completion in [0, 1].
type Progress func(fraction float64)

// Fetcher resolves a URL to media files on disk. Implementations write
// every produced file (media, sidecars) into destDir and return their
// paths; a metadata sidecar uses the .info.json suffix.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts Options, destDir string, progress Progress) ([]string, error)
}

// MediaResult is the canonical output of the acquisition stage. VideoID is
// generated once per acquisition and namespaces every artifact published
// for it. Descriptive fields come from the metadata sidecar when present;
// technical file attributes are derived from the primary file itself.
type MediaResult struct {
	VideoID    string  `json:"video_id"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	Format     string  `json:"format"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
	AudioCodec string  `json:"audio_codec,omitempty"`
	VideoCodec string  `json:"video_codec,omitempty"`
	FileSize   int64   `json:"file_size,omitempty"`
	UploadDate string  `json:"upload_date,omitempty"`
	Extractor  string  `json:"extractor,omitempty"`
	WebpageURL string  `json:"webpage_url,omitempty"`
}
