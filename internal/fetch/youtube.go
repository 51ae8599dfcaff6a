package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"
	"go.uber.org/zap"
)

// YouTube fetches media through the YouTube extractor. It resolves
// format/quality hints against the available streams, downloads with a
// progress callback, and writes an .info.json metadata sidecar.
type YouTube struct {
	client ytdl.Client
	logger *zap.Logger
}

// NewYouTube creates a fetcher with a default extractor client.
func NewYouTube(logger *zap.Logger) *YouTube {
	return &YouTube{logger: logger}
}

// Fetch downloads the media selected by opts into destDir and returns the
// paths of every produced file.
func (f *YouTube) Fetch(ctx context.Context, url string, opts Options, destDir string, progress Progress) ([]string, error) {
	if opts.Format == "" {
		opts.Format = "mp4"
	}
	if opts.Quality == "" {
		opts.Quality = "best"
	}

	video, err := f.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve video: %w", err)
	}

	base := sanitizeFilename(video.Title)
	if base == "" {
		base = "media"
	}

	var files []string
	var chosen *ytdl.Format

	if opts.AudioOnly {
		audio, err := bestAudioFormat(video.Formats)
		if err != nil {
			return nil, err
		}
		chosen = audio

		raw := filepath.Join(destDir, base+extensionFor(audio.MimeType))
		if err := f.download(ctx, video, audio, raw, progress); err != nil {
			return nil, err
		}
		mp3 := filepath.Join(destDir, base+".mp3")
		if err := extractMP3(ctx, raw, mp3); err != nil {
			return nil, err
		}
		os.Remove(raw)
		files = append(files, mp3)
	} else {
		sel, err := resolveFormats(video.Formats, opts)
		if err != nil {
			return nil, err
		}
		chosen = sel.primary

		out := filepath.Join(destDir, base+"."+opts.Format)
		if sel.audio != nil {
			// No progressive stream satisfies the constraint: download
			// video and audio separately and mux them.
			if err := f.downloadSplit(ctx, video, sel, base, destDir, out, progress); err != nil {
				return nil, err
			}
		} else {
			out = filepath.Join(destDir, base+extensionFor(sel.primary.MimeType))
			if err := f.download(ctx, video, sel.primary, out, progress); err != nil {
				return nil, err
			}
		}
		files = append(files, out)

		if opts.ExtractAudio {
			mp3 := filepath.Join(destDir, base+".mp3")
			if err := extractMP3(ctx, out, mp3); err != nil {
				return nil, err
			}
			files = append(files, mp3)
		}
	}

	sidecarPath, err := f.writeSidecar(video, chosen, url, filepath.Join(destDir, base+".info.json"))
	if err != nil {
		return nil, err
	}
	files = append(files, sidecarPath)

	f.logger.Info("fetch finished",
		zap.String("title", video.Title),
		zap.Int("files", len(files)))
	return files, nil
}

func (f *YouTube) download(ctx context.Context, video *ytdl.Video, format *ytdl.Format, path string, progress Progress) error {
	stream, size, err := f.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer stream.Close()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := copyWithProgress(ctx, file, stream, size, progress); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to download stream: %w", err)
	}
	return nil
}

// downloadSplit fetches separate video and audio streams and muxes them
// into the requested container. Transfer progress is weighted by stream
// size across both downloads.
func (f *YouTube) downloadSplit(ctx context.Context, video *ytdl.Video, sel selection, base, destDir, out string, progress Progress) error {
	videoPart := filepath.Join(destDir, base+".fvideo"+extensionFor(sel.primary.MimeType))
	audioPart := filepath.Join(destDir, base+".faudio"+extensionFor(sel.audio.MimeType))
	defer os.Remove(videoPart)
	defer os.Remove(audioPart)

	total := sel.primary.ContentLength + sel.audio.ContentLength
	videoShare := 0.8
	if total > 0 {
		videoShare = float64(sel.primary.ContentLength) / float64(total)
	}

	scaled := func(offset, share float64) Progress {
		if progress == nil {
			return nil
		}
		return func(fraction float64) { progress(offset + fraction*share) }
	}

	if err := f.download(ctx, video, sel.primary, videoPart, scaled(0, videoShare)); err != nil {
		return err
	}
	if err := f.download(ctx, video, sel.audio, audioPart, scaled(videoShare, 1-videoShare)); err != nil {
		return err
	}
	return muxStreams(ctx, videoPart, audioPart, out)
}

func (f *YouTube) writeSidecar(video *ytdl.Video, format *ytdl.Format, url, path string) (string, error) {
	info := infoSidecar{
		Title:      video.Title,
		Duration:   video.Duration.Seconds(),
		Extractor:  "youtube",
		WebpageURL: url,
	}
	if !video.PublishDate.IsZero() {
		info.UploadDate = video.PublishDate.Format("20060102")
	}
	if format != nil {
		info.Width = format.Width
		info.Height = format.Height
		info.FPS = float64(format.FPS)
		info.VideoCodec, info.AudioCodec = parseCodecs(format.MimeType)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata sidecar: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write metadata sidecar: %w", err)
	}
	return path, nil
}

// selection is the outcome of quality resolution. audio is non-nil only
// when video and audio streams must be downloaded separately and muxed.
type selection struct {
	primary *ytdl.Format
	audio   *ytdl.Format
}

// resolveFormats applies the quality policy: "best"/"worst" pick the
// best/worst progressive stream in the requested container; a height cap
// like "720p" constrains vertical resolution while independently selecting
// best audio, falling back to best overall when the constrained
// combination is unavailable.
func resolveFormats(list ytdl.FormatList, opts Options) (selection, error) {
	formats := formatPtrs(list)
	progressive := filterFormats(formats, func(f *ytdl.Format) bool {
		return strings.HasPrefix(f.MimeType, "video/") && f.AudioChannels > 0
	})
	inContainer := filterFormats(progressive, func(f *ytdl.Format) bool {
		return strings.Contains(f.MimeType, opts.Format)
	})

	switch opts.Quality {
	case "best", "":
		if best := bestVideo(inContainer); best != nil {
			return selection{primary: best}, nil
		}
		if best := bestVideo(progressive); best != nil {
			return selection{primary: best}, nil
		}
	case "worst":
		if worst := worstVideo(inContainer); worst != nil {
			return selection{primary: worst}, nil
		}
		if worst := worstVideo(progressive); worst != nil {
			return selection{primary: worst}, nil
		}
	default:
		maxHeight, err := strconv.Atoi(strings.TrimSuffix(opts.Quality, "p"))
		if err != nil {
			return selection{}, fmt.Errorf("invalid quality %q", opts.Quality)
		}
		capped := filterFormats(inContainer, func(f *ytdl.Format) bool {
			return f.Height <= maxHeight
		})
		if best := bestVideo(capped); best != nil {
			return selection{primary: best}, nil
		}

		videoOnly := filterFormats(formats, func(f *ytdl.Format) bool {
			return strings.HasPrefix(f.MimeType, "video/") &&
				strings.Contains(f.MimeType, opts.Format) &&
				f.AudioChannels == 0 && f.Height <= maxHeight
		})
		if best := bestVideo(videoOnly); best != nil {
			audio, err := bestAudioFormat(list)
			if err == nil {
				return selection{primary: best, audio: audio}, nil
			}
		}

		// Constrained combination unavailable: best overall.
		return resolveFormats(list, Options{Format: opts.Format, Quality: "best"})
	}

	return selection{}, fmt.Errorf("no suitable stream for container %q quality %q", opts.Format, opts.Quality)
}

func bestAudioFormat(list ytdl.FormatList) (*ytdl.Format, error) {
	audio := filterFormats(formatPtrs(list), func(f *ytdl.Format) bool {
		return strings.HasPrefix(f.MimeType, "audio/")
	})
	var best *ytdl.Format
	for _, f := range audio {
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no audio streams available")
	}
	return best, nil
}

func formatPtrs(list ytdl.FormatList) []*ytdl.Format {
	out := make([]*ytdl.Format, 0, len(list))
	for i := range list {
		out = append(out, &list[i])
	}
	return out
}

func filterFormats(formats []*ytdl.Format, keep func(*ytdl.Format) bool) []*ytdl.Format {
	var out []*ytdl.Format
	for _, f := range formats {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

func bestVideo(formats []*ytdl.Format) *ytdl.Format {
	var best *ytdl.Format
	for _, f := range formats {
		if best == nil || f.Height > best.Height ||
			(f.Height == best.Height && f.Bitrate > best.Bitrate) {
			best = f
		}
	}
	return best
}

func worstVideo(formats []*ytdl.Format) *ytdl.Format {
	var worst *ytdl.Format
	for _, f := range formats {
		if worst == nil || f.Height < worst.Height ||
			(f.Height == worst.Height && f.Bitrate < worst.Bitrate) {
			worst = f
		}
	}
	return worst
}

// copyWithProgress copies the stream while reporting fractional completion.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress Progress) error {
	buf := make([]byte, 32*1024)
	var written int64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		nr, err := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
				if progress != nil && total > 0 {
					progress(float64(written) / float64(total))
				}
			}
			if ew != nil {
				return ew
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
	}
	return nil
}

// parseCodecs extracts codec names from a MIME type such as
// `video/mp4; codecs="avc1.640028, mp4a.40.2"`.
func parseCodecs(mimeType string) (videoCodec, audioCodec string) {
	_, params, found := strings.Cut(mimeType, "codecs=")
	if !found {
		return "", ""
	}
	params = strings.Trim(params, `" `)
	parts := strings.Split(params, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if strings.HasPrefix(mimeType, "audio/") {
		return "", parts[0]
	}
	videoCodec = parts[0]
	if len(parts) > 1 {
		audioCodec = parts[1]
	}
	return videoCodec, audioCodec
}

func extensionFor(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/") && strings.Contains(mimeType, "mp4"):
		return ".m4a"
	case strings.Contains(mimeType, "mp4"):
		return ".mp4"
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	default:
		return ".bin"
	}
}

// sanitizeFilename replaces characters that are unsafe in filenames or
// object keys.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return strings.Trim(replacer.Replace(name), "._ ")
}
