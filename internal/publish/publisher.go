package publish

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"scriba/internal/asr"
	"scriba/internal/fetch"
	"scriba/internal/store"
	"scriba/internal/task"
)

// ObjectStore is the slice of the blob store the publisher needs. The
// store applies the upload/signing retry policy internally.
type ObjectStore interface {
	UploadFile(ctx context.Context, key, path, contentType string) error
	UploadBytes(ctx context.Context, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, key string) (string, error)
}

// Artifact is one published object: its storage key, a time-limited
// signed URL, and the kind of content it carries.
type Artifact struct {
	Key      string `json:"object_key"`
	URL      string `json:"presigned_url"`
	Kind     string `json:"kind"`
	Filename string `json:"filename,omitempty"`
}

// MediaUpload is the publishing result for one acquisition.
type MediaUpload struct {
	VideoID      string              `json:"video_id"`
	Title        string              `json:"title"`
	Duration     float64             `json:"duration"`
	Bucket       string              `json:"bucket"`
	ObjectKey    string              `json:"object_key"`
	PresignedURL string              `json:"presigned_url"`
	Files        map[string]Artifact `json:"files"`
}

// TranscriptionUpload is the publishing result for one transcription.
type TranscriptionUpload struct {
	TranscriptionID string              `json:"transcription_id"`
	Language        string              `json:"language"`
	JSONURL         string              `json:"json_url"`
	SRTURL          string              `json:"srt_url"`
	VTTURL          string              `json:"vtt_url"`
	Files           map[string]Artifact `json:"files"`
}

// Publisher uploads produced artifacts under deterministic key templates
// and resolves each to a signed URL.
type Publisher struct {
	store  ObjectStore
	bucket string
	logger *zap.Logger
}

// New creates a publisher over the given store. bucket is only echoed
// into results for clients.
func New(store ObjectStore, bucket string, logger *zap.Logger) *Publisher {
	return &Publisher{store: store, bucket: bucket, logger: logger}
}

// MediaNamespace is the key prefix grouping all artifacts of one video.
func MediaNamespace(videoID string) string {
	return "videos/" + videoID
}

// TranscriptionNamespace is the key prefix grouping one transcription's
// artifacts.
func TranscriptionNamespace(transcriptionID string) string {
	return "transcriptions/" + transcriptionID
}

// PublishMedia uploads the primary media file under its original filename,
// the metadata sidecar as metadata.json, and every other auxiliary file,
// all namespaced by the acquisition's video id. Files is keyed by stored
// filename so several artifacts of the same kind all appear in the result.
func (p *Publisher) PublishMedia(ctx context.Context, media *fetch.MediaResult, primary string, auxiliary []string) (*MediaUpload, error) {
	ns := MediaNamespace(media.VideoID)

	result := &MediaUpload{
		VideoID:  media.VideoID,
		Title:    media.Title,
		Duration: media.Duration,
		Bucket:   p.bucket,
		Files:    make(map[string]Artifact),
	}

	mediaArtifact, err := p.uploadFile(ctx, ns+"/"+filepath.Base(primary), primary, "media")
	if err != nil {
		return nil, err
	}
	result.ObjectKey = mediaArtifact.Key
	result.PresignedURL = mediaArtifact.URL
	result.Files[mediaArtifact.Filename] = mediaArtifact

	for _, file := range auxiliary {
		ext := strings.ToLower(filepath.Ext(file))

		var kind, key string
		switch {
		case ext == ".json":
			kind = "metadata"
			key = ns + "/metadata.json"
		case ext == ".mp3" || ext == ".m4a" || ext == ".wav":
			kind = "audio"
			key = ns + "/" + filepath.Base(file)
		default:
			kind = "other"
			key = ns + "/" + filepath.Base(file)
		}

		artifact, err := p.uploadFile(ctx, key, file, kind)
		if err != nil {
			return nil, err
		}
		result.Files[artifact.Filename] = artifact
	}

	p.logger.Info("published media artifacts",
		zap.String("video_id", media.VideoID),
		zap.Int("files", len(result.Files)))
	return result, nil
}

// PublishTranscription uploads the transcript in its three renditions
// under the transcription namespace.
func (p *Publisher) PublishTranscription(ctx context.Context, transcriptionID string, tr *asr.Transcription) (*TranscriptionUpload, error) {
	ns := TranscriptionNamespace(transcriptionID)

	data, err := json.Marshal(tr)
	if err != nil {
		return nil, task.NewError(task.CodeUnexpected, "failed to encode transcription", err)
	}

	result := &TranscriptionUpload{
		TranscriptionID: transcriptionID,
		Language:        tr.Language,
		Files:           make(map[string]Artifact),
	}

	renditions := []struct {
		kind string
		name string
		data []byte
	}{
		{"json", "transcription.json", data},
		{"srt", "transcription.srt", []byte(tr.SRT())},
		{"vtt", "transcription.vtt", []byte(tr.VTT())},
	}

	for _, r := range renditions {
		artifact, err := p.uploadBytes(ctx, ns+"/"+r.name, r.data, r.kind)
		if err != nil {
			return nil, err
		}
		result.Files[r.kind] = artifact
	}

	result.JSONURL = result.Files["json"].URL
	result.SRTURL = result.Files["srt"].URL
	result.VTTURL = result.Files["vtt"].URL

	p.logger.Info("published transcription artifacts",
		zap.String("transcription_id", transcriptionID))
	return result, nil
}

func (p *Publisher) uploadFile(ctx context.Context, key, path, kind string) (Artifact, error) {
	if err := p.store.UploadFile(ctx, key, path, store.ContentTypeFor(path)); err != nil {
		return Artifact{}, task.NewError(task.CodeStorage, "failed to upload artifact", err)
	}
	return p.sign(ctx, key, kind, filepath.Base(key))
}

func (p *Publisher) uploadBytes(ctx context.Context, key string, data []byte, kind string) (Artifact, error) {
	if err := p.store.UploadBytes(ctx, key, data, store.ContentTypeFor(key)); err != nil {
		return Artifact{}, task.NewError(task.CodeStorage, "failed to upload artifact", err)
	}
	return p.sign(ctx, key, kind, filepath.Base(key))
}

func (p *Publisher) sign(ctx context.Context, key, kind, filename string) (Artifact, error) {
	url, err := p.store.SignedURL(ctx, key)
	if err != nil {
		return Artifact{}, task.NewError(task.CodeStorage, "failed to sign artifact URL", err)
	}
	return Artifact{Key: key, URL: url, Kind: kind, Filename: filename}, nil
}
