package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"scriba/internal/asr"
	"scriba/internal/fetch"
	"scriba/internal/publish"
	"scriba/internal/task"
)

// Transcriber is the speech-to-text stage as the coordinator sees it.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath, language, model, precision string, progress func(float64)) (*asr.Transcription, error)
}

// Publisher is the artifact publishing stage as the coordinator sees it.
type Publisher interface {
	PublishMedia(ctx context.Context, media *fetch.MediaResult, primary string, auxiliary []string) (*publish.MediaUpload, error)
	PublishTranscription(ctx context.Context, transcriptionID string, tr *asr.Transcription) (*publish.TranscriptionUpload, error)
}

// MediaStore resolves previously published media when a transcription
// references a video id instead of a URL.
type MediaStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	DownloadFile(ctx context.Context, key, path string) error
}

// DownloadSpec describes one media download job.
type DownloadSpec struct {
	URL     string
	Options fetch.Options
}

// TranscriptionSpec describes one transcription job. When both VideoID
// and URL are set the reference wins and the URL is ignored.
type TranscriptionSpec struct {
	VideoID      string
	URL          string
	Language     string
	Model        string
	Precision    string
	Options      fetch.Options
	PersistMedia bool
}

// Job is one queued unit of work. Exactly one spec field is set.
type Job struct {
	TaskID        string
	Download      *DownloadSpec
	Transcription *TranscriptionSpec
}

// TranscriptionResult is the terminal payload of a transcription task.
// Media is set only when the job acquired from a URL and persisted it.
type TranscriptionResult struct {
	publish.TranscriptionUpload
	Text     string               `json:"text"`
	Segments []asr.Segment        `json:"segments"`
	Media    *publish.MediaUpload `json:"media,omitempty"`
}

// Progress checkpoints. Download jobs spend [0, 0.7] transferring and hold
// 0.7 through publishing; transcription jobs walk the fixed milestones
// below. Visible progress reaches 1.0 only on completion.
const (
	downloadFetchCeil = 0.7

	transcriptionEnter   = 0.1
	transcriptionAcqCeil = 0.3
	transcriptionASRFlr  = 0.4
	transcriptionASRCeil = 0.9
)

// Coordinator owns the job queue and the worker pool. It is the only
// writer of terminal task states: a task completes with a result or fails
// with an error, never both, and progress becomes 1.0 only on completion.
type Coordinator struct {
	registry    *task.Registry
	fetcher     fetch.Fetcher
	transcriber Transcriber
	publisher   Publisher
	media       MediaStore
	workDir     string
	logger      *zap.Logger

	jobs   chan Job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Options wires the coordinator's collaborators and sizing.
type Options struct {
	Registry    *task.Registry
	Fetcher     fetch.Fetcher
	Transcriber Transcriber
	Publisher   Publisher
	Media       MediaStore
	WorkDir     string
	QueueSize   int
	Logger      *zap.Logger
}

// New creates a stopped coordinator. Call Start to launch the pool.
func New(opts Options) *Coordinator {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		registry:    opts.Registry,
		fetcher:     opts.Fetcher,
		transcriber: opts.Transcriber,
		publisher:   opts.Publisher,
		media:       opts.Media,
		workDir:     opts.WorkDir,
		logger:      opts.Logger,
		jobs:        make(chan Job, opts.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches workers goroutines draining the job queue.
func (c *Coordinator) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	c.logger.Info("pipeline started", zap.Int("workers", workers))
}

// Stop drains queued jobs and waits for in-flight ones. If ctx expires
// first, running jobs are cancelled and their tasks fail.
func (c *Coordinator) Stop(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.jobs)
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		c.cancel()
		<-done
	}
	c.cancel()
	c.logger.Info("pipeline stopped")
}

// SubmitDownload registers a download task and queues its job.
func (c *Coordinator) SubmitDownload(spec DownloadSpec) (string, error) {
	id := c.registry.Create(task.KindDownload)
	if err := c.submit(Job{TaskID: id, Download: &spec}); err != nil {
		c.registry.Delete(id)
		return "", err
	}
	return id, nil
}

// SubmitTranscription registers a transcription task and queues its job.
func (c *Coordinator) SubmitTranscription(spec TranscriptionSpec) (string, error) {
	id := c.registry.Create(task.KindTranscription)
	if err := c.submit(Job{TaskID: id, Transcription: &spec}); err != nil {
		c.registry.Delete(id)
		return "", err
	}
	return id, nil
}

func (c *Coordinator) submit(j Job) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("pipeline is shut down")
	}
	select {
	case c.jobs <- j:
		return nil
	default:
		return errors.New("job queue is full")
	}
}

func (c *Coordinator) worker() {
	defer c.wg.Done()
	for j := range c.jobs {
		c.process(j)
	}
}

// process runs one job to a terminal state. Every exit path, including a
// panic in a stage, lands the task in completed or failed.
func (c *Coordinator) process(j Job) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("job panicked",
				zap.String("task_id", j.TaskID), zap.Any("panic", r))
			c.fail(j.TaskID, task.NewError(task.CodeUnexpected,
				fmt.Sprintf("job panicked: %v", r), nil))
		}
	}()

	enter := 0.0
	if j.Transcription != nil {
		enter = transcriptionEnter
	}
	c.setState(j.TaskID, task.StatusProcessing, enter)

	scratch, err := os.MkdirTemp(c.workDir, "job-")
	if err != nil {
		c.fail(j.TaskID, task.NewError(task.CodeUnexpected,
			"failed to create scratch directory", err))
		return
	}
	defer os.RemoveAll(scratch)

	var result any
	switch {
	case j.Download != nil:
		result, err = c.runDownload(c.ctx, j.TaskID, scratch, j.Download)
	case j.Transcription != nil:
		result, err = c.runTranscription(c.ctx, j.TaskID, scratch, j.Transcription)
	default:
		err = task.NewError(task.CodeUnexpected, "job has no spec", nil)
	}

	if err != nil {
		c.fail(j.TaskID, task.AsError(err))
		return
	}
	c.complete(j.TaskID, result)
}

func (c *Coordinator) runDownload(ctx context.Context, taskID, scratch string, spec *DownloadSpec) (any, error) {
	media, primary, auxiliary, err := fetch.Acquire(ctx, c.fetcher, spec.URL, spec.Options,
		scratch, c.progressSink(taskID, 0.0, downloadFetchCeil))
	if err != nil {
		return nil, err
	}
	c.setProgress(taskID, downloadFetchCeil)

	upload, err := c.publisher.PublishMedia(ctx, media, primary, auxiliary)
	if err != nil {
		return nil, err
	}

	c.logger.Info("download job finished",
		zap.String("task_id", taskID),
		zap.String("video_id", media.VideoID))
	return upload, nil
}

func (c *Coordinator) runTranscription(ctx context.Context, taskID, scratch string, spec *TranscriptionSpec) (any, error) {
	result := &TranscriptionResult{}

	var mediaPath string
	if spec.VideoID != "" {
		path, err := c.fetchReferencedMedia(ctx, spec.VideoID, scratch)
		if err != nil {
			return nil, err
		}
		mediaPath = path
	} else {
		media, primary, auxiliary, err := fetch.Acquire(ctx, c.fetcher, spec.URL, spec.Options,
			scratch, c.progressSink(taskID, transcriptionEnter, transcriptionAcqCeil))
		if err != nil {
			return nil, err
		}
		mediaPath = primary

		if spec.PersistMedia {
			upload, err := c.publisher.PublishMedia(ctx, media, primary, auxiliary)
			if err != nil {
				return nil, err
			}
			result.Media = upload
		}
	}
	c.setProgress(taskID, transcriptionAcqCeil)

	tr, err := c.transcriber.Transcribe(ctx, mediaPath, spec.Language, spec.Model, spec.Precision,
		c.progressSink(taskID, transcriptionASRFlr, transcriptionASRCeil))
	if err != nil {
		return nil, err
	}
	c.setProgress(taskID, transcriptionASRCeil)

	upload, err := c.publisher.PublishTranscription(ctx, taskID, tr)
	if err != nil {
		return nil, err
	}

	result.TranscriptionUpload = *upload
	result.Text = tr.Text
	result.Segments = tr.Segments

	c.logger.Info("transcription job finished",
		zap.String("task_id", taskID),
		zap.Int("segments", len(tr.Segments)))
	return result, nil
}

// fetchReferencedMedia downloads the primary media object of a previously
// published video into the scratch directory.
func (c *Coordinator) fetchReferencedMedia(ctx context.Context, videoID, scratch string) (string, error) {
	prefix := publish.MediaNamespace(videoID) + "/"
	keys, err := c.media.List(ctx, prefix)
	if err != nil {
		return "", task.NewError(task.CodeStorage, "failed to list stored media", err)
	}

	sort.Strings(keys)
	var mediaKey string
	for _, key := range keys {
		if fetch.IsMediaKey(key) {
			mediaKey = key
			break
		}
	}
	if mediaKey == "" {
		return "", task.NewError(task.CodeNotFound,
			fmt.Sprintf("no media found for video id %q", videoID), nil)
	}

	path := filepath.Join(scratch, filepath.Base(mediaKey))
	if err := c.media.DownloadFile(ctx, mediaKey, path); err != nil {
		return "", task.NewError(task.CodeStorage, "failed to download stored media", err)
	}
	return path, nil
}

// progressSink maps a stage-relative fraction in [0, 1] onto the absolute
// [floor, ceil] range of the task. The mapped value only ever rises: retry
// attempts inside a stage replay the transfer from zero, and task progress
// must stay monotone while processing.
func (c *Coordinator) progressSink(taskID string, floor, ceil float64) func(float64) {
	high := -1.0
	return func(f float64) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		p := floor + (ceil-floor)*f
		if p <= high {
			return
		}
		high = p
		c.setProgress(taskID, p)
	}
}

func (c *Coordinator) setProgress(taskID string, p float64) {
	c.registry.Update(taskID, task.Update{Progress: &p})
}

func (c *Coordinator) setState(taskID string, s task.Status, p float64) {
	c.registry.Update(taskID, task.Update{Status: &s, Progress: &p})
}

func (c *Coordinator) complete(taskID string, result any) {
	s := task.StatusCompleted
	p := 1.0
	c.registry.Update(taskID, task.Update{Status: &s, Progress: &p, Result: result})
}

func (c *Coordinator) fail(taskID string, err *task.Error) {
	s := task.StatusFailed
	c.registry.Update(taskID, task.Update{Status: &s, Error: err})
	c.logger.Warn("job failed",
		zap.String("task_id", taskID),
		zap.String("code", err.Code),
		zap.String("message", err.Message))
}
