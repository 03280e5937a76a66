package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/speech-align-viz/internal/audio"
	"github.com/codebuildervaibhav/speech-align-viz/internal/figure"
	"github.com/codebuildervaibhav/speech-align-viz/internal/storage"
	"github.com/codebuildervaibhav/speech-align-viz/internal/transcript"
	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
)

// ErrQueueFull is returned when no more jobs can be buffered
var ErrQueueFull = errors.New("render queue is full")

// ErrStopped is returned for jobs enqueued after Stop
var ErrStopped = errors.New("render queue is stopped")

// WorkerPool renders alignment figures in the background
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	cache       *storage.Cache
	db          *storage.MetadataDB
	opts        figure.Options

	mu      sync.RWMutex
	jobs    map[string]*Job
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. Rendered images are written to
// the cache; db may be nil.
func NewWorkerPool(
	workerCount int,
	cache *storage.Cache,
	db *storage.MetadataDB,
	opts figure.Options,
) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobQueue:    make(chan *Job, 100), // Buffer of 100 jobs
		workerCount: workerCount,
		cache:       cache,
		db:          db,
		opts:        opts,
		jobs:        make(map[string]*Job),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	log.Infof("Starting render pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop cancels running renders, drains the queue and waits for workers
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.cancel()
	wp.wg.Wait()
}

// EnqueueJob adds a job to the queue
func (wp *WorkerPool) EnqueueJob(job *Job) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		return ErrStopped
	}

	job.Status = types.StatusQueued
	job.CreatedAt = time.Now()

	select {
	case wp.jobQueue <- job:
	default:
		return ErrQueueFull
	}
	wp.jobs[job.ID] = job
	wp.persist(job)

	log.WithFields(log.Fields{
		"job":        job.ID,
		"audio":      job.AudioPath,
		"transcript": job.TranscriptPath,
	}).Info("Render job enqueued")
	return nil
}

// Get returns a snapshot of the job with the given id
func (wp *WorkerPool) Get(id string) (types.RenderRecord, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	job, ok := wp.jobs[id]
	if !ok {
		return types.RenderRecord{}, false
	}
	return job.Record(), true
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log.Debugf("Worker %d started", id)

	for job := range wp.jobQueue {
		// Panic recovery
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("Worker %d: PANIC processing job %s: %v\n%s",
						id, job.ID, r, string(debug.Stack()))
					wp.finish(job, "", fmt.Errorf("worker panic: %v", r))
				}
			}()

			wp.processJob(id, job)
		}()
	}
}

// processJob converts the audio, parses the transcript and renders the PNG
func (wp *WorkerPool) processJob(workerID int, job *Job) {
	logger := log.WithFields(log.Fields{"worker": workerID, "job": job.ID})
	logger.Info("Processing render job")
	wp.setStatus(job, types.StatusProcessing)

	// Step 1: Make sure we have PCM WAV
	wavPath, cleanup, err := audio.EnsureWav(wp.ctx, job.AudioPath, wp.cache.Dir())
	if err != nil {
		logger.WithError(err).Warn("Audio conversion failed")
		wp.finish(job, "", fmt.Errorf("audio conversion failed: %w", err))
		return
	}
	defer cleanup()

	wave, err := audio.LoadWaveform(wavPath)
	if err != nil {
		wp.finish(job, "", fmt.Errorf("failed to load audio: %w", err))
		return
	}

	// Step 2: Parse transcript
	f, err := os.Open(job.TranscriptPath)
	if err != nil {
		wp.finish(job, "", fmt.Errorf("failed to open transcript: %w", err))
		return
	}
	res, err := transcript.ParseReader(f, filepath.Base(job.TranscriptPath))
	f.Close()
	if err != nil {
		wp.finish(job, "", fmt.Errorf("failed to parse transcript: %w", err))
		return
	}

	// Step 3: Render into the cache
	opts := wp.opts
	opts.Title = job.Title
	if opts.Title == "" {
		opts.Title = "Audio Alignment: " + filepath.Base(job.AudioPath)
	}
	output := job.ID + ".png"
	outPath, err := wp.cache.Path(output)
	if err != nil {
		wp.finish(job, "", err)
		return
	}
	if err := figure.RenderFile(outPath, wave, res.Segments, opts); err != nil {
		wp.finish(job, "", fmt.Errorf("render failed: %w", err))
		return
	}

	wp.finish(job, output, nil)
	logger.WithFields(log.Fields{
		"segments": len(res.Segments),
		"output":   output,
	}).Info("Render job completed")
}

func (wp *WorkerPool) setStatus(job *Job, status string) {
	wp.mu.Lock()
	job.Status = status
	wp.mu.Unlock()
	wp.persist(job)
}

func (wp *WorkerPool) finish(job *Job, output string, err error) {
	wp.mu.Lock()
	job.Output = output
	job.Error = err
	if err != nil {
		job.Status = types.StatusFailed
	} else {
		job.Status = types.StatusCompleted
	}
	wp.mu.Unlock()

	if err != nil {
		log.WithError(err).WithField("job", job.ID).Warn("Render job failed")
	}
	wp.persist(job)
}

// persist mirrors the job into the metadata database when one is configured
func (wp *WorkerPool) persist(job *Job) {
	if wp.db == nil {
		return
	}
	if err := wp.db.SaveRender(job.Record()); err != nil {
		log.WithError(err).WithField("job", job.ID).Warn("Database save failed")
	}
}
