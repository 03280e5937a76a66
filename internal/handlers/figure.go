package handlers

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/speech-align-viz/internal/audio"
	"github.com/codebuildervaibhav/speech-align-viz/internal/queue"
	"github.com/codebuildervaibhav/speech-align-viz/internal/storage"
	"github.com/codebuildervaibhav/speech-align-viz/internal/transcript"
	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
)

// FigureRequest is the body of POST /api/figure. Audio and Transcript are
// either cache file names or local paths.
type FigureRequest struct {
	Audio      string `json:"audio"`
	Transcript string `json:"transcript"`
	Title      string `json:"title"`
}

// FigureHandler queues figure renders and reports their status
type FigureHandler struct {
	workerPool *queue.WorkerPool
	cache      *storage.Cache
	db         *storage.MetadataDB
}

// NewFigureHandler creates a new figure handler. db may be nil.
func NewFigureHandler(workerPool *queue.WorkerPool, cache *storage.Cache, db *storage.MetadataDB) *FigureHandler {
	return &FigureHandler{
		workerPool: workerPool,
		cache:      cache,
		db:         db,
	}
}

// Create enqueues a render job
func (h *FigureHandler) Create(c *fiber.Ctx) error {
	var req FigureRequest
	if err := c.BodyParser(&req); err != nil || req.Audio == "" || req.Transcript == "" {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_BODY",
			"Request body must be {\"audio\": \"...\", \"transcript\": \"...\"}")
	}

	audioPath, ok := h.resolve(req.Audio)
	if !ok {
		return notFound(c)
	}
	if !audio.ValidateFormat(audioPath) {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_FORMAT", "Unsupported audio format")
	}

	transcriptPath, ok := h.resolve(req.Transcript)
	if !ok {
		return notFound(c)
	}
	if _, err := transcript.DetectFormat(transcriptPath); err != nil {
		return parseFailed(c, err)
	}

	job := queue.NewJob(uuid.New().String(), audioPath, transcriptPath)
	job.Title = req.Title

	if err := h.workerPool.EnqueueJob(job); err != nil {
		if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrStopped) {
			return errorJSON(c, fiber.StatusServiceUnavailable, "ERR_QUEUE_FULL", err.Error())
		}
		log.WithError(err).Error("Failed to enqueue render job")
		return errorJSON(c, fiber.StatusInternalServerError, "ERR_ENQUEUE_FAILED", "Failed to enqueue job")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id": job.ID,
		"status": types.StatusQueued,
	})
}

// Status returns the state of a render job
func (h *FigureHandler) Status(c *fiber.Ctx) error {
	id := c.Params("id")

	rec, ok := h.workerPool.Get(id)
	if !ok && h.db != nil {
		stored, err := h.db.GetRender(id)
		if err == nil {
			rec, ok = *stored, true
		} else if !errors.Is(err, storage.ErrNotFound) {
			log.WithError(err).WithField("job", id).Warn("Database lookup failed")
		}
	}
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, "ERR_NOT_FOUND", "Job not found")
	}

	resp := fiber.Map{
		"job_id":     rec.ID,
		"status":     rec.Status,
		"created_at": rec.CreatedAt,
		"updated_at": rec.UpdatedAt,
	}
	if rec.Error != "" {
		resp["error"] = rec.Error
	}
	if rec.Status == types.StatusCompleted && rec.Output != "" {
		resp["url"] = "/api/files/" + url.PathEscape(rec.Output)
	}
	return c.JSON(resp)
}

// resolve maps a request reference to a file. A bare name is looked up in
// the cache first, anything else is a local path.
func (h *FigureHandler) resolve(ref string) (string, bool) {
	if !strings.ContainsAny(ref, `/\`) && h.cache.Exists(ref) {
		path, err := h.cache.Path(ref)
		return path, err == nil
	}
	if isFile(ref) {
		abs, err := filepath.Abs(ref)
		if err != nil {
			return "", false
		}
		return abs, true
	}
	return "", false
}
