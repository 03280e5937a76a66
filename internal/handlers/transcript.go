package handlers

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/speech-align-viz/internal/storage"
	"github.com/codebuildervaibhav/speech-align-viz/internal/transcript"
	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
)

// TranscriptHandler parses uploaded and local transcripts
type TranscriptHandler struct {
	cache *storage.Cache
	db    *storage.MetadataDB
}

// NewTranscriptHandler creates a new transcript handler. db may be nil.
func NewTranscriptHandler(cache *storage.Cache, db *storage.MetadataDB) *TranscriptHandler {
	return &TranscriptHandler{cache: cache, db: db}
}

// Upload parses the uploaded transcript and caches it once it parses
func (h *TranscriptHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_NO_FILE", "No file uploaded")
	}

	name, err := storage.SanitizeFilename(file.Filename)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_NAME", err.Error())
	}

	// Unsupported formats are rejected before the body is read
	if _, err := transcript.DetectFormat(name); err != nil {
		return parseFailed(c, err)
	}

	src, err := file.Open()
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_NO_FILE", "Uploaded file is unreadable")
	}
	defer src.Close()

	// The body limit bounds the upload, so it is read whole
	data, err := io.ReadAll(src)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_NO_FILE", "Uploaded file is unreadable")
	}

	res, err := transcript.ParseBytes(data, name)
	if err != nil {
		log.WithError(err).WithField("file", name).Info("Transcript upload rejected")
		return parseFailed(c, err)
	}

	if _, _, err := h.cache.Save(name, bytes.NewReader(data)); err != nil {
		log.WithError(err).WithField("file", name).Error("Failed to save uploaded transcript")
		return errorJSON(c, fiber.StatusInternalServerError, "ERR_SAVE_FAILED", "Failed to save file")
	}

	h.record(name, types.SourceUpload, res)
	return respondSegments(c, res)
}

// Local parses a transcript from a local path
func (h *TranscriptHandler) Local(c *fiber.Ctx) error {
	path, err := readPathRequest(c)
	if path == "" {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return notFound(c)
	}
	defer f.Close()

	res, err := transcript.ParseReader(f, filepath.Base(path))
	if err != nil {
		log.WithError(err).WithField("path", path).Info("Local transcript rejected")
		return parseFailed(c, err)
	}

	h.record(filepath.Base(path), types.SourceLocal, res)
	return respondSegments(c, res)
}

// List returns recently parsed transcripts
func (h *TranscriptHandler) List(c *fiber.Ctx) error {
	if h.db == nil {
		return c.JSON([]types.TranscriptRecord{})
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	records, err := h.db.ListTranscripts(limit)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "ERR_DATABASE", err.Error())
	}
	return c.JSON(records)
}

func (h *TranscriptHandler) record(filename, source string, res *transcript.Result) {
	if h.db == nil {
		return
	}
	err := h.db.SaveTranscript(types.TranscriptRecord{
		ID:           uuid.New().String(),
		Filename:     filename,
		Format:       string(res.Format),
		Source:       source,
		SegmentCount: len(res.Segments),
		SkippedCount: res.Skipped,
		WarningCount: len(res.Warnings),
		Duration:     res.Segments.End(),
	})
	if err != nil {
		log.WithError(err).Warn("Database save failed")
	}
}

// respondSegments writes the canonical segment list. The parse report goes
// into headers so the body stays a plain list.
func respondSegments(c *fiber.Ctx, res *transcript.Result) error {
	c.Set("X-Transcript-Format", string(res.Format))
	c.Set("X-Transcript-Skipped", strconv.Itoa(res.Skipped))
	c.Set("X-Transcript-Warnings", strconv.Itoa(len(res.Warnings)))
	if res.Skipped > 0 || len(res.Warnings) > 0 {
		log.WithFields(log.Fields{
			"format":   res.Format,
			"segments": len(res.Segments),
			"skipped":  res.Skipped,
			"warnings": len(res.Warnings),
		}).Info("Transcript parsed with issues")
	}
	return c.JSON(res.Segments)
}
