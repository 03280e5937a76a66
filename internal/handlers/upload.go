package handlers

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/speech-align-viz/internal/audio"
	"github.com/codebuildervaibhav/speech-align-viz/internal/storage"
	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
)

// AudioHandler serves audio from the upload cache and from local paths
type AudioHandler struct {
	cache *storage.Cache
}

// NewAudioHandler creates a new audio handler
func NewAudioHandler(cache *storage.Cache) *AudioHandler {
	return &AudioHandler{cache: cache}
}

// Upload stores an uploaded audio file in the cache
func (h *AudioHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_NO_FILE", "No file uploaded")
	}

	if !audio.ValidateFormat(file.Filename) {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_FORMAT",
			"Unsupported audio format. Allowed: "+strings.Join(audio.SupportedFormats(), ", "))
	}

	src, err := file.Open()
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_NO_FILE", "Uploaded file is unreadable")
	}
	defer src.Close()

	name, size, err := h.cache.Save(file.Filename, src)
	if err != nil {
		log.WithError(err).WithField("file", file.Filename).Error("Failed to save uploaded audio")
		return errorJSON(c, fiber.StatusInternalServerError, "ERR_SAVE_FAILED", "Failed to save file")
	}

	log.WithFields(log.Fields{"file": name, "bytes": size}).Info("Audio uploaded")
	return c.JSON(fiber.Map{
		"url":      "/api/files/" + url.PathEscape(name),
		"filename": name,
		"source":   types.SourceUpload,
	})
}

// Local registers a local audio path for streaming
func (h *AudioHandler) Local(c *fiber.Ctx) error {
	path, err := readPathRequest(c)
	if path == "" {
		return err
	}
	return c.JSON(fiber.Map{
		"url":      "/api/stream_local?path=" + url.QueryEscape(path),
		"filename": filepath.Base(path),
		"source":   types.SourceLocal,
	})
}

// ServeFile serves a file from the cache
func (h *AudioHandler) ServeFile(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("filename"))
	if err != nil {
		return notFound(c)
	}
	path, err := h.cache.Path(name)
	if err != nil || !isFile(path) {
		return notFound(c)
	}
	return sendAudio(c, path)
}

// StreamLocal serves a file from an arbitrary local path
func (h *AudioHandler) StreamLocal(c *fiber.Ctx) error {
	path := c.Query("path")
	if path == "" || !isFile(path) {
		return notFound(c)
	}
	return sendAudio(c, path)
}

func sendAudio(c *fiber.Ctx, path string) error {
	if err := c.SendFile(path); err != nil {
		return err
	}
	if audio.ValidateFormat(path) {
		c.Set(fiber.HeaderContentType, audio.ContentType(path))
	}
	return nil
}
