package handlers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/speech-align-viz/internal/transcript"
)

// PathRequest is the body of the local-path endpoints
type PathRequest struct {
	Path string `json:"path"`
}

// errorJSON writes the error body shared by all endpoints. detail carries the
// same message for clients that read it.
func errorJSON(c *fiber.Ctx, status int, code, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":  msg,
		"detail": msg,
		"code":   code,
	})
}

func notFound(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusNotFound, "ERR_NOT_FOUND", "File not found")
}

// parseFailed reports a transcript parse error as a 400
func parseFailed(c *fiber.Ctx, err error) error {
	code := "ERR_PARSE_FAILED"
	switch {
	case errors.Is(err, transcript.ErrUnsupportedFormat):
		code = "ERR_UNSUPPORTED_FORMAT"
	case errors.Is(err, transcript.ErrDecode):
		code = "ERR_DECODE"
	case errors.Is(err, transcript.ErrFormat):
		code = "ERR_FORMAT"
	case errors.Is(err, transcript.ErrValidation):
		code = "ERR_VALIDATION"
	}
	return errorJSON(c, fiber.StatusBadRequest, code, fmt.Sprintf("failed to parse transcript: %v", err))
}

// readPathRequest parses {"path": ...} and checks the file exists. On
// failure the error response is already written and the path is empty.
func readPathRequest(c *fiber.Ctx) (string, error) {
	var req PathRequest
	if err := c.BodyParser(&req); err != nil || req.Path == "" {
		return "", errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_BODY", "Request body must be {\"path\": \"...\"}")
	}
	if !isFile(req.Path) {
		return "", notFound(c)
	}
	return filepath.Clean(req.Path), nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
