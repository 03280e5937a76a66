package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	log "github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/speech-align-viz/internal/transcript"
	"github.com/codebuildervaibhav/speech-align-viz/internal/watch"
)

// TranscriptUpdate is pushed to websocket clients on every parse of the
// watched file. Exactly one of Result and Error is set.
type TranscriptUpdate struct {
	*transcript.Result
	Error string `json:"error,omitempty"`
}

// WatchHandler streams a local transcript to websocket clients, re-parsing
// it whenever the file changes.
type WatchHandler struct{}

// NewWatchHandler creates a new watch handler
func NewWatchHandler() *WatchHandler {
	return &WatchHandler{}
}

// Upgrade rejects requests that are not websocket upgrades or that name a
// missing file. It runs before the websocket handler.
func (h *WatchHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if !isFile(c.Query("path")) {
		return notFound(c)
	}
	return c.Next()
}

// Handle processes WebSocket connections
func (h *WatchHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	path := filepath.Clean(c.Query("path"))
	logger := log.WithField("path", path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := watch.New(path, 0)
	if err != nil {
		logger.WithError(err).Warn("Failed to watch transcript")
		_ = c.WriteJSON(TranscriptUpdate{Error: err.Error()})
		return
	}
	changes := w.Run(ctx)

	// Clients only listen; a read error means they went away. The reader
	// must be gone before the connection is handed back to the pool.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer func() {
		c.Close()
		<-readerDone
	}()

	logger.Info("Transcript watch started")
	defer logger.Info("Transcript watch stopped")

	if err := c.WriteJSON(parseUpdate(path)); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := c.WriteJSON(parseUpdate(path)); err != nil {
				logger.WithError(err).Debug("WebSocket write error")
				return
			}
		}
	}
}

func parseUpdate(path string) TranscriptUpdate {
	f, err := os.Open(path)
	if err != nil {
		return TranscriptUpdate{Error: fmt.Sprintf("failed to read transcript: %v", err)}
	}
	defer f.Close()

	res, err := transcript.ParseReader(f, filepath.Base(path))
	if err != nil {
		return TranscriptUpdate{Error: fmt.Sprintf("failed to parse transcript: %v", err)}
	}
	return TranscriptUpdate{Result: res}
}
