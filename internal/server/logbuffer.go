package server

import (
	"strings"
	"sync"
)

// DefaultLogLines is how many log lines a LogBuffer keeps
const DefaultLogLines = 1000

// LogBuffer keeps the most recent log lines in memory for GET /api/logs.
// It is an io.Writer so it can sit next to stderr in an io.MultiWriter.
type LogBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

// NewLogBuffer creates a buffer holding up to max lines
func NewLogBuffer(max int) *LogBuffer {
	if max <= 0 {
		max = DefaultLogLines
	}
	return &LogBuffer{lines: make([]string, 0, max), max: max}
}

func (lb *LogBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		lb.lines = append(lb.lines, line)
	}
	if len(lb.lines) > lb.max {
		lb.lines = append(lb.lines[:0:0], lb.lines[len(lb.lines)-lb.max:]...)
	}
	return len(p), nil
}

// Lines returns a copy of the buffered lines, oldest first
func (lb *LogBuffer) Lines() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	out := make([]string, len(lb.lines))
	copy(out, lb.lines)
	return out
}
