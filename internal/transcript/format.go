// Package transcript normalizes timestamped transcript files (SRT, WebVTT,
// Praat TextGrid and the canonical JSON list) into one segment list.
//
// Parsing is pure: no I/O, no shared state. Malformed SRT, VTT and TextGrid
// blocks are dropped rather than reported, and the number of dropped blocks
// is returned in Result.Skipped.
package transcript

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
)

// Format identifies a supported transcript file format
type Format string

const (
	FormatSRT      Format = "srt"
	FormatVTT      Format = "vtt"
	FormatTextGrid Format = "textgrid"
	FormatJSON     Format = "json"
)

// Result is the outcome of a successful parse.
type Result struct {
	Format   Format           `json:"format"`
	Segments types.Transcript `json:"segments"`
	// Skipped counts blocks that looked like cues but yielded no segment.
	Skipped  int       `json:"skipped"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// DetectFormat maps a filename to its transcript format using the
// case-insensitive extension.
func DetectFormat(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".srt":
		return FormatSRT, nil
	case ".vtt":
		return FormatVTT, nil
	case ".textgrid":
		return FormatTextGrid, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", &UnsupportedFormatError{Ext: ext}
	}
}

// Parse parses content according to the extension of filename.
func Parse(content, filename string) (*Result, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	content = prepare(content)

	var (
		segs    []types.Segment
		skipped int
	)
	switch format {
	case FormatSRT:
		segs, skipped = parseSRT(content)
	case FormatVTT:
		segs, skipped = parseVTT(content)
	case FormatTextGrid:
		segs, skipped = parseTextGrid(content)
	case FormatJSON:
		segs, err = parseJSON(content)
		if err != nil {
			return nil, err
		}
	}

	return normalize(format, segs, skipped), nil
}

// ParseTranscript is Parse without the report: it returns only the segments.
func ParseTranscript(content, filename string) (types.Transcript, error) {
	res, err := Parse(content, filename)
	if err != nil {
		return nil, err
	}
	return res.Segments, nil
}

// ParseBytes checks that data is valid UTF-8 before parsing it.
// Unsupported extensions are reported before the content is inspected.
func ParseBytes(data []byte, filename string) (*Result, error) {
	if _, err := DetectFormat(filename); err != nil {
		return nil, err
	}
	if off := invalidUTF8Offset(data); off >= 0 {
		return nil, &DecodeError{Offset: off}
	}
	return Parse(string(data), filename)
}

// ParseReader reads all of r and parses it as filename.
func ParseReader(r io.Reader, filename string) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return ParseBytes(data, filename)
}

func invalidUTF8Offset(data []byte) int {
	if utf8.Valid(data) {
		return -1
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

// prepare strips a byte order mark and folds CRLF and CR line endings to LF.
func prepare(content string) string {
	content = strings.TrimPrefix(content, "\ufeff")
	if !strings.Contains(content, "\r") {
		return content
	}
	b := bytes.ReplaceAll([]byte(content), []byte("\r\n"), []byte("\n"))
	b = bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))
	return string(b)
}
