package audio

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

var supportedFormats = []string{".wav", ".mp3", ".m4a", ".ogg", ".flac", ".webm", ".aac"}

// ValidateFormat checks if the file extension is a supported audio format
func ValidateFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// SupportedFormats returns the accepted audio extensions
func SupportedFormats() []string {
	out := make([]string, len(supportedFormats))
	copy(out, supportedFormats)
	return out
}

// ContentType sniffs the container with tag.Identify and falls back to the
// extension when the stream is not recognized.
func ContentType(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return contentTypeFromExtension(path)
	}
	defer f.Close()

	if ct := identify(f); ct != "" {
		return ct
	}
	return contentTypeFromExtension(path)
}

func identify(r io.ReadSeeker) string {
	_, fileType, err := tag.Identify(r)
	if err != nil {
		return ""
	}
	switch fileType {
	case tag.FLAC:
		return "audio/flac"
	case tag.MP3:
		return "audio/mpeg"
	case tag.OGG:
		return "audio/ogg"
	case tag.M4A, tag.M4B, tag.M4P, tag.ALAC:
		return "audio/mp4"
	default:
		return ""
	}
}

func contentTypeFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return "audio/flac"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".aac":
		return "audio/aac"
	case ".webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}
