package transcript

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is by callers that only care about the class
// of failure.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrDecode            = errors.New("transcript is not valid UTF-8 text")
	ErrFormat            = errors.New("malformed transcript")
	ErrValidation        = errors.New("invalid transcript segment")
)

// UnsupportedFormatError is returned when the filename extension is not one
// of the recognized transcript formats.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Ext
	if ext == "" {
		ext = "(no extension)"
	}
	return fmt.Sprintf("unsupported file format: %s", ext)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// DecodeError reports content that is not valid UTF-8.
type DecodeError struct {
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("transcript is not valid UTF-8 text (invalid byte at offset %d)", e.Offset)
}

func (e *DecodeError) Unwrap() error { return ErrDecode }

// FormatError reports a JSON transcript whose overall shape is wrong.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return e.Reason }

func (e *FormatError) Unwrap() error { return ErrFormat }

// ValidationError reports a JSON element that does not have the canonical
// segment shape. Field names the offending key.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("segment %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("segment %d: field '%s' %s", e.Index, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
