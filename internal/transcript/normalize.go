package transcript

import (
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
)

// WarningKind classifies a suspicious but accepted segment.
type WarningKind string

const (
	WarnEndBeforeStart WarningKind = "end_before_start"
	WarnNegativeStart  WarningKind = "negative_start"
	WarnOverlap        WarningKind = "overlap"
	WarnOutOfOrder     WarningKind = "out_of_order"
)

// Warning points at a segment by its index in the output transcript.
type Warning struct {
	Index   int         `json:"index"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("segment %d: %s", w.Index, w.Message)
}

// normalize drops segments without displayable text and attaches timing
// warnings. Order is preserved.
func normalize(format Format, segs []types.Segment, skipped int) *Result {
	out := make(types.Transcript, 0, len(segs))
	for _, s := range segs {
		if strings.TrimSpace(s.Text) == "" {
			skipped++
			continue
		}
		out = append(out, s)
	}

	return &Result{
		Format:   format,
		Segments: out,
		Skipped:  skipped,
		Warnings: Validate(out),
	}
}

// Validate reports timing problems in t. It never modifies or rejects
// segments: renderers are expected to cope with overlapping or inverted
// spans.
func Validate(t types.Transcript) []Warning {
	var warnings []Warning
	for i, s := range t {
		if s.StartTime < 0 {
			warnings = append(warnings, Warning{
				Index:   i,
				Kind:    WarnNegativeStart,
				Message: fmt.Sprintf("start time %.3fs is negative", s.StartTime),
			})
		}
		if s.EndTime < s.StartTime {
			warnings = append(warnings, Warning{
				Index:   i,
				Kind:    WarnEndBeforeStart,
				Message: fmt.Sprintf("end time %.3fs is before start time %.3fs", s.EndTime, s.StartTime),
			})
		}
		if i == 0 {
			continue
		}
		prev := t[i-1]
		switch {
		case s.StartTime < prev.StartTime:
			warnings = append(warnings, Warning{
				Index:   i,
				Kind:    WarnOutOfOrder,
				Message: fmt.Sprintf("starts at %.3fs, before the previous segment (%.3fs)", s.StartTime, prev.StartTime),
			})
		case s.StartTime < prev.EndTime:
			warnings = append(warnings, Warning{
				Index:   i,
				Kind:    WarnOverlap,
				Message: fmt.Sprintf("starts at %.3fs, before the previous segment ends (%.3fs)", s.StartTime, prev.EndTime),
			})
		}
	}
	return warnings
}
