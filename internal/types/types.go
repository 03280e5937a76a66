package types

import "time"

// Render job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceUpload = "upload"
	SourceLocal  = "local"
)

// Segment is one timestamped unit of transcript text.
// Times are in seconds.
type Segment struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// Duration returns the length of the segment in seconds.
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Transcript is an ordered sequence of segments in source order.
type Transcript []Segment

// End returns the largest end time in the transcript.
func (t Transcript) End() float64 {
	var end float64
	for _, s := range t {
		if s.EndTime > end {
			end = s.EndTime
		}
	}
	return end
}

// TranscriptRecord describes a parsed transcript stored in the metadata index
type TranscriptRecord struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Format       string    `json:"format"`
	Source       string    `json:"source"`
	SegmentCount int       `json:"segment_count"`
	SkippedCount int       `json:"skipped_count"`
	WarningCount int       `json:"warning_count"`
	Duration     float64   `json:"duration"`
	CreatedAt    time.Time `json:"created_at"`
}

// RenderRecord describes a figure render job
type RenderRecord struct {
	ID         string    `json:"id"`
	Audio      string    `json:"audio"`
	Transcript string    `json:"transcript"`
	Output     string    `json:"output,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
