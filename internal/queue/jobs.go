package queue

import (
	"time"

	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
)

// Job represents a figure render job
type Job struct {
	ID             string
	AudioPath      string
	TranscriptPath string
	// Title defaults to "Audio Alignment: <audio file name>"
	Title     string
	Status    string
	Error     error
	Output    string
	CreatedAt time.Time
}

// NewJob creates a new job with default values
func NewJob(id, audioPath, transcriptPath string) *Job {
	return &Job{
		ID:             id,
		AudioPath:      audioPath,
		TranscriptPath: transcriptPath,
		Status:         types.StatusQueued,
		CreatedAt:      time.Now(),
	}
}

// Record snapshots the job for storage and API responses
func (j *Job) Record() types.RenderRecord {
	rec := types.RenderRecord{
		ID:         j.ID,
		Audio:      j.AudioPath,
		Transcript: j.TranscriptPath,
		Output:     j.Output,
		Status:     j.Status,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  time.Now(),
	}
	if j.Error != nil {
		rec.Error = j.Error.Error()
	}
	return rec
}
