package transcript

import (
	"encoding/json"
	"fmt"

	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
)

var requiredFields = []string{"text", "start_time", "end_time"}

// parseJSON accepts the canonical segment list as-is. Keys are checked for
// presence in order. Beyond presence, text must be a JSON string and both
// times JSON numbers: {"start_time": "0"} is a ValidationError rather than
// passing through, since a Segment cannot hold a string time. Extra keys
// are dropped.
func parseJSON(content string) ([]types.Segment, error) {
	var top any
	if err := json.Unmarshal([]byte(content), &top); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	items, ok := top.([]any)
	if !ok {
		return nil, &FormatError{Reason: "JSON must be a list of transcript segments"}
	}

	segs := make([]types.Segment, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &ValidationError{Index: i, Reason: "must be an object with 'text', 'start_time', 'end_time' fields"}
		}
		for _, f := range requiredFields {
			if _, ok := obj[f]; !ok {
				return nil, &ValidationError{Index: i, Field: f, Reason: "is missing"}
			}
		}

		text, ok := obj["text"].(string)
		if !ok {
			return nil, &ValidationError{Index: i, Field: "text", Reason: "must be a string"}
		}
		start, ok := obj["start_time"].(float64)
		if !ok {
			return nil, &ValidationError{Index: i, Field: "start_time", Reason: "must be a number"}
		}
		end, ok := obj["end_time"].(float64)
		if !ok {
			return nil, &ValidationError{Index: i, Field: "end_time", Reason: "must be a number"}
		}

		segs = append(segs, types.Segment{Text: text, StartTime: start, EndTime: end})
	}

	return segs, nil
}
