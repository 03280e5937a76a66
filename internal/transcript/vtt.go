package transcript

import (
	"html"
	"regexp"
	"strings"

	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
)

// vttTiming matches "HH:MM:SS.mmm --> HH:MM:SS.mmm" and the short
// "MM:SS.mmm --> MM:SS.mmm" form. Cue settings after the end stamp are ignored.
var vttTiming = regexp.MustCompile(
	`^(?:(\d{2,}):)?(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(?:(\d{2,}):)?(\d{2}):(\d{2})\.(\d{3})`,
)

// parseVTT reads WebVTT cues. A cue may start with an identifier line; the
// timing line is the first line containing "-->" and everything after it is
// cue text.
func parseVTT(content string) ([]types.Segment, int) {
	var (
		segs    []types.Segment
		skipped int
	)

	for i, lines := range splitBlocks(content) {
		if i == 0 && strings.HasPrefix(lines[0], "WEBVTT") {
			// Header and its metadata lines. A cue glued to the header
			// without a blank line is still picked up below.
			lines = lines[1:]
			if !hasArrow(lines) {
				continue
			}
		}
		if isVTTMetaBlock(lines[0]) {
			continue
		}

		timing := -1
		for j, line := range lines {
			if strings.Contains(line, "-->") {
				timing = j
				break
			}
		}
		if timing < 0 || timing+1 >= len(lines) {
			skipped++
			continue
		}

		m := vttTiming.FindStringSubmatch(strings.TrimSpace(lines[timing]))
		if m == nil {
			skipped++
			continue
		}
		start, ok1 := clockSeconds(m[1], m[2], m[3], m[4])
		end, ok2 := clockSeconds(m[5], m[6], m[7], m[8])
		if !ok1 || !ok2 {
			skipped++
			continue
		}

		segs = append(segs, types.Segment{
			Text:      html.UnescapeString(cueText(lines[timing+1:])),
			StartTime: start,
			EndTime:   end,
		})
	}

	return segs, skipped
}

func hasArrow(lines []string) bool {
	for _, l := range lines {
		if strings.Contains(l, "-->") {
			return true
		}
	}
	return false
}

// isVTTMetaBlock reports comment, style and region blocks, which are valid
// WebVTT but carry no cue.
func isVTTMetaBlock(first string) bool {
	for _, kw := range []string{"NOTE", "STYLE", "REGION"} {
		if first == kw || strings.HasPrefix(first, kw+" ") || strings.HasPrefix(first, kw+"\t") {
			return true
		}
	}
	return false
}
