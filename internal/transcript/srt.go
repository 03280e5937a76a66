package transcript

import (
	"regexp"
	"strings"

	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
)

// srtTiming matches "00:00:01,000 --> 00:00:02,500". Period is accepted as the
// millisecond separator too; anything after the end stamp is ignored.
var srtTiming = regexp.MustCompile(
	`^(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})`,
)

// parseSRT reads SubRip blocks: index line, timing line, one or more text
// lines. The index line is never inspected.
func parseSRT(content string) ([]types.Segment, int) {
	var (
		segs    []types.Segment
		skipped int
	)

	for _, lines := range splitBlocks(content) {
		if len(lines) < 3 {
			skipped++
			continue
		}

		m := srtTiming.FindStringSubmatch(strings.TrimSpace(lines[1]))
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
			Text:      cueText(lines[2:]),
			StartTime: start,
			EndTime:   end,
		})
	}

	return segs, skipped
}
