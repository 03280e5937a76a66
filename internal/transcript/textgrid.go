package transcript

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
)

// intervalRe matches one labeled interval of a long-format TextGrid. Tiers are
// not tracked, so intervals of every interval tier come out flattened in file
// order. Praat escapes a quote inside text as "".
var intervalRe = regexp.MustCompile(
	`xmin\s*=\s*([\d.]+)\s*\n\s*xmax\s*=\s*([\d.]+)\s*\n\s*text\s*=\s*"((?:[^"]|"")*)"`,
)

func parseTextGrid(content string) ([]types.Segment, int) {
	var (
		segs    []types.Segment
		skipped int
	)

	for _, m := range intervalRe.FindAllStringSubmatch(content, -1) {
		text := strings.TrimSpace(strings.ReplaceAll(m[3], `""`, `"`))
		if text == "" {
			// silence
			continue
		}

		xmin, err1 := strconv.ParseFloat(m[1], 64)
		xmax, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			skipped++
			continue
		}

		segs = append(segs, types.Segment{
			Text:      text,
			StartTime: xmin,
			EndTime:   xmax,
		})
	}

	return segs, skipped
}
