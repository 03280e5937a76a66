package transcript

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// blockSep splits cue blocks on one or more blank lines. Lines holding
	// only spaces or tabs count as blank.
	blockSep = regexp.MustCompile(`\n(?:[ \t]*\n)+`)

	tagRe = regexp.MustCompile(`<[^>]+>`)
)

// splitBlocks returns the non-empty blank-line separated blocks of content,
// each split into lines.
func splitBlocks(content string) [][]string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var blocks [][]string
	for _, b := range blockSep.Split(content, -1) {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		blocks = append(blocks, strings.Split(b, "\n"))
	}
	return blocks
}

// cueText joins cue lines with single spaces and removes inline markup.
func cueText(lines []string) string {
	text := strings.Join(lines, " ")
	text = tagRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// maxClockHours keeps hours*3600 plus the rest of the clock within an int.
const maxClockHours = (math.MaxInt - 3599) / 3600

// clockSeconds converts clock groups to seconds. Empty hours count as zero.
// Hour values that would overflow make the stamp invalid.
func clockSeconds(h, m, s, ms string) (float64, bool) {
	var hours int
	if h != "" {
		v, err := strconv.Atoi(h)
		if err != nil || v > maxClockHours {
			return 0, false
		}
		hours = v
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	millis, err := strconv.Atoi(ms)
	if err != nil {
		return 0, false
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, true
}
