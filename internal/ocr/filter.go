package ocr

import (
	"regexp"
	"strconv"
	"strings"
)

// Default plausibility window for odometer readings, in kilometers.
const (
	DefaultOdometerMin = 500
	DefaultOdometerMax = 500000
)

var (
	reGrouping = regexp.MustCompile(`(\d)[.,](\d)`)
	reDigitRun = regexp.MustCompile(`\d+`)
)

// BestCandidate post-filters raw OCR text down to the most plausible
// odometer reading. Grouping punctuation between digits is stripped first so
// "10.000" stays one number instead of splitting into 10 and 000, then every
// maximal digit run outside [min, max] is discarded. Dashboards photograph
// with small noise numbers on them (clock, speed), so among the survivors
// the largest wins. Returns 0 when nothing survives.
func BestCandidate(raw string, min, max int) int {
	if min <= 0 && max <= 0 {
		min, max = DefaultOdometerMin, DefaultOdometerMax
	}

	s := strings.ToLower(raw)
	// the pattern only joins one separator at a time; run to fixpoint for
	// values like "1.234.567"
	for {
		joined := reGrouping.ReplaceAllString(s, "$1$2")
		if joined == s {
			break
		}
		s = joined
	}

	best := 0
	for _, run := range reDigitRun.FindAllString(s, -1) {
		n, err := strconv.Atoi(run)
		if err != nil {
			// longer than an int; cannot be a sane odometer value
			continue
		}
		if n < min || n > max {
			continue
		}
		if n > best {
			best = n
		}
	}
	return best
}
