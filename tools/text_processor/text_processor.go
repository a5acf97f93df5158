// Package text_processor condenses long retrieved text into a bounded number
// of representative segments before it is handed to a synthesis stage.
package text_processor

import "strings"

// Reduce keeps at most maxSegments non-empty line-delimited segments of text.
// The first segment (introduction) and the last segment (conclusion) are always
// kept; the remaining budget is filled by sampling interior segments at a fixed
// stride. Deterministic, no failure mode: empty input yields empty output.
// maxSegments below 2 is clamped to 2.
func Reduce(text string, maxSegments int) string {
	if maxSegments < 2 {
		maxSegments = 2
	}

	var segments []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			segments = append(segments, line)
		}
	}
	if len(segments) == 0 {
		return ""
	}
	if len(segments) <= maxSegments {
		return strings.Join(segments, "\n\n")
	}

	kept := []string{segments[0]}

	if maxSegments > 2 {
		step := (len(segments) - 2) / (maxSegments - 2)
		if step < 1 {
			step = 1
		}
		for i := 1; i < len(segments)-1; i += step {
			if len(kept) >= maxSegments-1 {
				break
			}
			kept = append(kept, segments[i])
		}
	}

	kept = append(kept, segments[len(segments)-1])
	return strings.Join(kept, "\n\n")
}
