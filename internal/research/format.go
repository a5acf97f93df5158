package research

import (
	"fmt"
	"strings"

	"github.com/DeividiJaeger/crewai-wiki-agent/utils"
)

const (
	defaultTopic   = "Search results"
	errorTopic     = "Processing error"
	rawSnippetMax  = 200
	emptyOutputMsg = "No content produced by the pipeline"
)

// Format converts raw pipeline output into a Result. It is total: malformed
// input degrades to placeholders and any internal panic is mapped to the
// error-result shape, never propagated.
func Format(raw any) (result Result) {
	blob := utils.Str(raw)

	defer func() {
		if r := recover(); r != nil {
			result = ErrorResult(fmt.Errorf("%v", r), blob)
		}
	}()

	if strings.TrimSpace(blob) == "" {
		return Result{
			Topic:    defaultTopic,
			Findings: []Finding{{Label: "Topic 1", Description: emptyOutputMsg}},
			Summary:  emptyOutputMsg,
		}
	}

	var lines []string
	for _, l := range strings.Split(blob, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}

	topic := defaultTopic
	if idx := strings.Index(lines[0], ":"); idx >= 0 {
		if t := strings.TrimSpace(lines[0][idx+1:]); t != "" {
			topic = t
		}
	}

	var findings []Finding
	summary := ""
	for _, line := range lines[1:] {
		if isBullet(line) {
			continue
		}
		if isSummaryLine(line) {
			// last keyword match wins
			summary = summaryText(line)
			continue
		}
		findings = append(findings, Finding{
			Label:       fmt.Sprintf("Topic %d", len(findings)+1),
			Description: line,
		})
	}

	if summary == "" {
		// terminal-line fallback
		if len(findings) > 0 {
			summary = findings[len(findings)-1].Description
		} else {
			summary = utils.Truncate(blob, rawSnippetMax)
		}
	}

	if len(findings) == 0 {
		findings = []Finding{{Label: "Topic 1", Description: blob}}
	}

	return Result{Topic: topic, Findings: findings, Summary: summary}
}

// ErrorResult is the universal error-result shape: used by the formatter's
// panic path and by anyone needing a degraded result for a failed run.
func ErrorResult(err error, raw string) Result {
	msg := "no error"
	if err != nil {
		msg = err.Error()
	}
	if raw == "" {
		raw = "no output"
	}
	return Result{
		Topic:    errorTopic,
		Findings: []Finding{{Label: "Error", Description: msg}},
		Summary:  fmt.Sprintf("An error occurred while formatting the result: %s. Original output: %s", msg, utils.Truncate(raw, rawSnippetMax)),
	}
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "•")
}

func isSummaryLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "resumo") || strings.Contains(lower, "summary")
}

func summaryText(line string) string {
	if idx := strings.Index(line, ":"); idx >= 0 {
		if t := strings.TrimSpace(line[idx+1:]); t != "" {
			return t
		}
	}
	return line
}
