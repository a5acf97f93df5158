package web_search

import (
	"context"
	"strings"

	"github.com/DeividiJaeger/crewai-wiki-agent/tools/web_search/brave"
	"github.com/DeividiJaeger/crewai-wiki-agent/tools/web_search/duckduckgo"
	"github.com/DeividiJaeger/crewai-wiki-agent/tools/web_search/models"
	"github.com/DeividiJaeger/crewai-wiki-agent/tools/web_search/serper"
)

type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider     Provider = "serper"
	BraveProvider      Provider = "brave"
	DuckDuckGoProvider Provider = "duckduckgo"
)

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

var ErrUnsupportedProvider = &Error{"unsupported provider"}

func NewWebSearcher(provider Provider, apiKey string) (WebSearcher, error) {
	switch provider {
	case SerperProvider:
		return serper.Search{ApiKey: apiKey}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey}, nil
	case DuckDuckGoProvider:
		return duckduckgo.Search{}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// FormatResults renders hits as plain text suitable for prompt context.
func FormatResults(results []models.Result) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Title)
		if r.Snippet != "" {
			b.WriteString(": ")
			b.WriteString(r.Snippet)
		}
		if r.URL != "" {
			b.WriteString(" (")
			b.WriteString(r.URL)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
