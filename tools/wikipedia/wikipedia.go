// Package wikipedia fetches plain-text article summaries from the MediaWiki
// extracts API, bounded to a configurable number of characters.
package wikipedia

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/DeividiJaeger/crewai-wiki-agent/utils"
)

const DefaultMaxChars = 2000

// Client queries one language edition of Wikipedia.
type Client struct {
	endpoint string
	maxChars int
	http     *resty.Client
}

type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// New creates a client for the given language ("pt", "en", ...). An explicit
// endpoint overrides the language-derived one; used by tests.
func New(language, endpoint string, maxChars int, timeout time.Duration) *Client {
	if language == "" {
		language = "pt"
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", language)
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		maxChars: maxChars,
		http:     resty.New().SetTimeout(timeout),
	}
}

// Summarize returns the intro extract for term, truncated to the configured
// character budget. A missing article yields a descriptive string, not an
// error; only transport and API failures are errors.
func (c *Client) Summarize(ctx context.Context, term string) (string, error) {
	var out extractResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"action":      "query",
			"prop":        "extracts",
			"exlimit":     "1",
			"explaintext": "1",
			"exintro":     "1",
			"titles":      term,
			"format":      "json",
			"utf8":        "1",
			"redirects":   "1",
		}).
		SetResult(&out).
		Get(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("wikipedia lookup for %q: %w", term, err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("wikipedia lookup for %q: status %d", term, resp.StatusCode())
	}

	for _, page := range out.Query.Pages {
		if page.Extract == "" {
			continue
		}
		return utils.Truncate(page.Extract, c.maxChars), nil
	}
	return fmt.Sprintf("No Wikipedia content found for %q.", term), nil
}
