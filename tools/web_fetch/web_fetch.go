// Package web_fetch retrieves a page over plain HTTP and extracts its main
// readable text. Used to enrich retrieval context with the top search hit.
package web_fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/DeividiJaeger/crewai-wiki-agent/utils"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 8000
)

type Result struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

type Fetcher struct {
	client   *http.Client
	maxChars int
}

func NewFetcher(timeout time.Duration, maxChars int) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}, maxChars: maxChars}
}

// Exec fetches link and returns the readability-extracted article text,
// truncated to the configured budget.
func (f *Fetcher) Exec(ctx context.Context, link string) (Result, error) {
	if strings.TrimSpace(link) == "" {
		return Result{}, errors.New("invalid url")
	}
	parsed, err := url.Parse(link)
	if err != nil {
		return Result{}, fmt.Errorf("parse url %q: %w", link, err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("fetch %s: status %d", link, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return Result{}, fmt.Errorf("extract %s: %w", link, err)
	}

	return Result{
		URL:   link,
		Title: article.Title,
		Text:  utils.Truncate(strings.TrimSpace(article.TextContent), f.maxChars),
	}, nil
}
