package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/DeividiJaeger/crewai-wiki-agent/tools/web_search/models"
	"github.com/DeividiJaeger/crewai-wiki-agent/utils"
)

const defaultEndpoint = "https://api.duckduckgo.com/"

// Search uses the DuckDuckGo Instant Answer API. No API key required, which
// makes it the default provider.
type Search struct {
	Endpoint string
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	url := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1", endpoint, utils.UrlQuery(q))
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo status %d", resp.StatusCode)
	}
	var raw struct {
		Heading       string `json:"Heading"`
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var out []models.Result
	if raw.AbstractText != "" {
		out = append(out, models.Result{Title: raw.Heading, URL: raw.AbstractURL, Snippet: raw.AbstractText})
	}
	for _, rt := range raw.RelatedTopics {
		if len(out) >= k {
			break
		}
		if rt.Text == "" {
			continue
		}
		out = append(out, models.Result{Title: rt.Text, URL: rt.FirstURL, Snippet: rt.Text})
	}
	return out, nil
}
