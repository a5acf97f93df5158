package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/DeividiJaeger/crewai-wiki-agent/tools/web_search/models"
	"github.com/DeividiJaeger/crewai-wiki-agent/utils"
)

const defaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

type Search struct {
	ApiKey   string
	Endpoint string
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://api.search.brave.com/app/documentation/web-search
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	url := fmt.Sprintf("%s?q=%s&count=%d", endpoint, utils.UrlQuery(q), k)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.ApiKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave status %d", resp.StatusCode)
	}
	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	var out []models.Result
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	return out, nil
}
