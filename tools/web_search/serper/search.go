package serper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/DeividiJaeger/crewai-wiki-agent/tools/web_search/models"
	"github.com/DeividiJaeger/crewai-wiki-agent/utils"
)

const defaultEndpoint = "https://google.serper.dev/search"

type Search struct {
	ApiKey   string
	Endpoint string // defaults to the serper.dev API; overridable in tests
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://serper.dev/ docs
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	body, _ := json.Marshal(map[string]any{"q": q, "num": k})
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.ApiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper status %d", resp.StatusCode)
	}
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var out []models.Result
	if items, ok := raw["organic"].([]any); ok {
		for i, it := range items {
			if i >= k {
				break
			}
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, models.Result{
				Title: utils.Str(m["title"]), URL: utils.Str(m["link"]), Snippet: utils.Str(m["snippet"]),
			})
		}
	}
	return out, nil
}
