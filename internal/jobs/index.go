package jobs

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve"

	"github.com/DeividiJaeger/crewai-wiki-agent/internal/research"
)

// Index is an in-memory full-text index over completed results. It is rebuilt
// empty on restart; only the store is durable.
type Index struct {
	idx bleve.Index
}

type indexedResult struct {
	Topic    string `json:"topic"`
	Summary  string `json:"summary"`
	Findings string `json:"findings"`
}

// SearchHit is one match from the result index.
type SearchHit struct {
	ID      string  `json:"id"`
	Topic   string  `json:"topic"`
	Summary string  `json:"summary"`
	Score   float64 `json:"score"`
}

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("building result index: %w", err)
	}
	return &Index{idx: idx}, nil
}

func (i *Index) Add(id string, result research.Result) error {
	var findings strings.Builder
	for _, f := range result.Findings {
		findings.WriteString(f.Label)
		findings.WriteString(": ")
		findings.WriteString(f.Description)
		findings.WriteString("\n")
	}
	return i.idx.Index(id, indexedResult{
		Topic:    result.Topic,
		Summary:  result.Summary,
		Findings: findings.String(),
	})
}

func (i *Index) Remove(id string) error {
	return i.idx.Delete(id)
}

func (i *Index) Search(q string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	query := bleve.NewQueryStringQuery(q)
	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Fields = []string{"topic", "summary"}

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := SearchHit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields["topic"].(string); ok {
			hit.Topic = v
		}
		if v, ok := h.Fields["summary"].(string); ok {
			hit.Summary = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (i *Index) Close() error { return i.idx.Close() }
