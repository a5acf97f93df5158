package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/DeividiJaeger/crewai-wiki-agent/config"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/llm"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/telemetry"
	"github.com/DeividiJaeger/crewai-wiki-agent/tools/web_fetch"
	"github.com/DeividiJaeger/crewai-wiki-agent/tools/web_search"
	"github.com/DeividiJaeger/crewai-wiki-agent/tools/wikipedia"
)

// Pipeline names accepted by BuildCrew.
const (
	PipelineWikipedia = "wikipedia"
	PipelineWebSearch = "websearch"
)

// outputTemplate is the shape the final stage is asked to produce. The result
// formatter keys off the topic delimiter and the summary marker.
const outputTemplate = "A structured report in Portuguese:\n" +
	"Tema: <the topic>\n" +
	"<one line per key point>\n" +
	"Resumo: <a closing one-paragraph summary>"

// BuildCrew assembles the crew selected by name, wiring the configured
// retrieval tools into its research stage.
func BuildCrew(name string, cfg *config.Config, provider llm.Provider, tel *telemetry.Telemetry) (*Crew, error) {
	switch name {
	case "", PipelineWikipedia:
		return NewWikipediaCrew(cfg, provider, tel), nil
	case PipelineWebSearch:
		return NewWebSearchCrew(cfg, provider, tel)
	default:
		return nil, fmt.Errorf("unknown pipeline: %s", name)
	}
}

// NewWikipediaCrew builds the default two-stage pipeline: an encyclopedia
// researcher followed by an article writer.
func NewWikipediaCrew(cfg *config.Config, provider llm.Provider, tel *telemetry.Telemetry) *Crew {
	wikiTool := &wikipediaTool{
		client: wikipedia.New(
			cfg.Tools.Wikipedia.Language,
			cfg.Tools.Wikipedia.Endpoint,
			cfg.Tools.Wikipedia.MaxChars,
			cfg.Tools.Wikipedia.Timeout,
		),
	}

	researcher := &Stage{
		Name: "wikipedia_researcher",
		Role: Role{
			Name:      "Pesquisador de Enciclopedia",
			Goal:      "Collect accurate encyclopedic facts about the topic.",
			Backstory: "A meticulous researcher who only reports facts backed by the reference material.",
		},
		Task: Task{
			Description:    "Extract the key facts about the topic from the reference material. List each fact on its own line.",
			ExpectedOutput: "A plain-text list of verified facts, one per line.",
		},
		Tools: []Tool{wikiTool},
		Model: routeModel(cfg.LLM.Routing.Research, cfg.LLM.Routing.Fallback),
	}

	writer := &Stage{
		Name: "article_writer",
		Role: Role{
			Name:      "Redator de Artigos",
			Goal:      "Turn research notes into a clear, structured report.",
			Backstory: "An experienced writer who organizes findings into short, readable points.",
		},
		Task: Task{
			Description:    "Write a structured report about the topic using the research notes from the previous step.",
			ExpectedOutput: outputTemplate,
		},
		Model: routeModel(cfg.LLM.Routing.Synthesis, cfg.LLM.Routing.Fallback),
	}

	return NewCrew(PipelineWikipedia, provider, tel, researcher, writer)
}

// NewWebSearchCrew builds the alternative pipeline backed by a web search
// provider, optionally enriching hits with readable page content.
func NewWebSearchCrew(cfg *config.Config, provider llm.Provider, tel *telemetry.Telemetry) (*Crew, error) {
	searcher, err := web_search.NewWebSearcher(
		web_search.Provider(cfg.Tools.WebSearch.Provider),
		cfg.Tools.WebSearch.APIKey,
	)
	if err != nil {
		return nil, fmt.Errorf("building web searcher: %w", err)
	}

	searchTool := &webSearchTool{
		searcher:   searcher,
		maxResults: cfg.Tools.WebSearch.MaxResults,
	}
	if cfg.Tools.WebFetch.Enabled {
		searchTool.fetcher = web_fetch.NewFetcher(cfg.Tools.WebFetch.Timeout, cfg.Tools.WebFetch.MaxChars)
	}

	researcher := &Stage{
		Name: "web_researcher",
		Role: Role{
			Name:      "Pesquisador Web",
			Goal:      "Find current, relevant information about the topic on the web.",
			Backstory: "An investigator who cross-checks search results before reporting them.",
		},
		Task: Task{
			Description:    "Survey the search results about the topic and extract the relevant findings. List each finding on its own line.",
			ExpectedOutput: "A plain-text list of findings, one per line.",
		},
		Tools: []Tool{searchTool},
		Model: routeModel(cfg.LLM.Routing.Research, cfg.LLM.Routing.Fallback),
	}

	synthesizer := &Stage{
		Name: "synthesizer",
		Role: Role{
			Name:      "Sintetizador",
			Goal:      "Condense research findings into a structured report.",
			Backstory: "An analyst who distills many sources into a few solid points.",
		},
		Task: Task{
			Description:    "Synthesize the findings from the previous step into a structured report about the topic.",
			ExpectedOutput: outputTemplate,
		},
		Model: routeModel(cfg.LLM.Routing.Synthesis, cfg.LLM.Routing.Fallback),
	}

	return NewCrew(PipelineWebSearch, provider, tel, researcher, synthesizer), nil
}

func routeModel(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

type wikipediaTool struct {
	client *wikipedia.Client
}

func (t *wikipediaTool) Name() string { return "wikipedia" }

func (t *wikipediaTool) Gather(ctx context.Context, topic string) (string, error) {
	return t.client.Summarize(ctx, topic)
}

type webSearchTool struct {
	searcher   web_search.WebSearcher
	fetcher    *web_fetch.Fetcher
	maxResults int
}

func (t *webSearchTool) Name() string { return "web_search" }

func (t *webSearchTool) Gather(ctx context.Context, topic string) (string, error) {
	k := t.maxResults
	if k <= 0 {
		k = 5
	}
	results, err := t.searcher.Discover(ctx, topic, k)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(web_search.FormatResults(results))
	if t.fetcher != nil {
		for _, r := range results {
			page, err := t.fetcher.Exec(ctx, r.URL)
			if err != nil {
				continue
			}
			b.WriteString("\n\n")
			b.WriteString(page.Title)
			b.WriteString("\n")
			b.WriteString(page.Text)
		}
	}
	return b.String(), nil
}
