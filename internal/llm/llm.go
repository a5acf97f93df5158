// Package llm wraps the completion service behind a small provider interface.
// The implementation speaks the OpenAI chat-completions wire format, which
// Groq's endpoint also serves.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/DeividiJaeger/crewai-wiki-agent/config"
)

// Provider is the contract for completion backends. A role description goes in
// as the system message; the stage prompt as the user message.
type Provider interface {
	Generate(ctx context.Context, system, prompt, model string) (string, error)
	GenerateWithTokens(ctx context.Context, system, prompt, model string) (string, int64, int64, error)
	GetAvailableModels() []string
	GetModelInfo(model string) (ModelInfo, error)
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// ModelInfo contains information about a completion model
type ModelInfo struct {
	Name            string  `json:"name"`
	Provider        string  `json:"provider"`
	MaxTokens       int     `json:"max_tokens"`
	CostPer1KInput  float64 `json:"cost_per_1k_input"`
	CostPer1KOutput float64 `json:"cost_per_1k_output"`
}

// NewProvider creates a provider from configuration. The first configured
// provider entry wins; only the openai-compatible type is implemented.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no LLM providers configured")
	}
	for _, p := range cfg.Providers {
		switch p.Type {
		case "", "openai":
			return NewOpenAIProvider(p), nil
		default:
			return nil, fmt.Errorf("unsupported LLM provider type: %s", p.Type)
		}
	}
	return nil, fmt.Errorf("no valid LLM providers found")
}

// OpenAIProvider implements Provider against any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	config    config.LLMProvider
	models    map[string]ModelInfo
	rawModels map[string]config.LLMModel
	client    *http.Client
}

func NewOpenAIProvider(cfg config.LLMProvider) *OpenAIProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	p := &OpenAIProvider{
		config:    cfg,
		models:    make(map[string]ModelInfo),
		rawModels: cfg.Models,
		client:    &http.Client{Timeout: timeout},
	}
	for key, m := range cfg.Models {
		p.models[key] = ModelInfo{
			Name:            m.Name,
			Provider:        "openai",
			MaxTokens:       m.MaxTokens,
			CostPer1KInput:  m.CostPer1K,
			CostPer1KOutput: m.CostPer1KOutput,
		}
	}
	return p
}

// Generate generates text for the given system/user prompt pair
func (p *OpenAIProvider) Generate(ctx context.Context, system, prompt, model string) (string, error) {
	resp, _, _, err := p.GenerateWithTokens(ctx, system, prompt, model)
	return resp, err
}

// GenerateWithTokens generates text and returns token usage
func (p *OpenAIProvider) GenerateWithTokens(ctx context.Context, system, prompt, model string) (string, int64, int64, error) {
	apiKey := p.config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return "", 0, 0, fmt.Errorf("completion service API key not configured")
	}

	m, ok := p.rawModels[model]
	if !ok {
		return "", 0, 0, fmt.Errorf("model %s not configured", model)
	}
	apiModel := m.APIName
	if apiModel == "" {
		apiModel = m.Name
	}

	type chatMsg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type chatReq struct {
		Model       string    `json:"model"`
		Messages    []chatMsg `json:"messages"`
		Temperature float64   `json:"temperature,omitempty"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
	}

	msgs := []chatMsg{}
	if system != "" {
		msgs = append(msgs, chatMsg{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMsg{Role: "user", Content: prompt})

	body, err := json.Marshal(chatReq{
		Model:       apiModel,
		Messages:    msgs,
		Temperature: m.Temperature,
		MaxTokens:   m.MaxTokens,
	})
	if err != nil {
		return "", 0, 0, fmt.Errorf("marshal: %w", err)
	}

	baseURL := p.config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", 0, 0, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, 0, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, 0, fmt.Errorf("completion service status %d", resp.StatusCode)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, 0, fmt.Errorf("decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("no choices")
	}

	return out.Choices[0].Message.Content, int64(out.Usage.PromptTokens), int64(out.Usage.CompletionTokens), nil
}

// GetAvailableModels returns the configured model keys
func (p *OpenAIProvider) GetAvailableModels() []string {
	var models []string
	for name := range p.models {
		models = append(models, name)
	}
	return models
}

// GetModelInfo returns information about a specific model
func (p *OpenAIProvider) GetModelInfo(model string) (ModelInfo, error) {
	info, exists := p.models[model]
	if !exists {
		return ModelInfo{}, fmt.Errorf("model not found: %s", model)
	}
	return info, nil
}

// CalculateCost calculates the cost for a given number of tokens
func (p *OpenAIProvider) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	info, err := p.GetModelInfo(model)
	if err != nil {
		return 0.0
	}
	inputCost := float64(inputTokens) / 1000.0 * info.CostPer1KInput
	outputCost := float64(outputTokens) / 1000.0 * info.CostPer1KOutput
	return inputCost + outputCost
}
