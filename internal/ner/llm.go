package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/IshaanNene/entitymap/internal/types"
)

// LLMProvider specifies which LLM backend to use.
type LLMProvider string

const (
	ProviderOllama LLMProvider = "ollama"
	ProviderOpenAI LLMProvider = "openai"
)

// LLMConfig configures the LLM integration.
type LLMConfig struct {
	Provider LLMProvider
	Endpoint string // e.g. "http://localhost:11434" for Ollama
	Model    string // e.g. "llama3", "gpt-4o-mini"
	APIKey   string
	Timeout  time.Duration
}

// LLMClient prompts a general-purpose LLM to act as a zero-shot entity
// tagger. It is the fallback when no GLiNER server is available.
type LLMClient struct {
	cfg    LLMConfig
	client *http.Client
	openai openai.Client
	logger *slog.Logger
}

// NewLLMClient creates a new LLM client.
func NewLLMClient(cfg LLMConfig, logger *slog.Logger) *LLMClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	c := &LLMClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "llm_client", "provider", string(cfg.Provider)),
	}
	if cfg.Provider == ProviderOpenAI {
		opts := []option.RequestOption{option.WithRequestTimeout(cfg.Timeout)}
		if cfg.APIKey != "" {
			opts = append(opts, option.WithAPIKey(cfg.APIKey))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, option.WithBaseURL(cfg.Endpoint))
		}
		c.openai = openai.NewClient(opts...)
	}
	return c
}

const nerSystemPrompt = `You are a named entity recognizer. Return only JSON of the form {"entities":[{"text":"...","label":"...","score":0.0}]}. Use only the labels you are given, copy entity text exactly as it appears, and score each entity from 0 to 1.`

// Predict implements Predictor.
func (c *LLMClient) Predict(ctx context.Context, text string, labels []string, threshold float64) ([]types.RawEntity, error) {
	prompt := fmt.Sprintf("Labels: %s\nMinimum score: %.2f\n\nText:\n%s", strings.Join(labels, ", "), threshold, text)

	start := time.Now()
	response, err := c.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Entities []types.RawEntity `json:"entities"`
	}
	if err := json.Unmarshal([]byte(extractJSON(response)), &parsed); err != nil {
		return nil, &types.ParseError{Source: string(c.cfg.Provider) + " response", Err: err}
	}

	c.logger.Debug("llm predict",
		"chars", len(text),
		"entities", len(parsed.Entities),
		"duration", time.Since(start),
	)
	return keep(parsed.Entities, labels, threshold), nil
}

// Close implements Predictor.
func (c *LLMClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// Name implements Predictor.
func (c *LLMClient) Name() string { return string(c.cfg.Provider) }

// Generate sends a prompt to the LLM and returns the response.
func (c *LLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	switch c.cfg.Provider {
	case ProviderOllama:
		return c.generateOllama(ctx, prompt)
	case ProviderOpenAI:
		return c.generateOpenAI(ctx, prompt)
	default:
		return "", fmt.Errorf("unsupported LLM provider: %s", c.cfg.Provider)
	}
}

func (c *LLMClient) generateOllama(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":  c.cfg.Model,
		"system": nerSystemPrompt,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": 0,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode ollama request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.Endpoint, "/")+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned %d", resp.StatusCode)
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return result.Response, nil
}

func (c *LLMClient) generateOpenAI(ctx context.Context, prompt string) (string, error) {
	resp, err := c.openai.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(nerSystemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return resp.Choices[0].Message.Content, nil
}

// extractJSON tries to find a JSON object in the LLM response.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return "{}"
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return "{}"
}
