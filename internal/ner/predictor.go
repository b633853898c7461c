// Package ner adapts named-entity models to a single Predictor interface.
package ner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/types"
)

// Predictor runs a zero-shot entity model over one chunk of text, asking
// only for labels and returning detections scored at or above threshold.
type Predictor interface {
	Predict(ctx context.Context, text string, labels []string, threshold float64) ([]types.RawEntity, error)

	// Close releases the model or its connections.
	Close() error

	// Name identifies the backend in logs.
	Name() string
}

// New builds the predictor selected by cfg.Provider.
func New(cfg config.NERConfig, logger *slog.Logger) (Predictor, error) {
	switch cfg.Provider {
	case "gliner", "":
		return NewGLiNERClient(cfg, logger), nil
	case "ollama":
		return NewLLMClient(LLMConfig{
			Provider: ProviderOllama,
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
		}, logger), nil
	case "openai":
		return NewLLMClient(LLMConfig{
			Provider: ProviderOpenAI,
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
			Timeout:  cfg.Timeout,
		}, logger), nil
	default:
		return nil, &types.ConfigurationError{Field: "ner.provider", Value: cfg.Provider, Reason: "unsupported provider"}
	}
}

// keep drops detections outside the vocabulary or below threshold and trims
// their text. A zero score means the backend did not score it; those are kept.
func keep(entities []types.RawEntity, labels []string, threshold float64) []types.RawEntity {
	allowed := make(map[string]bool, len(labels))
	for _, l := range labels {
		allowed[l] = true
	}
	out := make([]types.RawEntity, 0, len(entities))
	for _, e := range entities {
		e.Text = strings.TrimSpace(e.Text)
		e.Label = strings.TrimSpace(e.Label)
		if e.Text == "" || !allowed[e.Label] {
			continue
		}
		if e.Score != 0 && e.Score < threshold {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Stub is a deterministic Predictor: for every chunk it returns each entry
// whose Text occurs in the chunk and whose Label was requested.
type Stub struct {
	Entities []types.RawEntity
	Err      error
	Calls    int
}

// Predict implements Predictor.
func (s *Stub) Predict(_ context.Context, text string, labels []string, threshold float64) ([]types.RawEntity, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	var found []types.RawEntity
	for _, e := range s.Entities {
		if strings.Contains(text, strings.TrimSpace(e.Text)) {
			found = append(found, e)
		}
	}
	return keep(found, labels, threshold), nil
}

// Close implements Predictor.
func (s *Stub) Close() error { return nil }

// Name implements Predictor.
func (s *Stub) Name() string { return "stub" }

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:n]))
}
