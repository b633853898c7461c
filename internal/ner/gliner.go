package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/types"
)

// GLiNERClient calls a GLiNER inference server. The server receives
// {"text", "labels", "threshold", "model"} on POST /predict and answers
// with {"entities": [{"text", "label", "score"}]} or a bare array.
type GLiNERClient struct {
	endpoint string
	model    string
	client   *http.Client
	logger   *slog.Logger
}

// NewGLiNERClient creates a client for the server at cfg.Endpoint.
func NewGLiNERClient(cfg config.NERConfig, logger *slog.Logger) *GLiNERClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GLiNERClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With("component", "gliner_client"),
	}
}

type glinerRequest struct {
	Text      string   `json:"text"`
	Labels    []string `json:"labels"`
	Threshold float64  `json:"threshold"`
	Model     string   `json:"model,omitempty"`
}

// Predict implements Predictor.
func (c *GLiNERClient) Predict(ctx context.Context, text string, labels []string, threshold float64) ([]types.RawEntity, error) {
	body, err := json.Marshal(glinerRequest{Text: text, Labels: labels, Threshold: threshold, Model: c.model})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gliner request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gliner response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gliner returned %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(raw)), 200))
	}

	entities, err := decodeEntities(raw)
	if err != nil {
		return nil, &types.ParseError{Source: "gliner response", Err: err}
	}

	c.logger.Debug("gliner predict",
		"chars", len(text),
		"entities", len(entities),
		"duration", time.Since(start),
	)
	return keep(entities, labels, threshold), nil
}

// Close implements Predictor.
func (c *GLiNERClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// Name implements Predictor.
func (c *GLiNERClient) Name() string { return "gliner" }

// decodeEntities accepts either {"entities": [...]} or a bare array.
func decodeEntities(raw []byte) ([]types.RawEntity, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []types.RawEntity
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var wrapped struct {
		Entities []types.RawEntity `json:"entities"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Entities, nil
}
