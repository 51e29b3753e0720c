// Package genai is the client for the hosted generative endpoint
// (Google generative language API, generateContent). The raw completion
// it returns is consumed exclusively by the extract package.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iagoricardo/ainlo-server/internal/config"
)

type Client struct {
	cfg        config.GenAIConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg config.GenAIConfig, logger *logrus.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	SystemInstruction content          `json:"system_instruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Generate sends one completion request and returns the raw model text.
// An empty return with nil error means the model produced no content;
// the extractor turns that into its failure sentinel.
func (c *Client) Generate(ctx context.Context, prompt, fileBase64, mimeType string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("genai: api key not configured")
	}

	finalPrompt := prompt
	if fileBase64 != "" {
		finalPrompt = FilePrompt
	} else if strings.TrimSpace(prompt) == "" {
		finalPrompt = DefaultPrompt
	}

	parts := []part{{Text: finalPrompt}}
	if fileBase64 != "" && mimeType != "" {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: mimeType,
			Data:     fileBase64,
		}})
	}

	reqBody := generateRequest{
		SystemInstruction: content{Parts: []part{{Text: SystemInstruction}}},
		Contents:          []content{{Parts: parts}},
		GenerationConfig:  generationConfig{Temperature: c.cfg.Temperature},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("genai: failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("genai: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("genai: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", fmt.Errorf("genai: failed to read response: %w", err)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("genai: malformed response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := "unknown error"
		if decoded.Error != nil {
			msg = decoded.Error.Message
		}
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"error":  msg,
		}).Warn("Generative endpoint returned an error")
		return "", fmt.Errorf("genai: endpoint error (status %d): %s", resp.StatusCode, msg)
	}

	var sb strings.Builder
	for _, cand := range decoded.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		break // only the first candidate is used
	}

	return sb.String(), nil
}
