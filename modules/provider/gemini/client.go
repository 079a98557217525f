package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/storyspark/sparkgen/internal/provider"
)

// maxResponseSize is the maximum response body size (10 MB).
const maxResponseSize = 10 * 1024 * 1024

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate implements provider.Generator. Gemini authenticates via a query
// parameter rather than an Authorization header.
func (p *Provider) Generate(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
	gr := generateRequest{
		Contents: []content{{Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
			TopP:            p.config.TopP,
			TopK:            p.config.TopK,
		},
	}
	if req.SystemPrompt != "" {
		gr.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}

	payload, err := json.Marshal(gr)
	if err != nil {
		return provider.GenerationResult{}, fmt.Errorf("gemini: marshal request: %w", err)
	}

	key, _ := p.creds.Get("gemini")
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		p.config.BaseURL, p.config.Model, url.QueryEscape(key))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return provider.GenerationResult{}, fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return provider.GenerationResult{}, mapConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return provider.GenerationResult{}, fmt.Errorf("%w: gemini: read response: %w", provider.ErrTransport, err)
	}
	latency := time.Since(start)

	if httpErr := mapHTTPError(resp.StatusCode, body); httpErr != nil {
		return provider.GenerationResult{}, httpErr
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return provider.GenerationResult{}, fmt.Errorf("gemini: unmarshal response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return provider.GenerationResult{}, fmt.Errorf("%w: gemini: empty candidates", provider.ErrTransport)
	}

	text := out.Candidates[0].Content.Parts[0].Text
	tokens := out.UsageMetadata.TotalTokenCount
	if tokens == 0 {
		tokens = provider.EstimateTokens(req.Prompt) + provider.EstimateTokens(text)
	}

	return provider.GenerationResult{
		Content:    text,
		Provider:   "gemini",
		Model:      p.config.Model,
		TokensUsed: tokens,
		Latency:    latency,
	}, nil
}

func mapHTTPError(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var msg string
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	} else {
		msg = string(body)
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: gemini: %s", provider.ErrRateLimit, msg)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: gemini: %s", provider.ErrAuth, msg)
	case statusCode == http.StatusBadRequest && apiErr.Error.Status == "INVALID_ARGUMENT" && containsKeyComplaint(msg):
		// Gemini reports a malformed API key as 400, not 401.
		return fmt.Errorf("%w: gemini: %s", provider.ErrAuth, msg)
	case statusCode >= 500:
		return fmt.Errorf("%w: gemini: HTTP %d: %s", provider.ErrTransport, statusCode, msg)
	default:
		return fmt.Errorf("gemini: HTTP %d: %s", statusCode, msg)
	}
}

func containsKeyComplaint(msg string) bool {
	return bytes.Contains(bytes.ToLower([]byte(msg)), []byte("api key"))
}

func mapConnectionError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: gemini: %w", provider.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: gemini: %w", provider.ErrTransport, err)
	}
	return fmt.Errorf("gemini: %w", err)
}
