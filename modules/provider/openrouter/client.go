package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/storyspark/sparkgen/internal/provider"
)

// maxResponseSize is the maximum response body size (10 MB).
const maxResponseSize = 10 * 1024 * 1024

// The wire shape is OpenAI-compatible.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements provider.Generator.
func (p *Provider) Generate(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
	var msgs []chatMessage
	if req.SystemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       p.config.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return provider.GenerationResult{}, fmt.Errorf("openrouter: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return provider.GenerationResult{}, fmt.Errorf("openrouter: create request: %w", err)
	}
	key, _ := p.creds.Get("openrouter")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)
	httpReq.Header.Set("HTTP-Referer", p.config.Referer)
	httpReq.Header.Set("X-Title", p.config.Title)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return provider.GenerationResult{}, mapConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return provider.GenerationResult{}, fmt.Errorf("%w: openrouter: read response: %w", provider.ErrTransport, err)
	}
	latency := time.Since(start)

	if httpErr := mapHTTPError(resp.StatusCode, body); httpErr != nil {
		return provider.GenerationResult{}, httpErr
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return provider.GenerationResult{}, fmt.Errorf("openrouter: unmarshal response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return provider.GenerationResult{}, fmt.Errorf("%w: openrouter: empty choices", provider.ErrTransport)
	}

	content := cr.Choices[0].Message.Content
	tokens := cr.Usage.TotalTokens
	if tokens == 0 {
		tokens = provider.EstimateTokens(req.Prompt) + provider.EstimateTokens(content)
	}

	return provider.GenerationResult{
		Content:    content,
		Provider:   "openrouter",
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
		return fmt.Errorf("%w: openrouter: %s", provider.ErrRateLimit, msg)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: openrouter: %s", provider.ErrAuth, msg)
	case statusCode >= 500:
		return fmt.Errorf("%w: openrouter: HTTP %d: %s", provider.ErrTransport, statusCode, msg)
	default:
		return fmt.Errorf("openrouter: HTTP %d: %s", statusCode, msg)
	}
}

func mapConnectionError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: openrouter: %w", provider.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: openrouter: %w", provider.ErrTransport, err)
	}
	return fmt.Errorf("openrouter: %w", err)
}
