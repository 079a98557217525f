package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/storyspark/sparkgen/internal/provider"
)

// maxResponseSize is the maximum response body size (10 MB).
// Protects against OOM from malformed or huge responses.
const maxResponseSize = 10 * 1024 * 1024

// chatRequest is the OpenAI API request shape (serialization only).
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
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// buildChatRequest assembles the wire request from a generation request.
func (p *Provider) buildChatRequest(req provider.GenerationRequest) chatRequest {
	var msgs []chatMessage
	if req.SystemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})

	return chatRequest{
		Model:       p.config.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}

// Generate implements provider.Generator. It issues exactly one Chat
// Completions call and translates every failure into a sentinel error.
func (p *Provider) Generate(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
	payload, err := json.Marshal(p.buildChatRequest(req))
	if err != nil {
		return provider.GenerationResult{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	url := p.config.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return provider.GenerationResult{}, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	key, _ := p.creds.Get("openai")
	httpReq.Header.Set("Authorization", "Bearer "+key)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return provider.GenerationResult{}, mapConnectionError("openai", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return provider.GenerationResult{}, fmt.Errorf("%w: openai: read response: %w", provider.ErrTransport, err)
	}
	latency := time.Since(start)

	if httpErr := mapHTTPError("openai", resp.StatusCode, body); httpErr != nil {
		return provider.GenerationResult{}, httpErr
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return provider.GenerationResult{}, fmt.Errorf("openai: unmarshal response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return provider.GenerationResult{}, fmt.Errorf("%w: openai: empty choices", provider.ErrTransport)
	}

	content := cr.Choices[0].Message.Content
	tokens := cr.Usage.TotalTokens
	if tokens == 0 {
		tokens = provider.EstimateTokens(req.Prompt) + provider.EstimateTokens(content)
	}

	return provider.GenerationResult{
		Content:    content,
		Provider:   "openai",
		Model:      p.config.Model,
		TokensUsed: tokens,
		Latency:    latency,
	}, nil
}
