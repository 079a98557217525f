package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/storyspark/sparkgen/internal/provider"
	"github.com/storyspark/sparkgen/internal/record"
)

// GenerateRequest is the JSON body of POST /api/generate.
type GenerateRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	UserID       string  `json:"user_id"`

	// Persistence metadata, stored alongside the output.
	CopyType   string `json:"copy_type,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
	Tone       string `json:"tone,omitempty"`
	Platform   string `json:"platform,omitempty"`

	// PreferredProvider promotes one provider to the front of the order
	// for this request only.
	PreferredProvider string `json:"preferred_provider,omitempty"`
}

// GenerateResponse is the JSON response for a successful generation.
type GenerateResponse struct {
	Content    string `json:"content"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
	LatencyMS  int64  `json:"latency_ms"`
}

// GenerateError is the JSON response when every provider failed.
type GenerateError struct {
	Error    string             `json:"error"`
	Terminal bool               `json:"terminal"`
	Attempts []provider.Attempt `json:"attempts,omitempty"`
}

// handleGenerate returns an http.HandlerFunc for POST /api/generate.
func (g *Gateway) handleGenerate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.orchestrator == nil {
			http.Error(w, "no orchestrator configured", http.StatusServiceUnavailable)
			return
		}

		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		var opts []provider.ExecOption
		if req.PreferredProvider != "" {
			opts = append(opts, provider.WithPreferredProvider(req.PreferredProvider))
		}

		outcome, err := g.orchestrator.Execute(r.Context(), req.toProviderRequest(), opts...)
		if err != nil {
			if errors.Is(err, provider.ErrEmptyPrompt) {
				http.Error(w, "prompt is required", http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		if !outcome.Success {
			writeFailure(w, outcome.Failure)
			return
		}

		if g.recorder != nil {
			g.recorder.Record(outcome.Result, req.recordMeta())
		}

		_ = json.NewEncoder(w).Encode(newGenerateResponse(outcome.Result))
	}
}

func (req GenerateRequest) toProviderRequest() provider.GenerationRequest {
	return provider.GenerationRequest{
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
		UserID:       req.UserID,
		Context:      "api_generate",
	}
}

func (req GenerateRequest) recordMeta() record.Meta {
	return record.Meta{
		UserID:     req.UserID,
		CopyType:   req.CopyType,
		TemplateID: req.TemplateID,
		Tone:       req.Tone,
		Platform:   req.Platform,
		Prompt:     req.Prompt,
	}
}

func newGenerateResponse(result provider.GenerationResult) GenerateResponse {
	return GenerateResponse{
		Content:    result.Content,
		Provider:   result.Provider,
		Model:      result.Model,
		TokensUsed: result.TokensUsed,
		LatencyMS:  result.Latency.Milliseconds(),
	}
}

func writeFailure(w http.ResponseWriter, failure *provider.GenerationFailure) {
	resp := GenerateError{
		Error:    "all providers failed",
		Terminal: true,
	}
	if failure != nil {
		resp.Terminal = failure.Terminal
		resp.Attempts = failure.Attempts
	}
	if !resp.Terminal {
		resp.Error = "request cancelled"
	}

	status := http.StatusServiceUnavailable
	if !resp.Terminal {
		status = http.StatusRequestTimeout
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
