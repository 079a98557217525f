package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/storyspark/sparkgen/internal/provider"
	"github.com/storyspark/sparkgen/internal/record"
)

// maxResponseSize caps how much of a PostgREST error body is read.
const maxResponseSize = 1 << 20 // 1 MB

// copyRow is one row of the copies table. Column names follow the
// PostgREST schema the dashboard reads from.
type copyRow struct {
	UserID       string         `json:"user_id"`
	Content      string         `json:"content"`
	Platform     string         `json:"platform,omitempty"`
	CopyType     string         `json:"copy_type,omitempty"`
	Model        string         `json:"model,omitempty"`
	TokensInput  int            `json:"tokens_input"`
	TokensOutput int            `json:"tokens_output"`
	CostUSD      float64        `json:"cost_usd"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// contingencyRow is one row of the ai_contingency_logs table.
type contingencyRow struct {
	RequestID        string `json:"request_id"`
	OriginalProvider string `json:"original_provider"`
	FallbackProvider string `json:"fallback_provider"`
	Reason           string `json:"reason"`
	UserID           string `json:"user_id,omitempty"`
	Timestamp        string `json:"timestamp"`
}

func newCopyRow(g record.Generation) copyRow {
	row := copyRow{
		UserID:       g.UserID,
		Content:      g.Output,
		Platform:     g.Platform,
		CopyType:     g.CopyType,
		Model:        g.Model,
		TokensInput:  g.TokensIn,
		TokensOutput: g.TokensOut,
		CostUSD:      float64(g.CostCents) / 100,
	}

	meta := map[string]any{
		"provider": g.Provider,
		"prompt":   g.Prompt,
	}
	if g.Tone != "" {
		meta["tone"] = g.Tone
	}
	if g.TemplateID != "" {
		meta["template_id"] = g.TemplateID
	}
	row.Metadata = meta

	return row
}

func newContingencyRow(ev provider.FallbackEvent) contingencyRow {
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return contingencyRow{
		RequestID:        ev.RequestID,
		OriginalProvider: ev.OriginalProvider,
		FallbackProvider: ev.FallbackProvider,
		Reason:           ev.Reason,
		UserID:           ev.UserID,
		Timestamp:        at.Format(time.RFC3339Nano),
	}
}

// SaveGeneration implements record.Sink.
func (s *store) SaveGeneration(ctx context.Context, g record.Generation) error {
	return s.insert(ctx, "copies", newCopyRow(g))
}

// SaveFallbackEvent implements record.Sink.
func (s *store) SaveFallbackEvent(ctx context.Context, ev provider.FallbackEvent) error {
	return s.insert(ctx, "ai_contingency_logs", newContingencyRow(ev))
}

// insert posts one row to a PostgREST table.
func (s *store) insert(ctx context.Context, table string, row any) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("supabase: marshal %s row: %w", table, err)
	}

	url := s.baseURL + "/rest/v1/" + table
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("supabase: build request: %w", err)
	}

	key, ok := s.creds.Get("supabase")
	if !ok {
		return fmt.Errorf("supabase: %w: no service key configured", provider.ErrAuth)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", key)
	httpReq.Header.Set("Authorization", "Bearer "+key)
	httpReq.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("supabase: insert into %s: %w", table, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))

	var apiErr struct {
		Message string `json:"message"`
	}
	msg := ""
	if json.Unmarshal(body, &apiErr) == nil {
		msg = apiErr.Message
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("supabase: %w: HTTP %d inserting into %s: %s", provider.ErrAuth, resp.StatusCode, table, msg)
	}

	return fmt.Errorf("supabase: HTTP %d inserting into %s: %s", resp.StatusCode, table, msg)
}
