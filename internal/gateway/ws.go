package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/storyspark/sparkgen/internal/provider"
)

// wsReadTimeout bounds how long the gateway waits for the initial request
// frame on a new WebSocket connection.
const wsReadTimeout = 10 * time.Second

// wsMessage is one frame of the generation progress stream. Type is
// "progress", "result", or "error".
type wsMessage struct {
	Type     string                  `json:"type"`
	Progress *provider.ProgressEvent `json:"progress,omitempty"`
	Result   *GenerateResponse       `json:"result,omitempty"`
	Error    *GenerateError          `json:"error,omitempty"`
}

// handleGenerateWS returns the handler for GET /ws/generate. The client
// sends one GenerateRequest frame, receives progress frames while providers
// are attempted, then a final result or error frame.
func (g *Gateway) handleGenerateWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.orchestrator == nil {
			http.Error(w, "no orchestrator configured", http.StatusServiceUnavailable)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			g.logger.Error("websocket accept failed", "error", err)
			return
		}
		defer func() {
			_ = conn.Close(websocket.StatusInternalError, "unexpected close")
		}()

		ctx := r.Context()

		readCtx, cancel := context.WithTimeout(ctx, wsReadTimeout)
		_, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			_ = conn.Close(websocket.StatusPolicyViolation, "expected request frame")
			return
		}

		var req GenerateRequest
		if err := json.Unmarshal(data, &req); err != nil {
			_ = conn.Close(websocket.StatusPolicyViolation, "invalid request frame")
			return
		}

		opts := []provider.ExecOption{
			provider.WithProgress(func(ev provider.ProgressEvent) {
				g.sendWS(ctx, conn, wsMessage{Type: "progress", Progress: &ev})
			}),
		}
		if req.PreferredProvider != "" {
			opts = append(opts, provider.WithPreferredProvider(req.PreferredProvider))
		}

		provReq := req.toProviderRequest()
		provReq.Context = "ws_generate"

		outcome, err := g.orchestrator.Execute(ctx, provReq, opts...)
		if err != nil {
			g.sendWS(ctx, conn, wsMessage{Type: "error", Error: &GenerateError{Error: err.Error(), Terminal: true}})
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		}

		if !outcome.Success {
			msg := wsMessage{Type: "error", Error: &GenerateError{Error: "all providers failed", Terminal: true}}
			if outcome.Failure != nil {
				msg.Error.Terminal = outcome.Failure.Terminal
				msg.Error.Attempts = outcome.Failure.Attempts
				if !outcome.Failure.Terminal {
					msg.Error.Error = "request cancelled"
				}
			}
			g.sendWS(ctx, conn, msg)
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		}

		if g.recorder != nil {
			g.recorder.Record(outcome.Result, req.recordMeta())
		}

		resp := newGenerateResponse(outcome.Result)
		g.sendWS(ctx, conn, wsMessage{Type: "result", Result: &resp})
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

// sendWS marshals and writes one frame, logging write failures.
func (g *Gateway) sendWS(ctx context.Context, conn *websocket.Conn, msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		g.logger.Error("websocket marshal failed", "error", err)
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		g.logger.Debug("websocket write failed", "error", err)
	}
}
