package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/storyspark/sparkgen/internal/provider"
)

// mapHTTPError maps an HTTP status code and response body to a provider
// sentinel error. Returns nil for 2xx status codes.
func mapHTTPError(name string, statusCode int, body []byte) error {
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
		return fmt.Errorf("%w: %s: %s", provider.ErrRateLimit, name, msg)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s: %s", provider.ErrAuth, name, msg)
	case statusCode >= 500:
		return fmt.Errorf("%w: %s: HTTP %d: %s", provider.ErrTransport, name, statusCode, msg)
	default:
		return fmt.Errorf("%s: HTTP %d: %s", name, statusCode, msg)
	}
}

// mapConnectionError maps network-level errors to provider sentinel errors.
// A deadline hit becomes ErrTimeout; caller cancellation passes through
// unchanged so the orchestrator can tell the two apart.
func mapConnectionError(name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", provider.ErrTimeout, name, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s: %w", provider.ErrTransport, name, err)
	}
	return fmt.Errorf("%s: %w", name, err)
}
