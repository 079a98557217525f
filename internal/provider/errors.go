package provider

import "errors"

// Sentinel errors for adapter failures. Adapters wrap these with %w so the
// orchestrator can classify every failure without knowing backend specifics.
var (
	// ErrTimeout indicates the adapter exceeded its allotted time.
	ErrTimeout = errors.New("provider timed out")

	// ErrTransport indicates a network-level or backend-availability failure
	// (DNS, connection refused, TLS, 5xx).
	ErrTransport = errors.New("provider transport failure")

	// ErrAuth indicates invalid or missing credentials for the provider.
	// Non-fatal for the request, but it will recur on every call until the
	// configuration is fixed.
	ErrAuth = errors.New("provider authentication failed")

	// ErrRateLimit indicates the backend is throttling requests.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrNoProvider indicates the registry has no entry for the request.
	ErrNoProvider = errors.New("no provider configured")

	// ErrEmptyPrompt indicates a request with an empty prompt.
	ErrEmptyPrompt = errors.New("prompt must not be empty")
)

// ErrorKind classifies an adapter failure for attempt history and metrics.
type ErrorKind string

// Failure classifications, matching the sentinel errors above.
const (
	KindTimeout   ErrorKind = "timeout"
	KindTransport ErrorKind = "transport"
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindOther     ErrorKind = "other"
)

// KindOf maps an adapter error to its ErrorKind.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrRateLimit):
		return KindRateLimit
	default:
		return KindOther
	}
}
