package api

import "fmt"

// ErrorKind classifies an API failure for the caller's retry decision.
type ErrorKind int

const (
	// KindTransportUnreachable means no response was received at all; the
	// outcome of the call is unknown, not a clean failure.
	KindTransportUnreachable ErrorKind = iota

	// KindMalformedRequest covers 400 and 405: a caller bug, not
	// retryable as-is.
	KindMalformedRequest

	// KindUnauthorized covers 401 and 403: a credential problem.
	KindUnauthorized

	// KindNotFound covers 404: terminal for that call.
	KindNotFound

	// KindRateLimited covers 429: retryable once the route's bucket
	// resets, which the response has just refreshed.
	KindRateLimited
)

// String returns a short name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransportUnreachable:
		return "transport unreachable"
	case KindMalformedRequest:
		return "malformed request"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not found"
	case KindRateLimited:
		return "rate limited"
	default:
		return "unknown"
	}
}

// APIError is a classified failure from the service.
type APIError struct {
	Kind       ErrorKind
	StatusCode int // 0 when no response was received
	Route      string
	Body       []byte
	cause      error
}

func (e *APIError) Error() string {
	if e.Kind == KindTransportUnreachable {
		return fmt.Sprintf("api %s on %s: %v", e.Kind, e.Route, e.cause)
	}
	return fmt.Sprintf("api error %d (%s) on %s", e.StatusCode, e.Kind, e.Route)
}

// Unwrap exposes the underlying transport error, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// IsRetryable reports whether the caller may reasonably retry. The
// transport never retries on its own beyond the pre-emptive rate-limit
// wait; that decision belongs to the caller.
func (e *APIError) IsRetryable() bool {
	return e.Kind == KindTransportUnreachable || e.Kind == KindRateLimited
}

// classify maps a status code to an error kind. Unrecognized statuses are
// returned to the caller as plain responses.
func classify(status int) (ErrorKind, bool) {
	switch status {
	case 400, 405:
		return KindMalformedRequest, true
	case 401, 403:
		return KindUnauthorized, true
	case 404:
		return KindNotFound, true
	case 429:
		return KindRateLimited, true
	}
	return 0, false
}
