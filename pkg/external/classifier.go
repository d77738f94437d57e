package external

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// Kind is the closed classification of an external-call failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetworkError
	KindTimeout
	KindRateLimit
	KindAuthentication
	KindNotFound
	KindBadRequest
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindNetworkError:
		return "NETWORK_ERROR"
	case KindTimeout:
		return "TIMEOUT"
	case KindRateLimit:
		return "RATE_LIMIT"
	case KindAuthentication:
		return "AUTHENTICATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindBadRequest:
		return "BAD_REQUEST"
	case KindServerError:
		return "SERVER_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Retryable reports whether a failure of this kind is worth retrying.
// RateLimit is excluded here; callers can widen the set via Retry.Retryable.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetworkError, KindTimeout, KindServerError:
		return true
	default:
		return false
	}
}

// HTTPStatus returns the status used when propagating this kind to our own
// API clients.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNetworkError, KindServerError:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified external-call failure.
type Error struct {
	Kind         Kind
	Message      string
	Provider     string // provider name, e.g. "brokerage"
	ProviderCode string // provider's own error code, if any
	ProviderBody string // raw response body, truncated
	Attempts     int    // total attempts made, set by the retry layer
	cause        error
}

func (e *Error) Error() string {
	if e.ProviderCode != "" {
		return fmt.Sprintf("%s: %s (provider code %s)", e.Kind, e.Message, e.ProviderCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports the default verdict for this error.
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// HTTPStatus is the status to propagate to our own API clients.
func (e *Error) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// AsError extracts a classified error from err, or nil.
func AsError(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

const maxBodyInError = 512

// Classify maps a transport-level failure from an external call to the
// taxonomy. Already-classified errors pass through unchanged.
func Classify(provider string, err error) *Error {
	if err == nil {
		return nil
	}
	if ce := AsError(err); ce != nil {
		return ce
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{
			Kind:     KindTimeout,
			Message:  "request to " + provider + " timed out",
			Provider: provider,
			cause:    err,
		}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{
			Kind:     KindTimeout,
			Message:  "request to " + provider + " timed out",
			Provider: provider,
			cause:    err,
		}
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET), isDNSError(err):
		return &Error{
			Kind:     KindNetworkError,
			Message:  "could not reach " + provider,
			Provider: provider,
			cause:    err,
		}
	}

	// Any other url.Error wrapping a dial problem still counts as network.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &Error{
			Kind:     KindNetworkError,
			Message:  "could not reach " + provider,
			Provider: provider,
			cause:    err,
		}
	}

	return &Error{
		Kind:     KindUnknown,
		Message:  "unexpected error calling " + provider,
		Provider: provider,
		cause:    err,
	}
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// ClassifyStatus maps a non-2xx HTTP response from an external call to the
// taxonomy. code is the provider's own error code when the body carried one,
// body the raw response body.
func ClassifyStatus(provider string, status int, code string, body []byte) *Error {
	e := &Error{
		Provider:     provider,
		ProviderCode: code,
		ProviderBody: truncate(body),
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuthentication
		e.Message = provider + " rejected our credentials"
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
		e.Message = "resource not found at " + provider
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimit
		e.Message = provider + " rate limit exceeded"
	case status == http.StatusRequestTimeout:
		e.Kind = KindTimeout
		e.Message = "request to " + provider + " timed out"
	case status >= 400 && status < 500:
		e.Kind = KindBadRequest
		e.Message = fmt.Sprintf("%s rejected the request (status %d)", provider, status)
	case status >= 500 && status < 600:
		e.Kind = KindServerError
		e.Message = fmt.Sprintf("%s returned a server error (status %d)", provider, status)
	default:
		e.Kind = KindUnknown
		e.Message = fmt.Sprintf("%s returned unexpected status %d", provider, status)
	}

	return e
}

func truncate(body []byte) string {
	if len(body) > maxBodyInError {
		return string(body[:maxBodyInError])
	}
	return string(body)
}
