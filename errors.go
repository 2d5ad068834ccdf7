package gemguard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors.
var (
	ErrAuthFailed       = errors.New("gemguard: authentication failed")
	ErrPermissionDenied = errors.New("gemguard: permission denied")
	ErrNotFound         = errors.New("gemguard: model not found")
	ErrInvalidRequest   = errors.New("gemguard: invalid request")
	ErrRateLimited      = errors.New("gemguard: rate limited by provider")
	ErrServerError      = errors.New("gemguard: provider server error")
	ErrUnavailable      = errors.New("gemguard: provider unavailable")
	ErrTimeout          = errors.New("gemguard: request timed out")
	ErrCircuitOpen      = errors.New("gemguard: circuit breaker open")
)

// StatusError carries an HTTP-style status code reported by a provider.
// Unwrap maps the code onto the matching sentinel so errors.Is works.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemguard: status %d", e.Code)
	}
	return fmt.Sprintf("gemguard: status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusUnauthorized:
		return ErrAuthFailed
	case e.Code == http.StatusForbidden:
		return ErrPermissionDenied
	case e.Code == http.StatusNotFound:
		return ErrNotFound
	case e.Code == http.StatusBadRequest:
		return ErrInvalidRequest
	case e.Code == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Code == http.StatusRequestTimeout || e.Code == http.StatusGatewayTimeout:
		return ErrTimeout
	case e.Code == http.StatusServiceUnavailable:
		return ErrUnavailable
	case e.Code >= 500:
		return ErrServerError
	default:
		return nil
	}
}

// RetryError is returned when every attempt of a retried operation failed.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("gemguard: all %d attempts failed: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// BreakerOpenError is the rejection returned by an open CircuitBreaker.
// It matches ErrCircuitOpen.
type BreakerOpenError struct {
	Name       string
	Failures   int
	RetryAfter float64 // seconds until the breaker admits a trial call
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("gemguard: circuit breaker %q open after %d failures, retry after %.1fs",
		e.Name, e.Failures, e.RetryAfter)
}

func (e *BreakerOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// nonRetryablePatterns are matched against error text when the error carries
// no sentinel, e.g. errors produced by an SDK that only reports a message.
var nonRetryablePatterns = []string{"invalid api key", "401", "403", "404"}

// IsNonRetryable returns true for auth, permission and not-found failures.
// Retrying these cannot succeed.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrNotFound) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range nonRetryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsRetryable is the complement of IsNonRetryable for non-nil errors.
func IsRetryable(err error) bool {
	return err != nil && !IsNonRetryable(err)
}

// IsRateLimit reports whether err is a provider rate-limit or quota failure.
func IsRateLimit(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota")
}

// Hint returns a short operator-facing explanation for common failures.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCircuitOpen):
		return "Circuit breaker open. Too many recent failures; wait for the breaker timeout."
	case errors.Is(err, ErrAuthFailed):
		return "Invalid API key. Check the GEMINI_API_KEY environment variable."
	case errors.Is(err, ErrPermissionDenied):
		return "Permission denied. Verify API key has correct permissions."
	case errors.Is(err, ErrNotFound):
		return "Model not found. Check model name spelling."
	case IsRateLimit(err):
		return "Rate limit exceeded. Try reducing request frequency or upgrading quota."
	case errors.Is(err, ErrUnavailable):
		return "Service unavailable. The Gemini API may be experiencing issues."
	case errors.Is(err, ErrServerError):
		return "Internal server error. Retry after short delay."
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "Request timed out. Check network connection or increase timeout."
	case errors.Is(err, ErrInvalidRequest):
		return "Invalid request. Check prompt and generation parameters."
	default:
		return "Unexpected error. See the error message for details."
	}
}
