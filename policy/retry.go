package policy

import (
	"errors"
	"time"

	"github.com/ineyio/gemguard"
)

// RateLimit returns a retry policy tuned for provider rate limits:
// longer base delay and a two minute cap.
func RateLimit(maxRetries int) gemguard.RetryPolicy {
	return gemguard.RetryPolicy{
		MaxRetries:      maxRetries,
		BaseDelay:       2 * time.Second,
		MaxDelay:        120 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
		NonRetryable:    gemguard.IsNonRetryable,
	}
}

// ServerError returns a retry policy tuned for transient 5xx failures.
func ServerError(maxRetries int) gemguard.RetryPolicy {
	return gemguard.RetryPolicy{
		MaxRetries:      maxRetries,
		BaseDelay:       time.Second,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
		NonRetryable:    gemguard.IsNonRetryable,
	}
}

// OnlyRateLimits is a NonRetryable predicate that retries rate-limit
// errors and nothing else.
func OnlyRateLimits(err error) bool {
	return !gemguard.IsRateLimit(err)
}

// OnlyServerErrors is a NonRetryable predicate that retries server,
// availability and timeout errors and nothing else.
func OnlyServerErrors(err error) bool {
	return !(errors.Is(err, gemguard.ErrServerError) ||
		errors.Is(err, gemguard.ErrUnavailable) ||
		errors.Is(err, gemguard.ErrTimeout))
}

// Never is a NonRetryable predicate that disables retries entirely.
func Never(error) bool { return true }
