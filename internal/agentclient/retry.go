package agentclient

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"
)

// RetryPolicy is explicit retry configuration, kept as data so the same
// policy is testable without touching the network.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay unit for backoff growth
	MaxDelay    time.Duration // cap on a single backoff sleep
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Backoff returns the sleep before retry number `retry` (1-based).
// Quadratic growth with jitter bounded to half the base term, so delays
// are strictly increasing across consecutive retries.
func (p RetryPolicy) Backoff(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	base := time.Duration(retry*retry) * p.BaseDelay
	jitter := time.Duration(rand.Int64N(int64(base/2 + 1)))
	d := base + jitter
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// retryableStatusError marks an HTTP status worth retrying (5xx, 429).
type retryableStatusError struct {
	statusCode int
	body       string
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.statusCode, e.body)
}

// retryableStatus reports whether the agent's HTTP status is transient.
// 4xx means the agent rejected the request as invalid; retrying it
// cannot succeed and only burns the timeout budget.
func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}
