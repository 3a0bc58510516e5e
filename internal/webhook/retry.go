package webhook

import (
	"math"
	"math/rand"
	"time"
)

// jitterFraction spreads retry delays so that many graders reporting to
// the same endpoint do not retry in lockstep.
const jitterFraction = 0.1

// backoffDelay returns the delay before the given retry attempt:
// exponential growth capped at MaxDelay, with the jitter applied in
// both directions.
func backoffDelay(attempt int, config *RetryConfig) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	jitter := delay * jitterFraction
	delay += (rand.Float64()*2 - 1) * jitter

	return time.Duration(delay)
}

// isRetryableStatus reports whether an HTTP status code should trigger
// a retry.
func isRetryableStatus(code int) bool {
	switch code {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
