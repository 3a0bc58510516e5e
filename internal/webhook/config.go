package webhook

import "time"

// Delivery defaults. Reports are small JSON documents posted at the end
// of a run, so the overall budget leans toward riding out short endpoint
// outages rather than failing fast.
const (
	DefaultTimeout      = 30 * time.Second
	defaultMaxRetries   = 3
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 30 * time.Second
	defaultMultiplier   = 2.0
)

// Config describes the endpoint a run report is delivered to.
type Config struct {
	URL       string            // endpoint URL
	Method    string            // HTTP method, POST when empty
	Headers   map[string]string // extra request headers
	Timeout   time.Duration     // overall budget across all attempts
	AuthType  string            // none, bearer or api-key
	AuthToken string            // token for bearer/api-key auth
}

// RetryConfig shapes the backoff between delivery attempts.
type RetryConfig struct {
	MaxRetries   int           // attempts after the first
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // backoff ceiling
	Multiplier   float64       // growth factor per attempt
}

// DefaultRetryConfig returns the delivery retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:   defaultMaxRetries,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		Multiplier:   defaultMultiplier,
	}
}
