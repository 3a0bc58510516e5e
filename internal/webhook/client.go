// Package webhook delivers evaluation reports to an HTTP endpoint with
// retries.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client posts JSON payloads to a configured webhook endpoint.
type Client struct {
	httpClient  *http.Client
	config      *Config
	retryConfig *RetryConfig
	logger      *zap.Logger
}

// NewClient creates a webhook client, filling in defaults for method,
// timeout and retry behaviour.
func NewClient(config *Config, retryConfig *RetryConfig, logger *zap.Logger) *Client {
	if config.Method == "" {
		config.Method = "POST"
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second, // per-request timeout
		},
		config:      config,
		retryConfig: retryConfig,
		logger:      logger,
	}
}

// Send delivers the payload, retrying on transient failures until the
// overall timeout expires.
func (c *Client) Send(ctx context.Context, payload any) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var lastErr error

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt, c.retryConfig)
			c.logger.Debug("webhook retry",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", c.retryConfig.MaxRetries),
				zap.Duration("delay", delay))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("webhook timeout after %d attempts: %w", attempt, ctx.Err())
			}
		}

		statusCode, err := c.sendRequest(ctx, jsonPayload)

		if err == nil && statusCode >= 200 && statusCode < 300 {
			c.logger.Debug("webhook delivered", zap.Int("status", statusCode))
			return nil
		}

		if err != nil {
			lastErr = fmt.Errorf("attempt %d failed: %w", attempt+1, err)
		} else {
			lastErr = fmt.Errorf("attempt %d failed with status %d", attempt+1, statusCode)
		}

		if statusCode > 0 && !isRetryableStatus(statusCode) {
			c.logger.Debug("webhook status not retryable", zap.Int("status", statusCode))
			return lastErr
		}
	}

	return fmt.Errorf("webhook failed after %d attempts: %w", c.retryConfig.MaxRetries+1, lastErr)
}

func (c *Client) sendRequest(ctx context.Context, payload []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, c.config.Method, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	switch c.config.AuthType {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	case "api-key":
		req.Header.Set("X-API-Key", c.config.AuthToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Drain response body to reuse the connection.
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
