package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// retryableStatuses are the HTTP statuses worth retrying: rate limiting and
// transient server-side failures.
var retryableStatuses = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// HTTPClient wraps net/http with a custom User-Agent, a per-request
// timeout, and bounded retry with capped exponential back-off on transient
// statuses and connection errors.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	retry     *RetryConfig
}

// NewHTTPClient builds a client shared by index, detail and image fetches.
func NewHTTPClient(userAgent string, timeout time.Duration, maxRetries int, logger *Logger) *HTTPClient {
	return &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		retry: &RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   2 * time.Second,
			MaxDelay:    30 * time.Second,
			Logger:      logger,
		},
	}
}

// Get fetches url and returns the response body. Non-retryable HTTP errors
// (404 and friends) fail immediately; retryable ones are attempted up to
// the configured bound.
func (c *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	body, _, err := c.do(ctx, url)
	return body, err
}

// Download fetches url and returns the body together with the Content-Type
// reported by the server. Used for image downloads.
func (c *HTTPClient) Download(ctx context.Context, url string) ([]byte, string, error) {
	return c.do(ctx, url)
}

func (c *HTTPClient) do(ctx context.Context, url string) ([]byte, string, error) {
	var body []byte
	var contentType string

	err := c.retry.Do("GET "+url, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			// Connection errors and timeouts are retryable.
			return fmt.Errorf("request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
			if _, retryable := retryableStatuses[resp.StatusCode]; retryable {
				return statusErr
			}
			return Permanent(statusErr)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		body = data
		contentType = resp.Header.Get("Content-Type")
		return nil
	})

	if err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}
