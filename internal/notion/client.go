// Package notion provides a client for the Notion databases dayflow reads
// from and writes to.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"time"
)

const defaultAPIURL = "https://api.notion.com/v1"

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion API status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("notion API status %d: %s", e.StatusCode, e.Message)
}

// Options configures a Client.
type Options struct {
	Token        string
	Version      string
	ReadProperty string
	URLProperty  string
	Timeout      time.Duration
	MaxRetries   int

	// APIURL and HTTPClient are overridden in tests.
	APIURL     string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the Notion REST API.
type Client struct {
	token        string
	version      string
	readProperty string
	urlProperty  string
	apiURL       string
	maxRetries   int
	client       *http.Client
	logger       *slog.Logger

	backoff func(attempt int) time.Duration
}

// NewClient creates a new Notion client.
func NewClient(opts Options) *Client {
	c := &Client{
		token:        opts.Token,
		version:      opts.Version,
		readProperty: opts.ReadProperty,
		urlProperty:  opts.URLProperty,
		apiURL:       opts.APIURL,
		maxRetries:   opts.MaxRetries,
		client:       opts.HTTPClient,
		backoff:      exponentialBackoff,
	}
	if c.version == "" {
		c.version = "2022-06-28"
	}
	if c.readProperty == "" {
		c.readProperty = "Did I read it"
	}
	if c.apiURL == "" {
		c.apiURL = defaultAPIURL
	}
	if c.maxRetries < 1 {
		c.maxRetries = 3
	}
	if c.client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		c.client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c.logger = logger.With("component", "notion.client")
	return c
}

// Exponential backoff: 2^attempt seconds (2s, 4s, 8s).
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// doWithRetry sends a JSON request, retrying on rate limits, server errors
// and timeouts.
func (c *Client) doWithRetry(ctx context.Context, method, path string, body, out any) error {
	var lastErr error

	for attempt := range c.maxRetries {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.logger.InfoContext(ctx, "Retrying Notion API call after backoff",
				"path", path,
				"attempt", attempt+1,
				"max_attempts", c.maxRetries,
				"backoff_seconds", backoff.Seconds())

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.do(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return err
		}
		c.logger.WarnContext(ctx, "Retryable error encountered",
			"path", path,
			"attempt", attempt+1,
			"error", err)
	}

	c.logger.ErrorContext(ctx, "Max retries exceeded",
		"path", path,
		"max_attempts", c.maxRetries,
		"last_error", lastErr)
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryableError determines if an error should be retried.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorContext(ctx, "HTTP request failed",
			"path", path,
			"error", err,
			"duration_ms", duration.Milliseconds())
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.logger.DebugContext(ctx, "Received response from Notion API",
		"path", path,
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(data)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
