// Package answer is the HTTP client for the external answer pipeline.
// The engine has no knowledge of the pipeline's internals; it only posts a
// question and reads back an answer, so the same client serves the web API
// talking to the RAG service and the bot talking to the web API.
package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/askracha/askracha/internal/logging"
)

// Source is one document the pipeline grounded its answer on.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Answer is the pipeline's response to one question.
type Answer struct {
	Success      bool     `json:"success"`
	Answer       string   `json:"answer"`
	Sources      []Source `json:"sources"`
	ResponseTime float64  `json:"response_time"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// RateLimitedError reports an upstream 429. It is not retried; the caller
// owes the user a cooldown notice instead.
type RateLimitedError struct {
	RetryAfter int
	Message    string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited upstream, retry after %ds", e.RetryAfter)
}

// Client posts questions with a bounded timeout and bounded retries.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	retryAttempts int
	retryDelay    time.Duration
	logger        *logging.Logger
}

func NewClient(baseURL string, timeout time.Duration, retryAttempts int, retryDelay time.Duration, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		httpClient:    &http.Client{Timeout: timeout},
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
		logger:        logger.Named("answer"),
	}
}

type askRequest struct {
	Question string `json:"question"`
}

type rateLimitBody struct {
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// Ask posts a question and returns the pipeline's answer. Transient
// failures are retried with a fixed delay; a 429 is returned immediately
// as a RateLimitedError.
func (c *Client) Ask(ctx context.Context, question string) (*Answer, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		ans, retryable, err := c.ask(ctx, question)
		if err == nil {
			return ans, nil
		}
		if !retryable {
			return nil, err
		}

		lastErr = err
		c.logger.Warn("answer request failed, retrying",
			logging.WithField("attempt", attempt+1),
			logging.WithField("error", err.Error()),
		)
	}

	return nil, fmt.Errorf("answer request failed after %d attempts: %w", c.retryAttempts+1, lastErr)
}

func (c *Client) ask(ctx context.Context, question string) (ans *Answer, retryable bool, err error) {
	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/query", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var answer Answer
		if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
			return nil, false, fmt.Errorf("invalid answer payload: %w", err)
		}
		return &answer, false, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		var rl rateLimitBody
		_ = json.NewDecoder(resp.Body).Decode(&rl)
		return nil, false, &RateLimitedError{RetryAfter: rl.RetryAfter, Message: rl.Message}

	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("answer service returned %d", resp.StatusCode)

	default:
		return nil, false, fmt.Errorf("answer service returned %d", resp.StatusCode)
	}
}

// Healthy reports whether the answer service is reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
