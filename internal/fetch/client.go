// Package fetch downloads hourly series from public HTTP APIs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
)

var ErrStatus = errors.New("unexpected HTTP status")

// Client wraps an http.Client with retry on rate limiting and server
// errors.
type Client struct {
	HTTP       *http.Client
	Logger     *zap.Logger
	MaxRetries int
	// RetryWait is the first backoff; it doubles per attempt.
	RetryWait time.Duration
}

// NewClient returns a Client with a 30s timeout and 5 attempts.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		HTTP:       &http.Client{Timeout: 30 * time.Second},
		Logger:     logger,
		MaxRetries: 5,
		RetryWait:  time.Second,
	}
}

type apiError struct {
	statusCode int
	message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.statusCode, e.message)
}

func (e *apiError) Unwrap() error { return ErrStatus }

func isRetryable(err error) bool {
	var ae *apiError
	if !errors.As(err, &ae) {
		return true // network errors are retryable
	}
	return ae.statusCode == http.StatusTooManyRequests || ae.statusCode >= 500
}

// Do sends the request built by newReq, retrying with exponential backoff.
// newReq is called per attempt so request bodies can be replayed.
func (c *Client) Do(ctx context.Context, newReq func(context.Context) (*http.Request, error)) ([]byte, error) {
	attempts := c.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		req, err := newReq(ctx)
		if err != nil {
			return nil, err
		}

		body, err := c.doRequest(req)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}
		wait := time.Duration(math.Pow(2, float64(attempt))) * c.RetryWait
		c.Logger.Warn("request failed, retrying",
			zap.String("url", req.URL.String()),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func (c *Client) doRequest(req *http.Request) ([]byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apiError{statusCode: resp.StatusCode, message: truncate(string(body), 200)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// monthChunks splits [start, end) into calendar-month pieces.
func monthChunks(start, end time.Time) [][2]time.Time {
	var chunks [][2]time.Time
	for cs := start; cs.Before(end); {
		ce := time.Date(cs.Year(), cs.Month()+1, 1, 0, 0, 0, 0, cs.Location())
		if ce.After(end) {
			ce = end
		}
		chunks = append(chunks, [2]time.Time{cs, ce})
		cs = ce
	}
	return chunks
}
