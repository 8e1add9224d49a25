// Package httpx sends outbound HTTP requests with bounded retries.
package httpx

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Policy bounds how often and how slowly a request is retried.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultPolicy = Policy{MaxRetries: 3, BaseDelay: 250 * time.Millisecond, MaxDelay: 2 * time.Second}

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Body)
}

func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Do sends the request built by makeReq, rebuilding it for every attempt so
// bodies can be replayed. 429 and 5xx gateway statuses are retried with
// jittered exponential backoff; any other non-2xx status fails at once.
// The caller closes the returned body.
func Do(ctx context.Context, client *http.Client, p Policy, makeReq func() (*http.Request, error)) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, p, attempt-1); err != nil {
				return nil, err
			}
			log.Printf("[httpx] retry %d/%d after: %v", attempt, p.MaxRetries, lastErr)
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("execute request: %w", err)
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		lastErr = &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if !retryableStatus(resp.StatusCode) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func backoff(ctx context.Context, p Policy, attempt int) error {
	delay := p.BaseDelay << attempt
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	delay += time.Duration(rand.Int63n(int64(delay/2) + 1))
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
