// Package retry repeats idempotent transport calls with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"
)

// Policy describes how often and how patiently an operation is retried
type Policy struct {
	// Attempts is the total number of calls, including the first
	Attempts   int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// Jitter is the largest random fraction added to each delay
	Jitter float64
	// RetryStatuses lists HTTP status codes worth another attempt
	RetryStatuses []int
	// RetryMessages are matched case-insensitively against other errors
	RetryMessages []string
}

// DefaultPolicy is used for calendar writes
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
		RetryStatuses: []int{
			http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		RetryMessages: []string{
			"connection refused",
			"connection reset",
			"no such host",
			"temporary failure",
			"timeout",
		},
	}
}

// Operation is a call that may be repeated
type Operation func(ctx context.Context) error

// Retryer runs operations under a Policy
type Retryer struct {
	policy Policy
	logger *slog.Logger
}

// New creates a Retryer. A policy with fewer than one attempt runs once.
func New(policy Policy, logger *slog.Logger) *Retryer {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Retryer{
		policy: policy,
		logger: logger,
	}
}

// Do calls op until it succeeds, fails permanently or the attempts run out.
// A permanent failure is returned unchanged.
func (r *Retryer) Do(ctx context.Context, op Operation) error {
	started := time.Now()

	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			if attempt > 1 {
				r.logger.Info("Operation succeeded after retry",
					"attempt", attempt,
					"elapsed", time.Since(started))
			}
			return nil
		}

		if !r.Retriable(err) {
			r.logger.Debug("Giving up on permanent error",
				"attempt", attempt,
				"error", err)
			return err
		}
		if attempt == r.policy.Attempts {
			break
		}

		wait := r.Backoff(attempt)
		r.logger.Debug("Retrying after delay",
			"attempt", attempt+1,
			"attempts", r.policy.Attempts,
			"delay", wait,
			"error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", errors.Join(ctx.Err(), err))
		case <-timer.C:
		}
	}

	r.logger.Warn("Retries exhausted",
		"attempts", r.policy.Attempts,
		"elapsed", time.Since(started),
		"error", err)

	return fmt.Errorf("operation failed after %d attempts: %w", r.policy.Attempts, err)
}

// Backoff returns the wait after the given failed attempt (1-based)
func (r *Retryer) Backoff(attempt int) time.Duration {
	wait := float64(r.policy.BaseDelay) * math.Pow(r.policy.Multiplier, float64(attempt-1))
	wait = math.Min(wait, float64(r.policy.MaxDelay))

	if r.policy.Jitter > 0 {
		wait += rand.Float64() * r.policy.Jitter * wait
	}

	return time.Duration(wait)
}

// Retriable reports whether err looks transient
func (r *Retryer) Retriable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return slices.Contains(r.policy.RetryStatuses, statusErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	return slices.ContainsFunc(r.policy.RetryMessages, func(s string) bool {
		return strings.Contains(msg, strings.ToLower(s))
	})
}

// StatusError is an unexpected HTTP response status
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s from %s", e.Status, e.URL)
}

// NewStatusError records the status of resp for url
func NewStatusError(code int, status, url string) *StatusError {
	if status == "" {
		status = fmt.Sprintf("%d %s", code, http.StatusText(code))
	}
	return &StatusError{
		Code:   code,
		Status: status,
		URL:    url,
	}
}
