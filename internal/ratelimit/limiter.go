// Package ratelimit paces outbound pool API requests from its rate limit
// response headers.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// The pool backend enforces 120 requests per minute per route family.
// Headers override these once the first response comes back.
const (
	defaultLimit  = 120
	defaultWindow = time.Minute
	defaultBurst  = 10
)

// Bucket tracks the rate limit window for one route family
type Bucket struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
	limiter   *rate.Limiter
	mu        sync.Mutex
}

// RateLimiter manages rate limits per route family. Endpoints that differ
// only in their numeric path parameters (say, the field routes of two
// tournaments) share one bucket, matching how the pool backend counts them.
type RateLimiter struct {
	buckets map[string]*Bucket
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*Bucket),
		logger:  logger,
	}
}

// bucketKey collapses numeric path segments so all endpoints of a route
// family land in the same bucket: /tournaments/301/field and
// /tournaments/302/field both key as /tournaments/{id}/field.
func bucketKey(endpoint string) string {
	segments := strings.Split(endpoint, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

// getBucket retrieves or creates the bucket for an endpoint's route family
func (rl *RateLimiter) getBucket(endpoint string) *Bucket {
	key := bucketKey(endpoint)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if bucket, exists := rl.buckets[key]; exists {
		return bucket
	}

	bucket := &Bucket{
		Remaining: defaultLimit,
		Limit:     defaultLimit,
		ResetAt:   time.Now().Add(defaultWindow),
		limiter:   rate.NewLimiter(rate.Limit(float64(defaultLimit)/defaultWindow.Seconds()), defaultBurst),
	}

	rl.buckets[key] = bucket
	return bucket
}

// Wait blocks until the endpoint's route family may be called again, or
// until the context is done
func (rl *RateLimiter) Wait(ctx context.Context, endpoint string) error {
	bucket := rl.getBucket(endpoint)

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	if bucket.Remaining <= 0 && time.Now().Before(bucket.ResetAt) {
		waitDuration := time.Until(bucket.ResetAt)
		rl.logger.Warn("rate limit window exhausted, waiting",
			zap.String("endpoint", endpoint),
			zap.Duration("wait_duration", waitDuration),
		)

		timer := time.NewTimer(waitDuration)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := bucket.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	return nil
}

// UpdateFromHeaders updates the endpoint's bucket from a pool API response
func (rl *RateLimiter) UpdateFromHeaders(endpoint string, headers http.Header) {
	bucket := rl.getBucket(endpoint)

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	if remaining := headers.Get("X-RateLimit-Remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			bucket.Remaining = val
		}
	}

	if limit := headers.Get("X-RateLimit-Limit"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			bucket.Limit = val
		}
	}

	if resetAt, ok := parseReset(headers.Get("X-RateLimit-Reset")); ok {
		bucket.ResetAt = resetAt
	}

	if bucket.Limit > 0 {
		window := time.Until(bucket.ResetAt)
		if window > 0 {
			perSecond := float64(bucket.Limit) / window.Seconds()
			bucket.limiter = rate.NewLimiter(rate.Limit(perSecond), defaultBurst)
		}
	}

	rl.logger.Debug("rate limit updated from headers",
		zap.String("endpoint", endpoint),
		zap.Int("remaining", bucket.Remaining),
		zap.Int("limit", bucket.Limit),
		zap.Time("reset_at", bucket.ResetAt),
	)
}

// HandleRateLimitResponse records a 429 from the pool API and freezes the
// bucket until the backend says to retry
func (rl *RateLimiter) HandleRateLimitResponse(endpoint string, headers http.Header) error {
	bucket := rl.getBucket(endpoint)

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	var retryAfter time.Duration
	if retry := headers.Get("Retry-After"); retry != "" {
		if seconds, err := strconv.Atoi(retry); err == nil {
			retryAfter = time.Duration(seconds) * time.Second
		}
	}

	if retryAfter == 0 {
		if resetAt, ok := parseReset(headers.Get("X-RateLimit-Reset")); ok {
			retryAfter = time.Until(resetAt)
		}
	}

	if retryAfter <= 0 {
		retryAfter = 1 * time.Second
	}

	bucket.Remaining = 0
	bucket.ResetAt = time.Now().Add(retryAfter)

	rl.logger.Warn("rate limited by pool API",
		zap.String("endpoint", endpoint),
		zap.Duration("retry_after", retryAfter),
	)

	return fmt.Errorf("rate limited, retry after %v", retryAfter)
}

// parseReset reads a reset header value. The pool backend sends Unix
// seconds; its development server sends RFC3339.
func parseReset(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if unix, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(unix, 0), true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// GetStatus returns the current window for an endpoint's route family
func (rl *RateLimiter) GetStatus(endpoint string) (remaining int, limit int, resetAt time.Time) {
	bucket := rl.getBucket(endpoint)

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	return bucket.Remaining, bucket.Limit, bucket.ResetAt
}

// Reset clears all rate limit buckets (useful for testing)
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.buckets = make(map[string]*Bucket)
}
