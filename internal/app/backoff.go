package app

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/bft-labs/twitstream/internal/domain"
)

// Default backoff configuration values.
const (
	// RateLimitWindow is the span over which the upstream request quota resets.
	RateLimitWindow = 15 * time.Minute

	DefaultBackoffMin = time.Second
	DefaultBackoffMax = 320 * time.Second
)

// Rate limit response headers.
const (
	HeaderRateLimitRemaining = "x-rate-limit-remaining"
	HeaderRateLimitReset     = "x-rate-limit-reset"
)

// BackoffPolicy computes the delay before the next connection attempt.
// resp is nil when the attempt failed without a response (timeouts).
type BackoffPolicy interface {
	Backoff(resp *domain.ResponseMeta, lastAttempt time.Time) time.Duration
}

// BackoffFunc adapts a function to BackoffPolicy.
type BackoffFunc func(resp *domain.ResponseMeta, lastAttempt time.Time) time.Duration

// Backoff calls f.
func (f BackoffFunc) Backoff(resp *domain.ResponseMeta, lastAttempt time.Time) time.Duration {
	return f(resp, lastAttempt)
}

// Shape maps the closeness of two attempts, 0 (a full window apart) to 1
// (back to back), onto [0,1].
type Shape func(f float64) float64

// ShapeLinear grows the delay proportionally to closeness.
func ShapeLinear(f float64) float64 { return f }

// ShapeLogarithmic grows the delay quickly for close attempts and flattens out.
func ShapeLogarithmic(f float64) float64 {
	return math.Log1p(f * (math.E - 1))
}

// ShapeByName resolves a shape from configuration.
func ShapeByName(name string) (Shape, bool) {
	switch name {
	case "", "log", "logarithmic":
		return ShapeLogarithmic, true
	case "linear":
		return ShapeLinear, true
	}
	return nil, false
}

// RateLimitPolicy honors exhausted quota headers and otherwise backs off
// harder the closer the previous attempt was.
type RateLimitPolicy struct {
	Window time.Duration
	Min    time.Duration
	Max    time.Duration
	Shape  Shape
	Now    func() time.Time
}

// NewRateLimitPolicy returns a policy with default bounds and the given shape.
func NewRateLimitPolicy(shape Shape) *RateLimitPolicy {
	return &RateLimitPolicy{
		Window: RateLimitWindow,
		Min:    DefaultBackoffMin,
		Max:    DefaultBackoffMax,
		Shape:  shape,
	}
}

// Backoff implements BackoffPolicy.
func (p *RateLimitPolicy) Backoff(resp *domain.ResponseMeta, lastAttempt time.Time) time.Duration {
	window, minWait, maxWait := p.Window, p.Min, p.Max
	if window <= 0 {
		window = RateLimitWindow
	}
	if maxWait < minWait {
		maxWait = minWait
	}
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}

	if quotaExhausted(resp) {
		reset := resetTime(resp.Header, now.Add(window))
		wait := reset.Sub(now)
		if wait > window {
			wait = window
		}
		if wait < 0 {
			wait = 0
		}
		return wait
	}

	elapsed := now.Sub(lastAttempt)
	if elapsed > window {
		elapsed = window
	}
	if elapsed < 0 {
		elapsed = 0
	}
	delta := float64(elapsed) / float64(window)

	shape := p.Shape
	if shape == nil {
		shape = ShapeLogarithmic
	}
	wait := minWait + time.Duration(shape(1-delta)*float64(maxWait-minWait))
	if wait < minWait {
		wait = minWait
	}
	return wait
}

func quotaExhausted(resp *domain.ResponseMeta) bool {
	if resp == nil {
		return false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 420 {
		return true
	}
	v := resp.Header.Get(HeaderRateLimitRemaining)
	if v == "" {
		return false
	}
	remaining, err := strconv.Atoi(v)
	return err == nil && remaining == 0
}

func resetTime(h http.Header, fallback time.Time) time.Time {
	v := h.Get(HeaderRateLimitReset)
	if v == "" {
		return fallback
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return time.Unix(secs, 0)
}
