package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitProblemType  = "https://api.confession-platform.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// RateLimitStore is the sliding-window persistence the middleware needs.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}

// IdentifierFunc scopes a limit to a caller attribute, typically the client IP.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule is one sliding-window limit. Rules with no identifier, a
// non-positive limit, or a non-positive window are ignored.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter evaluates rules against a shared store. A store outage fails
// open: the request proceeds and the failure is logged.
type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// verdict is the outcome of one rule evaluation, also feeding the
// X-RateLimit response headers.
type verdict struct {
	allowed    bool
	limit      int
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// ProblemDetails is the RFC 9457 payload returned on a tripped limit.
type ProblemDetails struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail"`
	Instance   string         `json:"instance"`
	RetryAfter int            `json:"retry_after"`
	TraceID    string         `json:"trace_id,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// NewRateLimiter builds the shared limiter used by the route registrar.
func NewRateLimiter(store RateLimitStore, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: log, now: time.Now}
}

// WithClock overrides the limiter clock for deterministic tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier scopes a rule to the caller's IP address.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// RateLimit enforces the given rules. When several rules apply, the response
// headers describe the strictest one.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if len(active) == 0 || rl.store == nil {
			c.Next()
			return
		}

		now := rl.now()
		var strictest *verdict

		for _, rule := range active {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				continue
			}

			v, err := rl.evaluate(c.Request.Context(), rule, rule.Name+":"+identifier, now)
			if err != nil {
				rl.logger.Warn("rate limit check failed",
					zap.String("rule", rule.Name),
					zap.Error(err),
				)
				continue
			}

			if strictest == nil || stricterThan(v, *strictest) {
				copied := v
				strictest = &copied
			}

			if !v.allowed {
				writeRateLimitHeaders(c, v)
				rl.reject(c, v)
				return
			}
		}

		if strictest != nil {
			writeRateLimitHeaders(c, *strictest)
		}
		c.Next()
	}
}

func (rl *RateLimiter) evaluate(ctx context.Context, rule RateLimitRule, key string, now time.Time) (verdict, error) {
	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return verdict{}, err
	}

	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return verdict{}, err
	}

	v := verdict{allowed: true, limit: rule.Limit, reset: now.Add(rule.Window)}

	oldest, hasAttempts, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return verdict{}, err
	}
	if hasAttempts {
		v.reset = oldest.Add(rule.Window)
	}

	if count >= rule.Limit {
		v.allowed = false
		v.retryAfter = clampDuration(v.reset.Sub(now))
		return v, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return verdict{}, err
	}
	count++

	v.remaining = rule.Limit - count
	if v.remaining < 0 {
		v.remaining = 0
	}
	v.retryAfter = clampDuration(v.reset.Sub(now))
	if !hasAttempts {
		v.reset = now.Add(rule.Window)
	}

	return v, nil
}

// stricterThan orders verdicts: denials first, then fewer remaining slots,
// then the earlier reset.
func stricterThan(candidate, current verdict) bool {
	if candidate.allowed != current.allowed {
		return !candidate.allowed
	}
	if candidate.remaining != current.remaining {
		return candidate.remaining < current.remaining
	}
	return candidate.reset.Before(current.reset)
}

func writeRateLimitHeaders(c *gin.Context, v verdict) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(v.limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(v.reset.Unix(), 10))

	if !v.allowed {
		headers.Set("Retry-After", strconv.Itoa(retrySeconds(v.retryAfter)))
	}
}

func (rl *RateLimiter) reject(c *gin.Context, v verdict) {
	seconds := retrySeconds(v.retryAfter)

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", seconds),
		Instance:   instance,
		RetryAfter: seconds,
		TraceID:    GetTraceID(c),
	})
}

func retrySeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 0 {
		return 0
	}
	return seconds
}

func clampDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
