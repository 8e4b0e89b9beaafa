package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/gigmarket/pkg/config"
)

// Rule is a request budget per fixed window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Limiter is a Redis backed fixed-window counter shared by all API replicas.
type Limiter struct {
	client redis.UniversalClient
	cfg    config.RateLimitConfig
	now    func() time.Time
}

// NewLimiter creates a limiter.
func NewLimiter(client redis.UniversalClient, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{client: client, cfg: cfg, now: time.Now}
}

// WithNow overrides the clock.
func (l *Limiter) WithNow(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// DefaultRule is the configured budget for general endpoints.
func (l *Limiter) DefaultRule() Rule {
	return Rule{Limit: l.cfg.DefaultLimit, Window: l.cfg.Window()}
}

// ReportSubmissionRule is the per-reporter budget for new reports.
func (l *Limiter) ReportSubmissionRule() Rule {
	return Rule{Limit: l.cfg.ReportSubmissions, Window: l.cfg.Window()}
}

// Allow counts one request for identity within scope.
func (l *Limiter) Allow(ctx context.Context, scope, identity string, rule Rule) (*Result, error) {
	if !l.cfg.Enabled || rule.Limit <= 0 {
		return &Result{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit}, nil
	}

	window := rule.Window
	if window <= 0 {
		window = time.Minute
	}

	now := l.now()
	windowStart := now.Truncate(window)
	resetAt := windowStart.Add(window)
	key := l.key(scope, identity, windowStart)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			return nil, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	remaining := rule.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	result := &Result{
		Allowed:   int(count) <= rule.Limit,
		Limit:     rule.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !result.Allowed {
		result.RetryAfter = resetAt.Sub(now)
	}
	return result, nil
}

func (l *Limiter) key(scope, identity string, windowStart time.Time) string {
	prefix := l.cfg.RedisPrefix
	if prefix == "" {
		prefix = "ratelimit"
	}
	return fmt.Sprintf("%s:%s:%s:%d", prefix, scope, identity, windowStart.Unix())
}
