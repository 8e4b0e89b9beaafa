package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Checker is a dependency check. A nil error means healthy.
type Checker func() error

// CheckerConfig bounds a single check.
type CheckerConfig struct {
	Timeout time.Duration
}

// DefaultCheckerConfig returns the 2s check timeout used by readiness checks.
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{Timeout: 2 * time.Second}
}

func (c CheckerConfig) context() (context.Context, context.CancelFunc) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCheckerConfig().Timeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

// DatabaseChecker pings a database/sql handle.
func DatabaseChecker(db *sql.DB) Checker {
	return DatabaseCheckerWithConfig(db, DefaultCheckerConfig())
}

// DatabaseCheckerWithConfig pings a database/sql handle with a custom timeout.
func DatabaseCheckerWithConfig(db *sql.DB, config CheckerConfig) Checker {
	return func() error {
		if db == nil {
			return errors.New("database connection is nil")
		}
		ctx, cancel := config.context()
		defer cancel()
		return db.PingContext(ctx)
	}
}

// PoolChecker pings a pgx pool.
func PoolChecker(pool *pgxpool.Pool) Checker {
	return func() error {
		if pool == nil {
			return errors.New("database pool is nil")
		}
		ctx, cancel := DefaultCheckerConfig().context()
		defer cancel()
		return pool.Ping(ctx)
	}
}

// RedisChecker pings Redis.
func RedisChecker(client redis.UniversalClient) Checker {
	return RedisCheckerWithConfig(client, DefaultCheckerConfig())
}

// RedisCheckerWithConfig pings Redis with a custom timeout.
func RedisCheckerWithConfig(client redis.UniversalClient, config CheckerConfig) Checker {
	return func() error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		ctx, cancel := config.context()
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

// HTTPEndpointChecker issues a GET and treats any status below 400 as healthy.
func HTTPEndpointChecker(url string) Checker {
	return HTTPEndpointCheckerWithConfig(url, DefaultCheckerConfig())
}

// HTTPEndpointCheckerWithConfig is HTTPEndpointChecker with a custom timeout.
func HTTPEndpointCheckerWithConfig(url string, config CheckerConfig) Checker {
	client := &http.Client{}
	return func() error {
		ctx, cancel := config.context()
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("unhealthy status code: %d", resp.StatusCode)
		}
		return nil
	}
}

// CompositeChecker runs every named checker and joins the failures.
func CompositeChecker(checkers map[string]Checker) Checker {
	return func() error {
		names := make([]string, 0, len(checkers))
		for name := range checkers {
			names = append(names, name)
		}
		sort.Strings(names)

		var failures []string
		for _, name := range names {
			if err := checkers[name](); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			}
		}
		if len(failures) > 0 {
			return errors.New(strings.Join(failures, "; "))
		}
		return nil
	}
}

// CachedChecker memoizes a checker result for ttl, errors included.
type CachedChecker struct {
	checker Checker
	ttl     time.Duration

	mu        sync.Mutex
	lastErr   error
	checkedAt time.Time
}

// NewCachedChecker wraps checker with a ttl cache.
func NewCachedChecker(checker Checker, ttl time.Duration) *CachedChecker {
	return &CachedChecker{checker: checker, ttl: ttl}
}

// Check returns the cached result or runs the checker.
func (c *CachedChecker) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.checkedAt.IsZero() && time.Since(c.checkedAt) < c.ttl {
		return c.lastErr
	}
	c.lastErr = c.checker()
	c.checkedAt = time.Now()
	return c.lastErr
}
