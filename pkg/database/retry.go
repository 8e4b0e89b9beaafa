package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/gigmarket/pkg/config"
	"github.com/richxcame/gigmarket/pkg/resilience"
)

// retryConfig is tuned for transient Postgres failures such as serialization
// conflicts on the fraud case upsert.
var retryConfig = resilience.RetryConfig{
	MaxAttempts:       3,
	InitialBackoff:    100 * time.Millisecond,
	MaxBackoff:        2 * time.Second,
	BackoffMultiplier: 2.0,
	EnableJitter:      true,
	RetryableChecker:  isPostgresRetryable,
}

// WithRetry runs op, retrying only errors Postgres reports as transient.
func WithRetry(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := resilience.Retry(ctx, retryConfig, func(ctx context.Context) (interface{}, error) {
		return nil, op(ctx)
	})
	return err
}

func isPostgresRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03", // lock_not_available
			"53000", // insufficient_resources
			"53300", // too_many_connections
			"53400", // configuration_limit_exceeded
			"57P01", // admin_shutdown
			"57P02", // crash_shutdown
			"57P03": // cannot_connect_now
			return true
		}
		return strings.HasPrefix(pgErr.Code, "08")
	}

	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

func resolveQueryTimeout(seconds ...int) time.Duration {
	timeout := config.DefaultDatabaseQueryTimeout
	if len(seconds) > 0 && seconds[0] > 0 {
		timeout = seconds[0]
	}
	return time.Duration(timeout) * time.Second
}

// IsUniqueViolation reports whether err is a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
