package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/gigmarket/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestIsPostgresRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"connection exception class", &pgconn.PgError{Code: "08006"}, true},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"disk full", &pgconn.PgError{Code: "53100"}, false},
		{"out of memory", &pgconn.PgError{Code: "53200"}, false},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"wrapped retryable", fmt.Errorf("upsert: %w", &pgconn.PgError{Code: "40001"}), true},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isPostgresRetryable(tt.err))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert report: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestResolveQueryTimeout(t *testing.T) {
	defaultTimeout := time.Duration(config.DefaultDatabaseQueryTimeout) * time.Second

	assert.Equal(t, defaultTimeout, resolveQueryTimeout())
	assert.Equal(t, defaultTimeout, resolveQueryTimeout(0))
	assert.Equal(t, defaultTimeout, resolveQueryTimeout(-3))
	assert.Equal(t, 4*time.Second, resolveQueryTimeout(4))
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func(ctx context.Context) error {
		attempts++
		return &pgconn.PgError{Code: "23505"}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_RetriesTransientError(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWithQueryTimeout_SetsDeadline(t *testing.T) {
	ctx, cancel := WithQueryTimeout(context.Background(), 2)
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, 500*time.Millisecond)
}
