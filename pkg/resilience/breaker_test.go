package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "ai-assessor-test",
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, NoopFallback)

	failing := func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("upstream unavailable")
	}

	for i := 0; i < 2; i++ {
		_, err := breaker.Execute(context.Background(), failing)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	called := false
	_, err := breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		called = true
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open breaker must not run the operation")
}

func TestCircuitBreaker_StaticFallback(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "static-fallback-test",
		Timeout:          time.Minute,
		FailureThreshold: 1,
	}, StaticFallback("neutral"))

	_, _ = breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})

	result, err := breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "live", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "neutral", result)
}

func TestCircuitBreaker_CanceledContext(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{Name: "ctx-test"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return "unreachable", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildSettings_Defaults(t *testing.T) {
	s := BuildSettings("payments", 0, 0, 0, 0)

	assert.Equal(t, "payments", s.Name)
	assert.Equal(t, time.Minute, s.Interval)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, uint32(5), s.FailureThreshold)
	assert.Equal(t, uint32(1), s.SuccessThreshold)
}

func TestNextBreakerName(t *testing.T) {
	assert.Equal(t, "named", nextBreakerName("named"))
	assert.Contains(t, nextBreakerName(""), "breaker-")
}
