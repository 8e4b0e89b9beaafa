package resilience

import (
	"context"

	"github.com/richxcame/gigmarket/pkg/logger"
	"go.uber.org/zap"
)

// FallbackFunc decides the result of a call rejected by an open breaker.
type FallbackFunc func(ctx context.Context, err error) (interface{}, error)

// NoopFallback surfaces ErrCircuitOpen to the caller.
func NoopFallback(ctx context.Context, err error) (interface{}, error) {
	return nil, ErrCircuitOpen
}

// StaticFallback answers with defaultValue while the breaker is open.
func StaticFallback(defaultValue interface{}) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.WithContext(ctx).Warn("circuit breaker open, returning static fallback", zap.Error(err))
		return defaultValue, nil
	}
}

// GracefulDegradation logs the degraded dependency and returns ErrCircuitOpen
// so the caller can apply its own fallback.
func GracefulDegradation(serviceName string) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.WithContext(ctx).Warn("circuit breaker open, dependency degraded",
			zap.String("dependency", serviceName),
			zap.Error(err),
		)
		return nil, ErrCircuitOpen
	}
}
