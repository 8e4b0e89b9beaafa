package payments

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/logger"
	"github.com/richxcame/gigmarket/pkg/models"
	"github.com/richxcame/gigmarket/pkg/resilience"
	"github.com/stripe/stripe-go/v83"
)

const intentSucceeded = "succeeded"

// Service verifies order payments and issues refunds through Stripe
type Service struct {
	stripeClient StripeClientInterface
	breaker      *resilience.CircuitBreaker
	retry        resilience.RetryConfig
}

// NewService creates a payment service. breaker may be nil.
func NewService(stripeClient StripeClientInterface, breaker *resilience.CircuitBreaker) *Service {
	retry := resilience.ConservativeRetryConfig()
	retry.RetryableChecker = isRetryableStripeError
	return &Service{
		stripeClient: stripeClient,
		breaker:      breaker,
		retry:        retry,
	}
}

// RefundIdempotencyKey is the Stripe idempotency key of an order refund.
// Every retry of the same refund reuses it.
func RefundIdempotencyKey(orderID uuid.UUID) string {
	return "refund-" + orderID.String()
}

// VerifyPayment checks that a payment intent succeeded for the expected
// amount and currency
func (s *Service) VerifyPayment(ctx context.Context, paymentIntentID string, expectedCents int64, currency models.Currency) error {
	out, err := s.call(ctx, func(ctx context.Context) (interface{}, error) {
		return s.stripeClient.GetPaymentIntent(ctx, paymentIntentID)
	})
	if err != nil {
		logger.WithContext(ctx).Error("failed to retrieve payment intent",
			zap.String("payment_intent_id", paymentIntentID),
			zap.Error(err),
		)
		return wrapStripeError(err, "failed to verify payment")
	}
	intent := out.(*Intent)

	switch {
	case intent.Status != intentSucceeded:
		return common.NewBadRequestError("payment has not succeeded", nil)
	case intent.Amount != expectedCents:
		return common.NewBadRequestError("payment amount does not match order", nil)
	case intent.Currency != string(currency):
		return common.NewBadRequestError("payment currency does not match order", nil)
	}
	return nil
}

// RefundOrder refunds an order payment in full and returns the refund id
func (s *Service) RefundOrder(ctx context.Context, orderID uuid.UUID, transactionID string, amountCents int64, currency models.Currency) (string, error) {
	key := RefundIdempotencyKey(orderID)
	metadata := map[string]string{
		"order_id": orderID.String(),
		"currency": string(currency),
	}

	out, err := s.call(ctx, func(ctx context.Context) (interface{}, error) {
		return s.stripeClient.CreateRefund(ctx, transactionID, amountCents, key, metadata)
	})
	if err != nil {
		refundsTotal.WithLabelValues("failed").Inc()
		return "", wrapStripeError(err, "failed to process refund")
	}

	refundID := out.(string)
	refundsTotal.WithLabelValues("succeeded").Inc()
	logger.WithContext(ctx).Info("refund processed",
		zap.String("order_id", orderID.String()),
		zap.String("transaction_id", transactionID),
		zap.String("refund_id", refundID),
		zap.Int64("amount_cents", amountCents),
	)
	return refundID, nil
}

func (s *Service) call(ctx context.Context, op resilience.Operation) (interface{}, error) {
	if s.breaker == nil {
		return resilience.Retry(ctx, s.retry, op)
	}
	return resilience.RetryWithBreaker(ctx, s.retry, s.breaker, op)
}

// isRetryableStripeError retries transport failures and Stripe 5xx/429
// answers. Card and request errors are final.
func isRetryableStripeError(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return resilience.IsRetryableHTTPStatus(stripeErr.HTTPStatusCode)
	}
	return true
}

func wrapStripeError(err error, fallbackMessage string) error {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*common.AppError); ok {
		return appErr
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return common.NewServiceUnavailableError("payment gateway unavailable")
	}

	return common.NewInternalError(fallbackMessage, fmt.Errorf("stripe: %w", err))
}
