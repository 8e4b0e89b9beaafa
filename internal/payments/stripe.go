package payments

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v83"
)

// Intent is the part of a Stripe payment intent the service checks
type Intent struct {
	ID       string
	Status   string
	Amount   int64
	Currency string
}

// StripeClientInterface is the slice of the Stripe API the service uses
type StripeClientInterface interface {
	GetPaymentIntent(ctx context.Context, id string) (*Intent, error)
	CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, idempotencyKey string, metadata map[string]string) (string, error)
}

// StripeClient calls Stripe through stripe-go
type StripeClient struct {
	sc *stripe.Client
}

// NewStripeClient creates a client with the given secret key
func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{sc: stripe.NewClient(secretKey)}
}

// GetPaymentIntent retrieves a payment intent
func (c *StripeClient) GetPaymentIntent(ctx context.Context, id string) (*Intent, error) {
	pi, err := c.sc.V1PaymentIntents.Retrieve(ctx, id, &stripe.PaymentIntentRetrieveParams{})
	if err != nil {
		return nil, err
	}
	return &Intent{
		ID:       pi.ID,
		Status:   string(pi.Status),
		Amount:   pi.Amount,
		Currency: strings.ToUpper(string(pi.Currency)),
	}, nil
}

// CreateRefund refunds amountCents of a payment intent. Stripe deduplicates
// calls sharing an idempotency key.
func (c *StripeClient) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, idempotencyKey string, metadata map[string]string) (string, error) {
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amountCents),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.SetIdempotencyKey(idempotencyKey)
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	refund, err := c.sc.V1Refunds.Create(ctx, params)
	if err != nil {
		return "", err
	}
	return refund.ID, nil
}
