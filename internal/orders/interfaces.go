package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/models"
)

// RepositoryInterface defines the persistence operations the order service needs
type RepositoryInterface interface {
	GetGig(ctx context.Context, gigID uuid.UUID) (*Gig, error)
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, filter ListFilter) ([]*Order, int64, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, filter ListFilter) ([]*Order, int64, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status, reason *string) (*Order, error)
	AppendDeliverable(ctx context.Context, id uuid.UUID, d Deliverable) (*Order, error)
	AppendRevisionRequest(ctx context.Context, id uuid.UUID, rev RevisionRequest) (*Order, error)
	ReplaceRevisionRequests(ctx context.Context, id uuid.UUID, expected Status, expectedUpdatedAt time.Time, next Status, revs []RevisionRequest) (*Order, error)
	AddReview(ctx context.Context, id uuid.UUID, review Review) (*Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, transactionID string, amount float64, currency models.Currency) (*Order, error)
	SetRefundID(ctx context.Context, id uuid.UUID, refundID string) error
	CreateMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, orderID uuid.UUID, limit, offset int) ([]*Message, int64, error)
	MarkMessagesRead(ctx context.Context, orderID, recipientID uuid.UUID) error
}

// PaymentProcessor verifies card payments and issues refunds
type PaymentProcessor interface {
	VerifyPayment(ctx context.Context, paymentIntentID string, expectedCents int64, currency models.Currency) error
	RefundOrder(ctx context.Context, orderID uuid.UUID, transactionID string, amountCents int64, currency models.Currency) (string, error)
}

// RiskScreener runs the AI risk signal against a freshly placed order
type RiskScreener interface {
	ScreenOrder(ctx context.Context, orderID uuid.UUID) error
}
