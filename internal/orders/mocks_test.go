package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/models"
	"github.com/stretchr/testify/mock"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) GetGig(ctx context.Context, gigID uuid.UUID) (*Gig, error) {
	args := m.Called(ctx, gigID)
	gig, _ := args.Get(0).(*Gig)
	return gig, args.Error(1)
}

func (m *mockRepository) Create(ctx context.Context, o *Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*Order)
	return o, args.Error(1)
}

func (m *mockRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, filter ListFilter) ([]*Order, int64, error) {
	args := m.Called(ctx, buyerID, filter)
	out, _ := args.Get(0).([]*Order)
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, filter ListFilter) ([]*Order, int64, error) {
	args := m.Called(ctx, sellerID, filter)
	out, _ := args.Get(0).([]*Order)
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status, reason *string) (*Order, error) {
	args := m.Called(ctx, id, from, to, reason)
	o, _ := args.Get(0).(*Order)
	return o, args.Error(1)
}

func (m *mockRepository) AppendDeliverable(ctx context.Context, id uuid.UUID, d Deliverable) (*Order, error) {
	args := m.Called(ctx, id, d)
	o, _ := args.Get(0).(*Order)
	return o, args.Error(1)
}

func (m *mockRepository) AppendRevisionRequest(ctx context.Context, id uuid.UUID, rev RevisionRequest) (*Order, error) {
	args := m.Called(ctx, id, rev)
	o, _ := args.Get(0).(*Order)
	return o, args.Error(1)
}

func (m *mockRepository) ReplaceRevisionRequests(ctx context.Context, id uuid.UUID, expected Status, expectedUpdatedAt time.Time, next Status, revs []RevisionRequest) (*Order, error) {
	args := m.Called(ctx, id, expected, expectedUpdatedAt, next, revs)
	o, _ := args.Get(0).(*Order)
	return o, args.Error(1)
}

func (m *mockRepository) AddReview(ctx context.Context, id uuid.UUID, review Review) (*Order, error) {
	args := m.Called(ctx, id, review)
	o, _ := args.Get(0).(*Order)
	return o, args.Error(1)
}

func (m *mockRepository) MarkPaid(ctx context.Context, id uuid.UUID, transactionID string, amount float64, currency models.Currency) (*Order, error) {
	args := m.Called(ctx, id, transactionID, amount, currency)
	o, _ := args.Get(0).(*Order)
	return o, args.Error(1)
}

func (m *mockRepository) SetRefundID(ctx context.Context, id uuid.UUID, refundID string) error {
	args := m.Called(ctx, id, refundID)
	return args.Error(0)
}

func (m *mockRepository) CreateMessage(ctx context.Context, msg *Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockRepository) ListMessages(ctx context.Context, orderID uuid.UUID, limit, offset int) ([]*Message, int64, error) {
	args := m.Called(ctx, orderID, limit, offset)
	out, _ := args.Get(0).([]*Message)
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockRepository) MarkMessagesRead(ctx context.Context, orderID, recipientID uuid.UUID) error {
	args := m.Called(ctx, orderID, recipientID)
	return args.Error(0)
}

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) VerifyPayment(ctx context.Context, paymentIntentID string, expectedCents int64, currency models.Currency) error {
	args := m.Called(ctx, paymentIntentID, expectedCents, currency)
	return args.Error(0)
}

func (m *mockPayments) RefundOrder(ctx context.Context, orderID uuid.UUID, transactionID string, amountCents int64, currency models.Currency) (string, error) {
	args := m.Called(ctx, orderID, transactionID, amountCents, currency)
	return args.String(0), args.Error(1)
}

type mockScreener struct {
	mock.Mock
}

func (m *mockScreener) ScreenOrder(ctx context.Context, orderID uuid.UUID) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}
