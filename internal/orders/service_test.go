package orders

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/eventbus"
	"github.com/richxcame/gigmarket/pkg/models"
	"github.com/richxcame/gigmarket/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo      *mockRepository
	payments  *mockPayments
	screener  *mockScreener
	publisher *mocks.MockPublisher
	service   *Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:      new(mockRepository),
		payments:  new(mockPayments),
		screener:  new(mockScreener),
		publisher: mocks.AnyPublish(),
	}
	f.service = NewService(f.repo, f.payments, f.screener, f.publisher)
	f.service.now = func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }
	return f
}

func testOrder(status Status) *Order {
	return &Order{
		ID:        uuid.New(),
		GigID:     uuid.New(),
		BuyerID:   uuid.New(),
		SellerID:  uuid.New(),
		Status:    status,
		Revisions: 2,
		Payment: models.Payment{
			Amount:   120.50,
			Currency: models.CurrencyUSD,
			Status:   models.PaymentStatusPending,
		},
		UpdatedAt: time.Date(2026, 4, 30, 9, 0, 0, 0, time.UTC),
	}
}

func assertAppError(t *testing.T, err error, code int, message string) {
	t.Helper()
	appErr, ok := common.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New()
	gig := &Gig{
		ID:       uuid.New(),
		SellerID: uuid.New(),
		IsActive: true,
		Packages: map[Package]GigPackage{
			PackageStandard: {Price: 80, DeliveryTime: 3, Revisions: 2},
		},
	}

	t.Run("places order from package terms", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetGig", mock.Anything, gig.ID).Return(gig, nil).Once()
		f.repo.On("Create", mock.Anything, mock.MatchedBy(func(o *Order) bool {
			return o.BuyerID == buyerID && o.SellerID == gig.SellerID &&
				o.Status == StatusPending && o.Price == 80 && o.Revisions == 2 &&
				o.Payment.Status == models.PaymentStatusPending &&
				o.ExpectedDelivery.Equal(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
		})).Return(nil).Once()
		f.screener.On("ScreenOrder", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(nil).Once()

		order, err := f.service.CreateOrder(ctx, buyerID, &CreateOrderRequest{GigID: gig.ID, Package: PackageStandard})
		require.NoError(t, err)
		assert.Equal(t, models.CurrencyUSD, order.Payment.Currency)
		f.repo.AssertExpectations(t)
		f.screener.AssertExpectations(t)
	})

	t.Run("screening failure does not fail the order", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetGig", mock.Anything, gig.ID).Return(gig, nil).Once()
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		f.screener.On("ScreenOrder", mock.Anything, mock.Anything).Return(errors.New("ai down")).Once()

		_, err := f.service.CreateOrder(ctx, buyerID, &CreateOrderRequest{GigID: gig.ID, Package: PackageStandard})
		assert.NoError(t, err)
	})

	t.Run("own gig", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetGig", mock.Anything, gig.ID).Return(gig, nil).Once()

		_, err := f.service.CreateOrder(ctx, gig.SellerID, &CreateOrderRequest{GigID: gig.ID, Package: PackageStandard})
		assertAppError(t, err, http.StatusBadRequest, "cannot order your own gig")
	})

	t.Run("inactive gig", func(t *testing.T) {
		f := newFixture()
		inactive := *gig
		inactive.IsActive = false
		f.repo.On("GetGig", mock.Anything, gig.ID).Return(&inactive, nil).Once()

		_, err := f.service.CreateOrder(ctx, buyerID, &CreateOrderRequest{GigID: gig.ID, Package: PackageStandard})
		assertAppError(t, err, http.StatusNotFound, "gig not found or inactive")
	})

	t.Run("missing package", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetGig", mock.Anything, gig.ID).Return(gig, nil).Once()

		_, err := f.service.CreateOrder(ctx, buyerID, &CreateOrderRequest{GigID: gig.ID, Package: PackagePremium})
		assertAppError(t, err, http.StatusBadRequest, "invalid package type")
	})

	t.Run("persistence error is generic", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetGig", mock.Anything, gig.ID).Return(gig, nil).Once()
		f.repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()

		_, err := f.service.CreateOrder(ctx, buyerID, &CreateOrderRequest{GigID: gig.ID, Package: PackageStandard})
		assertAppError(t, err, http.StatusInternalServerError, "failed to create order")
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("legal transition publishes event", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusPending)
		updated := *order
		updated.Status = StatusActive

		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("TransitionStatus", mock.Anything, order.ID, StatusPending, StatusActive, (*string)(nil)).Return(&updated, nil).Once()

		got, err := f.service.UpdateStatus(ctx, order.ID, order.SellerID, StatusActive)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, got.Status)
		assert.Equal(t, []string{eventbus.SubjectOrderStatusChanged}, f.publisher.PublishedSubjects())
	})

	t.Run("illegal transition", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusDelivered)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := f.service.UpdateStatus(ctx, order.ID, order.BuyerID, StatusCancelled)
		assertAppError(t, err, http.StatusConflict, "invalid status transition")
		f.repo.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("outsider", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusPending)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := f.service.UpdateStatus(ctx, order.ID, uuid.New(), StatusActive)
		assertAppError(t, err, http.StatusForbidden, "")
	})

	t.Run("role rules", func(t *testing.T) {
		tests := []struct {
			name    string
			from    Status
			to      Status
			byBuyer bool
			code    int
		}{
			{"buyer cannot accept", StatusPending, StatusActive, true, http.StatusForbidden},
			{"buyer cannot deliver", StatusActive, StatusDelivered, true, http.StatusForbidden},
			{"seller cannot complete", StatusDelivered, StatusCompleted, false, http.StatusForbidden},
			{"seller cannot open revision", StatusDelivered, StatusInRevision, false, http.StatusConflict},
			{"buyer cannot skip revision flow", StatusDelivered, StatusInRevision, true, http.StatusConflict},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture()
				order := testOrder(tt.from)
				f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

				actorID := order.SellerID
				if tt.byBuyer {
					actorID = order.BuyerID
				}
				_, err := f.service.UpdateStatus(ctx, order.ID, actorID, tt.to)
				assertAppError(t, err, tt.code, "")
				f.repo.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("exhausted quota cannot be bypassed", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusDelivered)
		order.Revisions = 1
		order.RevisionRequests = []RevisionRequest{{ID: uuid.New(), Status: RevisionApproved}}
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := f.service.UpdateStatus(ctx, order.ID, order.SellerID, StatusInRevision)
		assertAppError(t, err, http.StatusConflict, "")
		assert.Equal(t, 1, order.UsedRevisions())
		f.repo.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("buyer completes delivered order", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusDelivered)
		completed := *order
		completed.Status = StatusCompleted
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("TransitionStatus", mock.Anything, order.ID, StatusDelivered, StatusCompleted, (*string)(nil)).Return(&completed, nil).Once()

		got, err := f.service.UpdateStatus(ctx, order.ID, order.BuyerID, StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
	})

	t.Run("concurrent change surfaces as conflict", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusActive)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("TransitionStatus", mock.Anything, order.ID, StatusActive, StatusDelivered, (*string)(nil)).Return(nil, errConcurrentChange).Once()

		_, err := f.service.UpdateStatus(ctx, order.ID, order.SellerID, StatusDelivered)
		assertAppError(t, err, http.StatusConflict, "")
		assert.Empty(t, f.publisher.PublishedSubjects())
	})
}

func TestCancelOrder_Refunds(t *testing.T) {
	ctx := context.Background()
	txID := "pi_123"

	paidOrder := func() (*Order, *Order) {
		order := testOrder(StatusActive)
		order.Payment.Status = models.PaymentStatusPaid
		order.Payment.TransactionID = &txID
		cancelled := *order
		cancelled.Status = StatusCancelled
		cancelled.Payment.Status = models.PaymentStatusRefunded
		return order, &cancelled
	}

	t.Run("refund stored", func(t *testing.T) {
		f := newFixture()
		order, cancelled := paidOrder()
		reason := "buyer changed mind"

		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("TransitionStatus", mock.Anything, order.ID, StatusActive, StatusCancelled, &reason).Return(cancelled, nil).Once()
		f.payments.On("RefundOrder", mock.Anything, order.ID, txID, int64(12050), models.CurrencyUSD).Return("re_1", nil).Once()
		f.repo.On("SetRefundID", mock.Anything, order.ID, "re_1").Return(nil).Once()

		got, err := f.service.CancelOrder(ctx, order.ID, order.BuyerID, reason)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusRefunded, got.Payment.Status)
		require.NotNil(t, got.Payment.RefundID)
		assert.Equal(t, "re_1", *got.Payment.RefundID)
		f.payments.AssertExpectations(t)
	})

	t.Run("gateway failure keeps refunded status and queues reconciliation", func(t *testing.T) {
		f := newFixture()
		order, cancelled := paidOrder()
		reason := "seller unavailable"

		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("TransitionStatus", mock.Anything, order.ID, StatusActive, StatusCancelled, &reason).Return(cancelled, nil).Once()
		f.payments.On("RefundOrder", mock.Anything, order.ID, txID, int64(12050), models.CurrencyUSD).Return("", errors.New("card_declined")).Once()

		got, err := f.service.CancelOrder(ctx, order.ID, order.SellerID, reason)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusRefunded, got.Payment.Status)
		assert.Equal(t, []string{eventbus.SubjectOrderStatusChanged, eventbus.SubjectPaymentRefundFailed}, f.publisher.PublishedSubjects())
		f.repo.AssertNotCalled(t, "SetRefundID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("payment landing after the read is still refunded", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusActive)
		_, cancelled := paidOrder()
		cancelled.ID = order.ID
		reason := "paid while cancelling"

		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("TransitionStatus", mock.Anything, order.ID, StatusActive, StatusCancelled, &reason).Return(cancelled, nil).Once()
		f.payments.On("RefundOrder", mock.Anything, order.ID, txID, int64(12050), models.CurrencyUSD).Return("re_late", nil).Once()
		f.repo.On("SetRefundID", mock.Anything, order.ID, "re_late").Return(nil).Once()

		_, err := f.service.CancelOrder(ctx, order.ID, order.BuyerID, reason)
		require.NoError(t, err)
		f.payments.AssertExpectations(t)
		f.repo.AssertExpectations(t)
	})

	t.Run("already refunded row skips gateway", func(t *testing.T) {
		f := newFixture()
		order, cancelled := paidOrder()
		refundID := "re_old"
		cancelled.Payment.RefundID = &refundID
		reason := "retry of a cancel"

		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("TransitionStatus", mock.Anything, order.ID, StatusActive, StatusCancelled, &reason).Return(cancelled, nil).Once()

		_, err := f.service.CancelOrder(ctx, order.ID, order.BuyerID, reason)
		require.NoError(t, err)
		f.payments.AssertNotCalled(t, "RefundOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unpaid order skips gateway", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusPending)
		cancelled := *order
		cancelled.Status = StatusCancelled
		reason := "ordered by mistake"

		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("TransitionStatus", mock.Anything, order.ID, StatusPending, StatusCancelled, &reason).Return(&cancelled, nil).Once()

		_, err := f.service.CancelOrder(ctx, order.ID, order.BuyerID, reason)
		require.NoError(t, err)
		f.payments.AssertNotCalled(t, "RefundOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAddDeliverable(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		status Status
		asBuy  bool
		code   int
	}{
		{"buyer cannot deliver", StatusActive, true, http.StatusForbidden},
		{"not active", StatusPending, false, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			order := testOrder(tt.status)
			f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

			actor := order.SellerID
			if tt.asBuy {
				actor = order.BuyerID
			}
			_, err := f.service.AddDeliverable(ctx, order.ID, actor, &AddDeliverableRequest{Files: []string{"https://cdn.test/a.zip"}, Description: "done"})
			assertAppError(t, err, tt.code, "")
		})
	}

	t.Run("seller delivers on active order", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusActive)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("AppendDeliverable", mock.Anything, order.ID, mock.MatchedBy(func(d Deliverable) bool {
			return d.Description == "done" && len(d.Files) == 1 && !d.DeliveredAt.IsZero()
		})).Return(order, nil).Once()

		_, err := f.service.AddDeliverable(ctx, order.ID, order.SellerID, &AddDeliverableRequest{Files: []string{"https://cdn.test/a.zip"}, Description: "done"})
		require.NoError(t, err)
		f.repo.AssertExpectations(t)
	})
}

func TestRequestRevision(t *testing.T) {
	ctx := context.Background()

	t.Run("quota exhausted", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusDelivered)
		order.RevisionRequests = []RevisionRequest{
			{ID: uuid.New(), Status: RevisionApproved},
			{ID: uuid.New(), Status: RevisionApproved},
		}
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := f.service.RequestRevision(ctx, order.ID, order.BuyerID, &RequestRevisionRequest{Description: "please change colours"})
		assertAppError(t, err, http.StatusConflict, "no revisions remaining")
	})

	t.Run("rejected requests do not count", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusDelivered)
		order.RevisionRequests = []RevisionRequest{
			{ID: uuid.New(), Status: RevisionApproved},
			{ID: uuid.New(), Status: RevisionRejected},
		}
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("AppendRevisionRequest", mock.Anything, order.ID, mock.MatchedBy(func(r RevisionRequest) bool {
			return r.Status == RevisionPending
		})).Return(order, nil).Once()

		rev, err := f.service.RequestRevision(ctx, order.ID, order.BuyerID, &RequestRevisionRequest{Description: "please change colours"})
		require.NoError(t, err)
		assert.Equal(t, RevisionPending, rev.Status)
	})

	t.Run("seller cannot request", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusDelivered)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := f.service.RequestRevision(ctx, order.ID, order.SellerID, &RequestRevisionRequest{Description: "please change colours"})
		assertAppError(t, err, http.StatusForbidden, "")
	})

	t.Run("not delivered", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusActive)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := f.service.RequestRevision(ctx, order.ID, order.BuyerID, &RequestRevisionRequest{Description: "please change colours"})
		assertAppError(t, err, http.StatusConflict, "")
	})
}

func TestRespondToRevision(t *testing.T) {
	ctx := context.Background()

	t.Run("approval moves to in_revision", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusDelivered)
		revID := uuid.New()
		order.RevisionRequests = []RevisionRequest{{ID: revID, Status: RevisionPending}}
		updated := *order
		updated.Status = StatusInRevision

		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("ReplaceRevisionRequests", mock.Anything, order.ID, StatusDelivered, order.UpdatedAt, StatusInRevision,
			mock.MatchedBy(func(revs []RevisionRequest) bool {
				return len(revs) == 1 && revs[0].Status == RevisionApproved && revs[0].RespondedAt != nil
			})).Return(&updated, nil).Once()

		got, err := f.service.RespondToRevision(ctx, order.ID, revID, order.SellerID, RevisionApproved)
		require.NoError(t, err)
		assert.Equal(t, StatusInRevision, got.Status)
		assert.Equal(t, RevisionPending, order.RevisionRequests[0].Status, "caller copy must not be mutated")
		assert.Equal(t, []string{eventbus.SubjectOrderStatusChanged}, f.publisher.PublishedSubjects())
	})

	t.Run("rejection keeps status", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusDelivered)
		revID := uuid.New()
		order.RevisionRequests = []RevisionRequest{{ID: revID, Status: RevisionPending}}

		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("ReplaceRevisionRequests", mock.Anything, order.ID, StatusDelivered, order.UpdatedAt, StatusDelivered, mock.Anything).Return(order, nil).Once()

		_, err := f.service.RespondToRevision(ctx, order.ID, revID, order.SellerID, RevisionRejected)
		require.NoError(t, err)
		assert.Empty(t, f.publisher.PublishedSubjects())
	})

	t.Run("already answered", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusDelivered)
		revID := uuid.New()
		order.RevisionRequests = []RevisionRequest{{ID: revID, Status: RevisionRejected}}
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := f.service.RespondToRevision(ctx, order.ID, revID, order.SellerID, RevisionApproved)
		assertAppError(t, err, http.StatusConflict, "revision request already answered")
	})

	t.Run("unknown revision", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusDelivered)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := f.service.RespondToRevision(ctx, order.ID, uuid.New(), order.SellerID, RevisionApproved)
		assertAppError(t, err, http.StatusNotFound, "")
	})
}

func TestAddReview(t *testing.T) {
	ctx := context.Background()

	t.Run("stores review", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusCompleted)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("AddReview", mock.Anything, order.ID, mock.MatchedBy(func(r Review) bool { return r.Rating == 4 })).Return(order, nil).Once()

		review, err := f.service.AddReview(ctx, order.ID, order.BuyerID, &AddReviewRequest{Rating: 4, Comment: "good"})
		require.NoError(t, err)
		assert.Equal(t, "good", review.Comment)
	})

	t.Run("only once", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusCompleted)
		order.Review = &Review{Rating: 5}
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := f.service.AddReview(ctx, order.ID, order.BuyerID, &AddReviewRequest{Rating: 4})
		assertAppError(t, err, http.StatusConflict, "review already exists")
	})

	t.Run("not completed", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusDelivered)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := f.service.AddReview(ctx, order.ID, order.BuyerID, &AddReviewRequest{Rating: 4})
		assertAppError(t, err, http.StatusConflict, "")
	})
}

func TestConfirmPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("verified payment is stored", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusPending)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.payments.On("VerifyPayment", mock.Anything, "pi_abc", int64(12050), models.CurrencyUSD).Return(nil).Once()
		f.repo.On("MarkPaid", mock.Anything, order.ID, "pi_abc", 120.50, models.CurrencyUSD).Return(order, nil).Once()

		_, err := f.service.ConfirmPayment(ctx, order.ID, order.BuyerID, "pi_abc")
		require.NoError(t, err)
		f.repo.AssertExpectations(t)
	})

	t.Run("verification failure stores nothing", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusPending)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.payments.On("VerifyPayment", mock.Anything, "pi_abc", int64(12050), models.CurrencyUSD).
			Return(common.NewBadRequestError("payment has not succeeded", nil)).Once()

		_, err := f.service.ConfirmPayment(ctx, order.ID, order.BuyerID, "pi_abc")
		assertAppError(t, err, http.StatusBadRequest, "")
		f.repo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already paid", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusActive)
		order.Payment.Status = models.PaymentStatusPaid
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := f.service.ConfirmPayment(ctx, order.ID, order.BuyerID, "pi_abc")
		assertAppError(t, err, http.StatusConflict, "")
	})
}

func TestListClampsLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	buyerID := uuid.New()

	f.repo.On("ListByBuyer", mock.Anything, buyerID, ListFilter{Limit: maxListLimit}).Return([]*Order{}, int64(0), nil).Once()

	_, _, err := f.service.ListBuying(ctx, buyerID, ListFilter{Limit: 500})
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestAddMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("buyer writes to seller", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusActive)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m *Message) bool {
			return m.FromID == order.BuyerID && m.ToID == order.SellerID && m.OrderID == order.ID
		})).Return(nil).Once()

		msg, err := f.service.AddMessage(ctx, order.ID, order.BuyerID, &AddMessageRequest{Message: "  <b>Can you</b> add a logo?  "})
		require.NoError(t, err)
		assert.Equal(t, "Can you add a logo?", msg.Body)
		assert.Equal(t, []string{}, msg.Attachments)
		f.repo.AssertExpectations(t)
	})

	t.Run("seller writes to buyer", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusDelivered)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("CreateMessage", mock.Anything, mock.AnythingOfType("*orders.Message")).Return(nil).Once()

		msg, err := f.service.AddMessage(ctx, order.ID, order.SellerID, &AddMessageRequest{Message: "done"})
		require.NoError(t, err)
		assert.Equal(t, order.BuyerID, msg.ToID)
	})

	t.Run("outsider", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusActive)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := f.service.AddMessage(ctx, order.ID, uuid.New(), &AddMessageRequest{Message: "hi"})
		assertAppError(t, err, http.StatusForbidden, "access denied")
		f.repo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	})

	t.Run("markup only is empty", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusActive)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := f.service.AddMessage(ctx, order.ID, order.BuyerID, &AddMessageRequest{Message: "<p></p>"})
		assertAppError(t, err, http.StatusBadRequest, "message cannot be empty")
	})
}

func TestListMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("marks incoming read and clamps limit", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusActive)
		msgs := []*Message{{ID: uuid.New(), OrderID: order.ID, FromID: order.SellerID, ToID: order.BuyerID}}
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("ListMessages", mock.Anything, order.ID, maxMessageLimit, 0).Return(msgs, int64(1), nil).Once()
		f.repo.On("MarkMessagesRead", mock.Anything, order.ID, order.BuyerID).Return(nil).Once()

		got, total, err := f.service.ListMessages(ctx, order.ID, order.BuyerID, 500, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, got, 1)
		f.repo.AssertExpectations(t)
	})

	t.Run("read marker failure still returns page", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusActive)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		f.repo.On("ListMessages", mock.Anything, order.ID, 10, 10).Return([]*Message{}, int64(12), nil).Once()
		f.repo.On("MarkMessagesRead", mock.Anything, order.ID, order.SellerID).Return(errors.New("db down")).Once()

		_, total, err := f.service.ListMessages(ctx, order.ID, order.SellerID, 10, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(12), total)
	})

	t.Run("outsider", func(t *testing.T) {
		f := newFixture()
		order := testOrder(StatusActive)
		f.repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, _, err := f.service.ListMessages(ctx, order.ID, uuid.New(), 10, 0)
		assertAppError(t, err, http.StatusForbidden, "")
		f.repo.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
