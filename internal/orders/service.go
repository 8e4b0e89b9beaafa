package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/eventbus"
	"github.com/richxcame/gigmarket/pkg/logger"
	"github.com/richxcame/gigmarket/pkg/models"
	"github.com/richxcame/gigmarket/pkg/security"
	"github.com/richxcame/gigmarket/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	tracerName  = "gigmarket/orders"
	eventSource = "orders"

	// maxListLimit caps buyer and seller order listings
	maxListLimit = 20
	// maxMessageLimit caps one page of an order conversation
	maxMessageLimit = 50
	// screenTimeout bounds the synchronous risk check at order creation
	screenTimeout = 20 * time.Second
)

// Service implements the order lifecycle
type Service struct {
	repo      RepositoryInterface
	payments  PaymentProcessor
	screener  RiskScreener
	publisher eventbus.Publisher
	now       func() time.Time
}

// NewService creates a new order service. payments and screener may be nil.
func NewService(repo RepositoryInterface, payments PaymentProcessor, screener RiskScreener, publisher eventbus.Publisher) *Service {
	if publisher == nil {
		publisher = eventbus.NoopPublisher{}
	}
	return &Service{
		repo:      repo,
		payments:  payments,
		screener:  screener,
		publisher: publisher,
		now:       time.Now,
	}
}

// CreateOrder places an order for a package of an active gig
func (s *Service) CreateOrder(ctx context.Context, buyerID uuid.UUID, req *CreateOrderRequest) (*Order, error) {
	gig, err := s.repo.GetGig(ctx, req.GigID)
	if err != nil {
		if common.IsNotFound(err) {
			return nil, common.NewNotFoundError("gig not found or inactive", err)
		}
		return nil, err
	}
	if !gig.IsActive {
		return nil, common.NewNotFoundError("gig not found or inactive", nil)
	}
	if gig.SellerID == buyerID {
		return nil, common.NewBadRequestError("cannot order your own gig", nil)
	}

	pkg, ok := gig.Packages[req.Package]
	if !ok {
		return nil, common.NewBadRequestError("invalid package type", nil)
	}

	currency := models.CurrencyUSD
	if req.Currency != "" {
		currency = models.Currency(req.Currency)
	}

	now := s.now().UTC()
	requirements := req.Requirements
	if requirements == nil {
		requirements = []Requirement{}
	}

	order := &Order{
		ID:               uuid.New(),
		GigID:            gig.ID,
		BuyerID:          buyerID,
		SellerID:         gig.SellerID,
		Package:          req.Package,
		Price:            pkg.Price,
		TotalAmount:      pkg.Price,
		DeliveryTime:     pkg.DeliveryTime,
		Revisions:        pkg.Revisions,
		Status:           StatusPending,
		Requirements:     requirements,
		Deliverables:     []Deliverable{},
		RevisionRequests: []RevisionRequest{},
		Payment: models.Payment{
			Amount:   pkg.Price,
			Currency: currency,
			Status:   models.PaymentStatusPending,
		},
		Timeline:         Timeline{Ordered: now},
		ExpectedDelivery: now.AddDate(0, 0, pkg.DeliveryTime),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		logger.WithContext(ctx).Error("failed to create order", zap.Error(err), zap.String("gig_id", gig.ID.String()))
		return nil, common.NewInternalError("failed to create order", err)
	}

	logger.WithContext(ctx).Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", buyerID.String()),
		zap.String("seller_id", gig.SellerID.String()),
		zap.Float64("total_amount", order.TotalAmount),
	)

	s.screen(ctx, order.ID)
	return order, nil
}

// screen runs the risk check with its own deadline. Its outcome never
// affects the order.
func (s *Service) screen(ctx context.Context, orderID uuid.UUID) {
	if s.screener == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, screenTimeout)
	defer cancel()

	if err := s.screener.ScreenOrder(ctx, orderID); err != nil {
		logger.WithContext(ctx).Warn("order risk screening failed", zap.String("order_id", orderID.String()), zap.Error(err))
	}
}

// ListBuying lists the caller's purchases
func (s *Service) ListBuying(ctx context.Context, buyerID uuid.UUID, filter ListFilter) ([]*Order, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListByBuyer(ctx, buyerID, filter)
}

// ListSelling lists orders the caller received
func (s *Service) ListSelling(ctx context.Context, sellerID uuid.UUID, filter ListFilter) ([]*Order, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListBySeller(ctx, sellerID, filter)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// GetOrder returns an order to one of its participants
func (s *Service) GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(userID) {
		return nil, common.NewForbiddenError("access denied")
	}
	return order, nil
}

// UpdateStatus applies a state machine transition requested by a participant
func (s *Service) UpdateStatus(ctx context.Context, orderID, userID uuid.UUID, to Status) (*Order, error) {
	return s.transition(ctx, orderID, userID, to, nil)
}

// CancelOrder cancels a pending or active order with a reason
func (s *Service) CancelOrder(ctx context.Context, orderID, userID uuid.UUID, reason string) (*Order, error) {
	return s.transition(ctx, orderID, userID, StatusCancelled, &reason)
}

func (s *Service) transition(ctx context.Context, orderID, userID uuid.UUID, to Status, reason *string) (*Order, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "orders.transition",
		attribute.String("order.id", orderID.String()),
		attribute.String("order.to", string(to)),
	)
	defer span.End()

	current, err := s.GetOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(current.Status, to); err != nil {
		return nil, err
	}
	if err := AuthorizeTransition(current, userID, to); err != nil {
		return nil, err
	}

	updated, err := s.repo.TransitionStatus(ctx, orderID, current.Status, to, reason)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	logger.WithContext(ctx).Info("order status changed",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)),
		zap.String("actor_id", userID.String()),
	)
	s.publishStatusChanged(ctx, updated, current.Status)

	if to == StatusCancelled && needsGatewayRefund(updated) {
		s.refund(ctx, updated)
	}
	return updated, nil
}

// needsGatewayRefund reads the row written by the cancel, which flipped a
// paid order to refunded in the same update.
func needsGatewayRefund(o *Order) bool {
	return o.Payment.Status == models.PaymentStatusRefunded && o.Payment.RefundID == nil
}

// refund issues the gateway refund after the order already reads refunded.
// A failure is left for reconciliation.
func (s *Service) refund(ctx context.Context, order *Order) {
	if s.payments == nil || order.Payment.TransactionID == nil {
		logger.WithContext(ctx).Warn("refund skipped, no payment gateway or transaction",
			zap.String("order_id", order.ID.String()))
		return
	}

	refundID, err := s.payments.RefundOrder(ctx, order.ID, *order.Payment.TransactionID, order.Payment.AmountCents(), order.Payment.Currency)
	if err != nil {
		logger.WithContext(ctx).Error("refund failed, queued for reconciliation",
			zap.String("order_id", order.ID.String()),
			zap.String("transaction_id", *order.Payment.TransactionID),
			zap.Error(err),
		)
		s.publish(ctx, eventbus.SubjectPaymentRefundFailed, eventbus.RefundFailedData{
			OrderID:       order.ID,
			TransactionID: *order.Payment.TransactionID,
			Amount:        order.Payment.Amount,
			Currency:      string(order.Payment.Currency),
			Error:         err.Error(),
		})
		return
	}

	if err := s.repo.SetRefundID(ctx, order.ID, refundID); err != nil {
		logger.WithContext(ctx).Error("failed to store refund id", zap.String("order_id", order.ID.String()), zap.Error(err))
		return
	}
	order.Payment.RefundID = &refundID
}

// AddDeliverable lets the seller hand over work on an active order
func (s *Service) AddDeliverable(ctx context.Context, orderID, userID uuid.UUID, req *AddDeliverableRequest) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != userID {
		return nil, common.NewForbiddenError("only seller can add deliverables")
	}
	if order.Status != StatusActive {
		return nil, common.NewConflictError("order must be active to add deliverables")
	}

	return s.repo.AppendDeliverable(ctx, orderID, Deliverable{
		Files:       req.Files,
		Description: req.Description,
		DeliveredAt: s.now().UTC(),
	})
}

// RequestRevision lets the buyer ask for rework within the revision quota
func (s *Service) RequestRevision(ctx context.Context, orderID, userID uuid.UUID, req *RequestRevisionRequest) (*RevisionRequest, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != userID {
		return nil, common.NewForbiddenError("only buyer can request revisions")
	}
	if order.Status != StatusDelivered {
		return nil, common.NewConflictError("order must be delivered to request revision")
	}
	if order.UsedRevisions() >= order.Revisions {
		return nil, common.NewConflictError("no revisions remaining")
	}

	rev := RevisionRequest{
		ID:          uuid.New(),
		Description: req.Description,
		RequestedAt: s.now().UTC(),
		Status:      RevisionPending,
	}
	if _, err := s.repo.AppendRevisionRequest(ctx, orderID, rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

// RespondToRevision lets the seller approve or reject a pending revision.
// Approval moves a delivered order into in_revision.
func (s *Service) RespondToRevision(ctx context.Context, orderID, revisionID, userID uuid.UUID, decision RevisionStatus) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != userID {
		return nil, common.NewForbiddenError("only seller can respond to revisions")
	}
	if decision != RevisionApproved && decision != RevisionRejected {
		return nil, common.NewBadRequestError("decision must be approved or rejected", nil)
	}

	revs := make([]RevisionRequest, len(order.RevisionRequests))
	copy(revs, order.RevisionRequests)

	idx := -1
	for i := range revs {
		if revs[i].ID == revisionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, common.NewNotFoundError("revision request not found", nil)
	}
	if revs[idx].Status != RevisionPending {
		return nil, common.NewConflictError("revision request already answered")
	}

	next := order.Status
	if decision == RevisionApproved {
		if err := ValidateTransition(order.Status, StatusInRevision); err != nil {
			return nil, err
		}
		if order.UsedRevisions() >= order.Revisions {
			return nil, common.NewConflictError("no revisions remaining")
		}
		next = StatusInRevision
	}

	respondedAt := s.now().UTC()
	revs[idx].Status = decision
	revs[idx].RespondedAt = &respondedAt

	updated, err := s.repo.ReplaceRevisionRequests(ctx, orderID, order.Status, order.UpdatedAt, next, revs)
	if err != nil {
		return nil, err
	}
	if next != order.Status {
		s.publishStatusChanged(ctx, updated, order.Status)
	}
	return updated, nil
}

// AddReview lets the buyer rate a completed order once
func (s *Service) AddReview(ctx context.Context, orderID, userID uuid.UUID, req *AddReviewRequest) (*Review, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != userID {
		return nil, common.NewForbiddenError("only buyer can add reviews")
	}
	if order.Status != StatusCompleted {
		return nil, common.NewConflictError("order must be completed to add review")
	}
	if order.Review != nil {
		return nil, common.NewConflictError("review already exists")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, common.NewBadRequestError("rating must be between 1 and 5", nil)
	}

	review := Review{Rating: req.Rating, Comment: req.Comment, ReviewedAt: s.now().UTC()}
	if _, err := s.repo.AddReview(ctx, orderID, review); err != nil {
		return nil, err
	}
	return &review, nil
}

// AddMessage posts a message from one participant to the other
func (s *Service) AddMessage(ctx context.Context, orderID, userID uuid.UUID, req *AddMessageRequest) (*Message, error) {
	order, err := s.GetOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	body := security.SanitizeText(req.Message)
	if body == "" {
		return nil, common.NewBadRequestError("message cannot be empty", nil)
	}

	to := order.BuyerID
	if userID == order.BuyerID {
		to = order.SellerID
	}
	attachments := req.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	msg := &Message{
		ID:          uuid.New(),
		OrderID:     orderID,
		FromID:      userID,
		ToID:        to,
		Body:        body,
		Attachments: attachments,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		logger.WithContext(ctx).Error("failed to store order message", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, common.NewInternalError("failed to add message", err)
	}
	return msg, nil
}

// ListMessages returns a page of the conversation and marks the caller's
// incoming messages read
func (s *Service) ListMessages(ctx context.Context, orderID, userID uuid.UUID, limit, offset int) ([]*Message, int64, error) {
	if _, err := s.GetOrder(ctx, orderID, userID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	msgs, total, err := s.repo.ListMessages(ctx, orderID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.repo.MarkMessagesRead(ctx, orderID, userID); err != nil {
		logger.WithContext(ctx).Warn("failed to mark order messages read", zap.String("order_id", orderID.String()), zap.Error(err))
	}
	return msgs, total, nil
}

// ConfirmPayment stores a card payment after the gateway verified it
func (s *Service) ConfirmPayment(ctx context.Context, orderID, userID uuid.UUID, paymentIntentID string) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != userID {
		return nil, common.NewForbiddenError("only buyer can pay for an order")
	}
	if order.Payment.Status != models.PaymentStatusPending || order.Status == StatusCancelled {
		return nil, common.NewConflictError("order is not awaiting payment")
	}
	if s.payments == nil {
		return nil, common.NewServiceUnavailableError("payments are not configured")
	}

	if err := s.payments.VerifyPayment(ctx, paymentIntentID, order.Payment.AmountCents(), order.Payment.Currency); err != nil {
		return nil, err
	}

	updated, err := s.repo.MarkPaid(ctx, orderID, paymentIntentID, order.Payment.Amount, order.Payment.Currency)
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("order paid",
		zap.String("order_id", orderID.String()),
		zap.String("transaction_id", paymentIntentID),
	)
	return updated, nil
}

func (s *Service) publishStatusChanged(ctx context.Context, order *Order, from Status) {
	s.publish(ctx, eventbus.SubjectOrderStatusChanged, eventbus.OrderStatusChangedData{
		OrderID:  order.ID,
		BuyerID:  order.BuyerID,
		SellerID: order.SellerID,
		From:     string(from),
		To:       string(order.Status),
	})
}

func (s *Service) publish(ctx context.Context, subject string, data interface{}) {
	event, err := eventbus.NewEvent(subject, eventSource, data)
	if err != nil {
		logger.WithContext(ctx).Error("failed to build event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		logger.WithContext(ctx).Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
