package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/eventbus"
	"github.com/richxcame/gigmarket/pkg/logger"
	"github.com/richxcame/gigmarket/pkg/models"
	"go.uber.org/zap"
)

const reconcileDurable = "payments-refund-reconcile"

// RefundStore records refund ids on orders
type RefundStore interface {
	SetRefundID(ctx context.Context, orderID uuid.UUID, refundID string) error
}

// EventHandler retries refunds the gateway rejected when an order was
// cancelled.
type EventHandler struct {
	service *Service
	store   RefundStore
}

// NewEventHandler creates an event handler backed by the payment service.
func NewEventHandler(service *Service, store RefundStore) *EventHandler {
	return &EventHandler{service: service, store: store}
}

// RegisterSubscriptions subscribes to failed refund events on the bus.
func (h *EventHandler) RegisterSubscriptions(ctx context.Context, bus eventbus.Subscriber) error {
	if err := bus.Subscribe(ctx, eventbus.SubjectPaymentRefundFailed, reconcileDurable, h.handleRefundFailed); err != nil {
		return fmt.Errorf("subscribe to %s: %w", eventbus.SubjectPaymentRefundFailed, err)
	}
	logger.Info("payments: subscribed to failed refunds for reconciliation")
	return nil
}

// handleRefundFailed reissues the refund with the order's idempotency key.
// Returning an error leaves the event for redelivery.
func (h *EventHandler) handleRefundFailed(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.RefundFailedData
	if err := event.Decode(&data); err != nil {
		return fmt.Errorf("unmarshal refund failed: %w", err)
	}

	log := logger.WithContext(ctx).With(
		zap.String("order_id", data.OrderID.String()),
		zap.String("transaction_id", data.TransactionID),
		zap.String("previous_error", data.Error),
	)
	if data.TransactionID == "" {
		log.Warn("payments: refund event without transaction, skipping")
		reconciliationsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	amountCents := models.Payment{Amount: data.Amount}.AmountCents()
	refundID, err := h.service.RefundOrder(ctx, data.OrderID, data.TransactionID, amountCents, models.Currency(data.Currency))
	if err != nil {
		log.Error("payments: refund reconciliation failed", zap.Error(err))
		reconciliationsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("refund order: %w", err)
	}

	if err := h.store.SetRefundID(ctx, data.OrderID, refundID); err != nil {
		log.Error("payments: failed to store reconciled refund id", zap.String("refund_id", refundID), zap.Error(err))
		reconciliationsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("store refund id: %w", err)
	}

	reconciliationsTotal.WithLabelValues("succeeded").Inc()
	log.Info("payments: refund reconciled", zap.String("refund_id", refundID))
	return nil
}
