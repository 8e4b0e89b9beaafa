package notifications

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/eventbus"
	"github.com/richxcame/gigmarket/pkg/logger"
)

const suspendedDurable = "notifications-account-suspended"

// EventHandler sends notices for account events published on the bus
type EventHandler struct {
	service *Service
}

// NewEventHandler creates a new event handler
func NewEventHandler(service *Service) *EventHandler {
	return &EventHandler{service: service}
}

// RegisterSubscriptions subscribes to account events
func (h *EventHandler) RegisterSubscriptions(ctx context.Context, bus eventbus.Subscriber) error {
	if err := bus.Subscribe(ctx, eventbus.SubjectAccountSuspended, suspendedDurable, h.handleAccountSuspended); err != nil {
		return fmt.Errorf("subscribe to %s: %w", eventbus.SubjectAccountSuspended, err)
	}
	logger.Info("notifications: subscribed to account suspensions")
	return nil
}

// handleAccountSuspended drops events for unknown users or users without a
// channel. Delivery failures are returned for redelivery.
func (h *EventHandler) handleAccountSuspended(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.AccountSuspendedData
	if err := event.Decode(&data); err != nil {
		return fmt.Errorf("unmarshal account suspended: %w", err)
	}

	err := h.service.NotifySuspension(ctx, data.UserID, data.Reason)
	switch {
	case err == nil:
		return nil
	case common.IsNotFound(err), errors.Is(err, ErrNoChannel):
		logger.WithContext(ctx).Warn("notifications: suspension notice skipped",
			zap.String("user_id", data.UserID.String()),
			zap.Error(err))
		return nil
	default:
		return err
	}
}
