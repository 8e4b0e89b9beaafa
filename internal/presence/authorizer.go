package presence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/gigmarket/pkg/logger"
)

// OrderParticipants allows a user into an order conversation when they are
// its buyer or seller.
type OrderParticipants struct {
	db *sql.DB
}

// NewOrderParticipants creates a join authorizer backed by the orders table
func NewOrderParticipants(db *sql.DB) *OrderParticipants {
	return &OrderParticipants{db: db}
}

// Authorize reports whether userID is a party to the order conversationID.
// Lookup failures deny.
func (p *OrderParticipants) Authorize(ctx context.Context, userID, conversationID string) bool {
	orderID, err := uuid.Parse(conversationID)
	if err != nil {
		return false
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return false
	}

	var one int
	err = p.db.QueryRowContext(ctx,
		`SELECT 1 FROM orders WHERE id = $1 AND (buyer_id = $2 OR seller_id = $2)`,
		orderID, uid,
	).Scan(&one)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.WithContext(ctx).Warn("presence: participant lookup failed",
				zap.String("conversation_id", conversationID),
				zap.Error(err))
		}
		return false
	}
	return true
}
