package riskai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/database"
)

// historyLimit caps how many past orders feed the pattern detector
const historyLimit = 50

// Repository reads the order context used for risk analysis
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new risk repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// OrderContext loads an order together with its buyer's history
func (r *Repository) OrderContext(ctx context.Context, orderID uuid.UUID) (*OrderContext, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	oc := &OrderContext{OrderID: orderID}
	var price float64
	var userCreated time.Time
	err := r.db.QueryRow(ctx, `
		SELECT o.buyer_id, o.seller_id, o.price::float8, o.delivery_time,
		       jsonb_array_length(o.requirements), o.created_at, u.created_at
		FROM orders o
		JOIN users u ON u.id = o.buyer_id
		WHERE o.id = $1`, orderID,
	).Scan(&oc.BuyerID, &oc.SellerID, &price, &oc.DeliveryTime, &oc.Requirements, &oc.CreatedAt, &userCreated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("order not found", err)
		}
		return nil, fmt.Errorf("failed to get order context: %w", err)
	}
	oc.Price = price
	oc.History.AccountAgeDays = int(time.Since(userCreated).Hours() / 24)

	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'cancelled'), COALESCE(AVG(price), 0)::float8
		FROM orders WHERE buyer_id = $1`, oc.BuyerID,
	).Scan(&oc.History.TotalOrders, &oc.History.CancelledOrders, &oc.History.AverageOrderValue)
	if err != nil {
		return nil, fmt.Errorf("failed to get buyer history: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT price::float8, status, created_at FROM (
			SELECT price, status, created_at FROM orders
			WHERE buyer_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`, oc.BuyerID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list buyer orders: %w", err)
	}
	defer rows.Close()

	oc.Orders = make([]PastOrder, 0)
	for rows.Next() {
		var o PastOrder
		if err := rows.Scan(&o.Price, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan buyer order: %w", err)
		}
		oc.Orders = append(oc.Orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate buyer orders: %w", err)
	}
	return oc, nil
}
