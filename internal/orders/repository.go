package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/database"
	"github.com/richxcame/gigmarket/pkg/models"
)

const orderColumns = `
	id, gig_id, buyer_id, seller_id, package, price, total_amount, delivery_time, revisions,
	status, requirements, deliverables, revision_requests,
	payment_amount, payment_currency, payment_status, payment_transaction_id, payment_refund_id, paid_at,
	ordered_at, started_at, delivered_at, completed_at, cancelled_at,
	review_rating, review_comment, reviewed_at,
	expected_delivery, cancellation_reason, created_at, updated_at`

var errConcurrentChange = common.NewConflictError("order was modified concurrently")

// Repository handles order persistence
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new orders repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetGig loads the gig an order is placed against
func (r *Repository) GetGig(ctx context.Context, gigID uuid.UUID) (*Gig, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	var gig Gig
	var packagesJSON []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, seller_id, title, is_active, packages FROM gigs WHERE id = $1`, gigID,
	).Scan(&gig.ID, &gig.SellerID, &gig.Title, &gig.IsActive, &packagesJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("gig not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("get gig: %w", err)
	}
	if err := json.Unmarshal(packagesJSON, &gig.Packages); err != nil {
		return nil, fmt.Errorf("decode gig packages: %w", err)
	}
	return &gig, nil
}

// Create inserts a new order and bumps the gig order count
func (r *Repository) Create(ctx context.Context, o *Order) error {
	requirements, err := json.Marshal(o.Requirements)
	if err != nil {
		return fmt.Errorf("encode requirements: %w", err)
	}

	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, gig_id, buyer_id, seller_id, package, price, total_amount, delivery_time, revisions,
			status, requirements, payment_amount, payment_currency, payment_status,
			ordered_at, expected_delivery, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $15, $15)`,
		o.ID, o.GigID, o.BuyerID, o.SellerID, o.Package, o.Price, o.TotalAmount, o.DeliveryTime, o.Revisions,
		o.Status, requirements, o.Payment.Amount, o.Payment.Currency, o.Payment.Status,
		o.Timeline.Ordered, o.ExpectedDelivery,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE gigs SET order_count = order_count + 1, updated_at = NOW() WHERE id = $1`, o.GigID); err != nil {
		return fmt.Errorf("bump gig order count: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID loads one order
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("order not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListByBuyer lists orders placed by buyerID
func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, filter ListFilter) ([]*Order, int64, error) {
	return r.list(ctx, "buyer_id", buyerID, filter)
}

// ListBySeller lists orders received by sellerID
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, filter ListFilter) ([]*Order, int64, error) {
	return r.list(ctx, "seller_id", sellerID, filter)
}

func (r *Repository) list(ctx context.Context, column string, userID uuid.UUID, filter ListFilter) ([]*Order, int64, error) {
	where := column + " = $1"
	args := []interface{}{userID}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// TransitionStatus moves an order from -> to in one conditional write. The
// timeline stamp for the new state is only set when empty, and cancelling a
// paid order flips its payment to refunded in the same statement.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status, reason *string) (*Order, error) {
	sets := []string{"status = $3", "updated_at = NOW()"}
	args := []interface{}{id, from, to}

	if col := timelineColumn(to); col != "" {
		sets = append(sets, fmt.Sprintf("%s = COALESCE(%s, NOW())", col, col))
	}
	if to == StatusCancelled {
		sets = append(sets, "payment_status = CASE WHEN payment_status = 'paid' THEN 'refunded' ELSE payment_status END")
		args = append(args, reason)
		sets = append(sets, "cancellation_reason = $4")
	}

	query := fmt.Sprintf(`UPDATE orders SET %s WHERE id = $1 AND status = $2 RETURNING %s`,
		strings.Join(sets, ", "), orderColumns)

	return r.conditionalUpdate(ctx, query, args...)
}

// AppendDeliverable adds a deliverable while the order is active
func (r *Repository) AppendDeliverable(ctx context.Context, id uuid.UUID, d Deliverable) (*Order, error) {
	payload, err := json.Marshal([]Deliverable{d})
	if err != nil {
		return nil, fmt.Errorf("encode deliverable: %w", err)
	}
	return r.conditionalUpdate(ctx, `
		UPDATE orders SET deliverables = deliverables || $2::jsonb, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING `+orderColumns, id, payload)
}

// AppendRevisionRequest adds a revision request while the order is delivered
// and the approved count is still below the quota.
func (r *Repository) AppendRevisionRequest(ctx context.Context, id uuid.UUID, rev RevisionRequest) (*Order, error) {
	payload, err := json.Marshal([]RevisionRequest{rev})
	if err != nil {
		return nil, fmt.Errorf("encode revision request: %w", err)
	}
	return r.conditionalUpdate(ctx, `
		UPDATE orders SET revision_requests = revision_requests || $2::jsonb, updated_at = NOW()
		WHERE id = $1 AND status = 'delivered'
		  AND (SELECT COUNT(*) FROM jsonb_array_elements(revision_requests) rr
		       WHERE rr->>'status' = 'approved') < revisions
		RETURNING `+orderColumns, id, payload)
}

// ReplaceRevisionRequests writes the revision list and status guarded by the
// version the caller read. Approval moves the order to in_revision here.
func (r *Repository) ReplaceRevisionRequests(ctx context.Context, id uuid.UUID, expected Status, expectedUpdatedAt time.Time, next Status, revs []RevisionRequest) (*Order, error) {
	payload, err := json.Marshal(revs)
	if err != nil {
		return nil, fmt.Errorf("encode revision requests: %w", err)
	}
	return r.conditionalUpdate(ctx, `
		UPDATE orders SET revision_requests = $4::jsonb, status = $5, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND updated_at = $3
		RETURNING `+orderColumns, id, expected, expectedUpdatedAt, payload, next)
}

// AddReview stores the buyer review once and folds it into the gig average
func (r *Repository) AddReview(ctx context.Context, id uuid.UUID, review Review) (*Order, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin add review: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := scanOrder(tx.QueryRow(ctx, `
		UPDATE orders SET review_rating = $2, review_comment = $3, reviewed_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'completed' AND review_rating IS NULL
		RETURNING `+orderColumns, id, review.Rating, review.Comment, review.ReviewedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewConflictError("review already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("add review: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE gigs SET
			rating_average = ROUND(((rating_average * rating_count) + $2) / (rating_count + 1), 1),
			rating_count = rating_count + 1,
			updated_at = NOW()
		WHERE id = $1`, o.GigID, review.Rating)
	if err != nil {
		return nil, fmt.Errorf("update gig rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit add review: %w", err)
	}
	return o, nil
}

// MarkPaid records a verified payment on a pending, uncancelled order
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, transactionID string, amount float64, currency models.Currency) (*Order, error) {
	return r.conditionalUpdate(ctx, `
		UPDATE orders SET payment_status = 'paid', payment_transaction_id = $2,
			payment_amount = $3, payment_currency = $4, paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending' AND status <> 'cancelled'
		RETURNING `+orderColumns, id, transactionID, amount, currency)
}

// SetRefundID stores the gateway refund reference once
func (r *Repository) SetRefundID(ctx context.Context, id uuid.UUID, refundID string) error {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		UPDATE orders SET payment_refund_id = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'refunded' AND payment_refund_id IS NULL`, id, refundID)
	if err != nil {
		return fmt.Errorf("set refund id: %w", err)
	}
	return nil
}

// CreateMessage stores a message on an order conversation
func (r *Repository) CreateMessage(ctx context.Context, msg *Message) error {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO order_messages (id, order_id, from_id, to_id, body, attachments, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)`,
		msg.ID, msg.OrderID, msg.FromID, msg.ToID, msg.Body, msg.Attachments, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order message: %w", err)
	}
	return nil
}

// ListMessages pages through a conversation oldest first
func (r *Repository) ListMessages(ctx context.Context, orderID uuid.UUID, limit, offset int) ([]*Message, int64, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM order_messages WHERE order_id = $1`, orderID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count order messages: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, from_id, to_id, body, attachments, read, created_at
		FROM order_messages WHERE order_id = $1
		ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3`, orderID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list order messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.OrderID, &m.FromID, &m.ToID, &m.Body, &m.Attachments, &m.Read, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan order message: %w", err)
		}
		out = append(out, &m)
	}
	return out, total, rows.Err()
}

// MarkMessagesRead marks every message addressed to recipientID as read
func (r *Repository) MarkMessagesRead(ctx context.Context, orderID, recipientID uuid.UUID) error {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	if _, err := r.db.Exec(ctx, `
		UPDATE order_messages SET read = TRUE
		WHERE order_id = $1 AND to_id = $2 AND NOT read`, orderID, recipientID); err != nil {
		return fmt.Errorf("mark order messages read: %w", err)
	}
	return nil
}

func (r *Repository) conditionalUpdate(ctx context.Context, query string, args ...interface{}) (*Order, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errConcurrentChange
	}
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var requirements, deliverables, revisions []byte
	var reviewRating *int
	var reviewComment *string
	var reviewedAt *time.Time

	err := row.Scan(
		&o.ID, &o.GigID, &o.BuyerID, &o.SellerID, &o.Package, &o.Price, &o.TotalAmount, &o.DeliveryTime, &o.Revisions,
		&o.Status, &requirements, &deliverables, &revisions,
		&o.Payment.Amount, &o.Payment.Currency, &o.Payment.Status, &o.Payment.TransactionID, &o.Payment.RefundID, &o.Payment.PaidAt,
		&o.Timeline.Ordered, &o.Timeline.Started, &o.Timeline.Delivered, &o.Timeline.Completed, &o.Timeline.Cancelled,
		&reviewRating, &reviewComment, &reviewedAt,
		&o.ExpectedDelivery, &o.CancellationReason, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(requirements, &o.Requirements); err != nil {
		o.Requirements = []Requirement{}
	}
	if err := json.Unmarshal(deliverables, &o.Deliverables); err != nil {
		o.Deliverables = []Deliverable{}
	}
	if err := json.Unmarshal(revisions, &o.RevisionRequests); err != nil {
		o.RevisionRequests = []RevisionRequest{}
	}

	if reviewRating != nil && reviewedAt != nil {
		o.Review = &Review{Rating: *reviewRating, ReviewedAt: *reviewedAt}
		if reviewComment != nil {
			o.Review.Comment = *reviewComment
		}
	}
	return &o, nil
}
