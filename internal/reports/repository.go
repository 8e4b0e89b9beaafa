package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/database"
)

const reportColumns = `
	id, reporter_id, reported_user_id, order_id, category, severity, description,
	evidence, reporter_credibility, status, priority, review,
	similar_reports, seller_fraud_score_adjustment, fraud_case_id,
	resolution, resolved_at, created_at, updated_at`

var errConcurrentChange = common.NewConflictError("report was modified concurrently")

// Repository handles report persistence
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new reports repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// OrderParties returns the buyer and seller of an order
func (r *Repository) OrderParties(ctx context.Context, orderID uuid.UUID) (*OrderParties, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	p := OrderParties{OrderID: orderID}
	err := r.db.QueryRow(ctx, `SELECT buyer_id, seller_id FROM orders WHERE id = $1`, orderID).Scan(&p.BuyerID, &p.SellerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("order not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("get order parties: %w", err)
	}
	return &p, nil
}

// Exists reports whether reporterID already reported orderID
func (r *Repository) Exists(ctx context.Context, reporterID, orderID uuid.UUID) (bool, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reports WHERE reporter_id = $1 AND order_id = $2)`,
		reporterID, orderID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existing report: %w", err)
	}
	return exists, nil
}

// ReporterProfile reads the live figures credibility is computed from
func (r *Repository) ReporterProfile(ctx context.Context, reporterID uuid.UUID) (*ReporterProfile, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	var p ReporterProfile
	err := r.db.QueryRow(ctx, `
		SELECT
			GREATEST(EXTRACT(DAY FROM NOW() - u.created_at), 0)::int,
			u.email_verified,
			(SELECT COUNT(*) FROM orders o WHERE o.buyer_id = u.id),
			(SELECT COUNT(*) FROM reports rp WHERE rp.reporter_id = u.id),
			(SELECT COUNT(*) FROM reports rp WHERE rp.reporter_id = u.id AND rp.review->>'decision' = 'valid')
		FROM users u
		WHERE u.id = $1`, reporterID,
	).Scan(&p.AccountAgeDays, &p.EmailVerified, &p.BuyerOrders, &p.PriorReports, &p.PriorReportsAccepted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("user not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("reporter profile: %w", err)
	}
	return &p, nil
}

// CountSimilar counts open reports against a seller in one category
func (r *Repository) CountSimilar(ctx context.Context, sellerID uuid.UUID, category Category) (int, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM reports
		WHERE reported_user_id = $1 AND category = $2 AND status IN ('accepted', 'under_review')`,
		sellerID, category,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count similar reports: %w", err)
	}
	return n, nil
}

// Create stores a new report
func (r *Repository) Create(ctx context.Context, rep *Report) error {
	evidence, err := json.Marshal(rep.Evidence)
	if err != nil {
		return fmt.Errorf("encode evidence: %w", err)
	}
	snapshot, err := json.Marshal(rep.ReporterCredibility)
	if err != nil {
		return fmt.Errorf("encode credibility: %w", err)
	}

	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	_, err = r.db.Exec(ctx, `
		INSERT INTO reports (
			id, reporter_id, reported_user_id, order_id, category, severity, description,
			evidence, reporter_credibility, credibility_score, status, priority, similar_reports,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`,
		rep.ID, rep.ReporterID, rep.ReportedUserID, rep.OrderID, rep.Category, rep.Severity, rep.Description,
		evidence, snapshot, rep.ReporterCredibility.CredibilityScore, rep.Status, rep.Priority, rep.Impact.SimilarReports,
		rep.CreatedAt,
	)
	if database.IsUniqueViolation(err) {
		return common.NewConflictError("already reported")
	}
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetByID loads a report
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	rep, err := scanReport(r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("report not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

// LinkFraudCase records the case a report produced. Only the first link sticks.
func (r *Repository) LinkFraudCase(ctx context.Context, id, caseID uuid.UUID, adjustment int) (bool, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE reports SET fraud_case_id = $2, seller_fraud_score_adjustment = $3, updated_at = NOW()
		WHERE id = $1 AND fraud_case_id IS NULL`, id, caseID, adjustment)
	if err != nil {
		return false, fmt.Errorf("link fraud case: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ApplyReview stores a review if the report is still in expected
func (r *Repository) ApplyReview(ctx context.Context, id uuid.UUID, expected, next Status, review *Review) (*Report, error) {
	raw, err := json.Marshal(review)
	if err != nil {
		return nil, fmt.Errorf("encode review: %w", err)
	}

	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	rep, err := scanReport(r.db.QueryRow(ctx, `
		UPDATE reports SET status = $3, review = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+reportColumns, id, expected, next, raw))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errConcurrentChange
	}
	if err != nil {
		return nil, fmt.Errorf("review report: %w", err)
	}
	return rep, nil
}

// Resolve closes an accepted or rejected report
func (r *Repository) Resolve(ctx context.Context, id uuid.UUID, resolution Resolution) (*Report, error) {
	raw, err := json.Marshal(resolution)
	if err != nil {
		return nil, fmt.Errorf("encode resolution: %w", err)
	}

	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	rep, err := scanReport(r.db.QueryRow(ctx, `
		UPDATE reports SET status = 'resolved', resolution = $2, resolved_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('accepted', 'rejected')
		RETURNING `+reportColumns, id, raw))
	if err == nil {
		return rep, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("resolve report: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reports WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check report: %w", err)
	}
	if !exists {
		return nil, common.NewNotFoundError("report not found", nil)
	}
	return nil, common.NewConflictError("only accepted or rejected reports can be resolved")
}

// List returns reports for the admin queue, most urgent first
func (r *Repository) List(ctx context.Context, filter Filter) ([]*Report, int64, error) {
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.Priority != nil {
		add("priority = $%d", *filter.Priority)
	}
	if filter.Category != nil {
		add("category = $%d", *filter.Category)
	}
	if filter.ReportedUserID != nil {
		add("reported_user_id = $%d", *filter.ReportedUserID)
	}
	if filter.MinCredibility != nil {
		add("credibility_score >= $%d", *filter.MinCredibility)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reports`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s FROM reports%s
		ORDER BY CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, created_at DESC
		LIMIT $%d OFFSET $%d`, reportColumns, where, len(args)-1, len(args))

	reports, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// ListByReporter returns a reporter's own reports, newest first
func (r *Repository) ListByReporter(ctx context.Context, reporterID uuid.UUID, limit, offset int) ([]*Report, int64, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reports WHERE reporter_id = $1`, reporterID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reporter reports: %w", err)
	}

	reports, err := r.query(ctx, `SELECT `+reportColumns+` FROM reports WHERE reporter_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		reporterID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// ListBySeller returns every report against a seller, newest first
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*Report, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	return r.query(ctx, `SELECT `+reportColumns+` FROM reports WHERE reported_user_id = $1 ORDER BY created_at DESC`, sellerID)
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]*Report, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := []*Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	var evidence, snapshot, review, resolution []byte

	err := row.Scan(
		&rep.ID, &rep.ReporterID, &rep.ReportedUserID, &rep.OrderID, &rep.Category, &rep.Severity, &rep.Description,
		&evidence, &snapshot, &rep.Status, &rep.Priority, &review,
		&rep.Impact.SimilarReports, &rep.Impact.SellerFraudScoreAdjustment, &rep.Impact.FraudCaseCreated,
		&resolution, &rep.ResolvedAt, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	_ = json.Unmarshal(evidence, &rep.Evidence)
	_ = json.Unmarshal(snapshot, &rep.ReporterCredibility)
	if len(review) > 0 {
		rep.Review = &Review{}
		if err := json.Unmarshal(review, rep.Review); err != nil {
			rep.Review = nil
		}
	}
	if len(resolution) > 0 {
		rep.Resolution = &Resolution{}
		if err := json.Unmarshal(resolution, rep.Resolution); err != nil {
			rep.Resolution = nil
		}
	}
	return &rep, nil
}
