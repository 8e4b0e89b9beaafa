package fraud

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
)

const caseColumns = `
	id, user_id, fraud_score, status, flags, triggering_event, user_snapshot, suspicious_patterns,
	ai_analysis, review, prior_flags, related_cases,
	immediate_risk, potential_loss, affected_users, recommended_action,
	notes, resolved, resolved_at, resolution, last_checked_at, created_at, updated_at`

// upsertCaseQuery opens a case or merges into the user's open one. The
// conflict target matches the partial unique index on open cases.
var upsertCaseQuery = fmt.Sprintf(`
	INSERT INTO fraud_cases (
		id, user_id, fraud_score, status, flags, triggering_event, user_snapshot, suspicious_patterns,
		ai_analysis, prior_flags, related_cases,
		immediate_risk, potential_loss, affected_users, recommended_action,
		last_checked_at, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16, $16)
	ON CONFLICT (user_id) WHERE resolved = FALSE DO UPDATE SET
		fraud_score         = GREATEST(fraud_cases.fraud_score, EXCLUDED.fraud_score),
		flags               = fraud_cases.flags || EXCLUDED.flags,
		suspicious_patterns = fraud_cases.suspicious_patterns || EXCLUDED.suspicious_patterns,
		ai_analysis         = COALESCE(EXCLUDED.ai_analysis, fraud_cases.ai_analysis),
		immediate_risk      = fraud_cases.immediate_risk
			OR GREATEST(fraud_cases.fraud_score, EXCLUDED.fraud_score) >= %[1]d,
		recommended_action  = CASE
			WHEN GREATEST(fraud_cases.fraud_score, EXCLUDED.fraud_score) >= %[1]d THEN 'immediate_suspension'
			WHEN GREATEST(fraud_cases.fraud_score, EXCLUDED.fraud_score) >= %[2]d
				AND fraud_cases.recommended_action <> 'immediate_suspension' THEN 'monitor_closely'
			ELSE fraud_cases.recommended_action
		END,
		potential_loss      = GREATEST(fraud_cases.potential_loss, EXCLUDED.potential_loss),
		affected_users      = GREATEST(fraud_cases.affected_users, EXCLUDED.affected_users),
		last_checked_at     = EXCLUDED.last_checked_at,
		updated_at          = EXCLUDED.last_checked_at
	RETURNING %[3]s, (xmax <> 0) AS merged`, ImmediateRiskScore, MonitorScore, caseColumns)

// Repository handles fraud case persistence
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the service's requirements.
var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new fraud repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// UpsertCase opens a case for c.UserID or merges c into the open one.
func (r *Repository) UpsertCase(ctx context.Context, c *Case) (*Case, bool, error) {
	encoded, err := encodeJSON(c.Flags, c.TriggeringEvent, c.UserSnapshot, c.SuspiciousPatterns, c.PriorFlags, c.RelatedCases)
	if err != nil {
		return nil, false, err
	}
	var aiAnalysis []byte
	if c.AIAnalysis != nil {
		if aiAnalysis, err = json.Marshal(c.AIAnalysis); err != nil {
			return nil, false, fmt.Errorf("encode ai analysis: %w", err)
		}
	}

	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	var merged bool
	row := r.db.QueryRow(ctx, upsertCaseQuery,
		c.ID, c.UserID, c.FraudScore, c.Status,
		encoded[0], encoded[1], encoded[2], encoded[3],
		aiAnalysis, encoded[4], encoded[5],
		c.RiskAssessment.ImmediateRisk, c.RiskAssessment.PotentialLoss, c.RiskAssessment.AffectedUsers, c.RiskAssessment.RecommendedAction,
		c.LastCheckedAt,
	)
	saved, err := scanCase(row, &merged)
	if err != nil {
		return nil, false, fmt.Errorf("upsert fraud case: %w", err)
	}
	return saved, merged, nil
}

// GetCase loads one case
func (r *Repository) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	c, err := scanCase(r.db.QueryRow(ctx, `SELECT `+caseColumns+` FROM fraud_cases WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("fraud case not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("get fraud case: %w", err)
	}
	return c, nil
}

// ListUserCases returns every case of a user, newest first
func (r *Repository) ListUserCases(ctx context.Context, userID uuid.UUID) ([]*Case, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+caseColumns+` FROM fraud_cases WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user fraud cases: %w", err)
	}
	defer rows.Close()

	var out []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fraud case: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCases lists cases for the admin queue
func (r *Repository) ListCases(ctx context.Context, filter CaseFilter) ([]*Case, int64, error) {
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.MinScore != nil {
		add("fraud_score >= $%d", *filter.MinScore)
	}
	if filter.MaxScore != nil {
		add("fraud_score <= $%d", *filter.MaxScore)
	}
	if filter.Resolved != nil {
		add("resolved = $%d", *filter.Resolved)
	}
	if filter.ImmediateRisk != nil {
		add("immediate_risk = $%d", *filter.ImmediateRisk)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM fraud_cases`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count fraud cases: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM fraud_cases%s ORDER BY fraud_score DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		caseColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list fraud cases: %w", err)
	}
	defer rows.Close()

	var out []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan fraud case: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// ApplyReview records a review on an open case. When resolution is non-nil
// the case is closed in the same statement.
func (r *Repository) ApplyReview(ctx context.Context, id uuid.UUID, status CaseStatus, review *Review, resolution *Resolution) (*Case, error) {
	reviewJSON, err := json.Marshal(review)
	if err != nil {
		return nil, fmt.Errorf("encode review: %w", err)
	}
	var resolutionJSON []byte
	if resolution != nil {
		if resolutionJSON, err = json.Marshal(resolution); err != nil {
			return nil, fmt.Errorf("encode resolution: %w", err)
		}
	}

	return r.updateOpenCase(ctx, id, `
		UPDATE fraud_cases SET
			status      = $2,
			review      = $3,
			resolved    = $4::jsonb IS NOT NULL,
			resolved_at = CASE WHEN $4::jsonb IS NOT NULL THEN NOW() ELSE resolved_at END,
			resolution  = COALESCE($4::jsonb, resolution),
			updated_at  = NOW()
		WHERE id = $1 AND resolved = FALSE
		RETURNING `+caseColumns, id, status, reviewJSON, resolutionJSON)
}

// Resolve closes an open case
func (r *Repository) Resolve(ctx context.Context, id uuid.UUID, resolution Resolution) (*Case, error) {
	resolutionJSON, err := json.Marshal(resolution)
	if err != nil {
		return nil, fmt.Errorf("encode resolution: %w", err)
	}
	return r.updateOpenCase(ctx, id, `
		UPDATE fraud_cases SET resolved = TRUE, resolved_at = NOW(), resolution = $2, updated_at = NOW()
		WHERE id = $1 AND resolved = FALSE
		RETURNING `+caseColumns, id, resolutionJSON)
}

// AppendNote appends to the investigator notes, open or resolved
func (r *Repository) AppendNote(ctx context.Context, id uuid.UUID, entry string) (*Case, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	c, err := scanCase(r.db.QueryRow(ctx, `
		UPDATE fraud_cases SET notes = notes || $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+caseColumns, id, entry))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("fraud case not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("append note: %w", err)
	}
	return c, nil
}

func (r *Repository) updateOpenCase(ctx context.Context, id uuid.UUID, query string, args ...interface{}) (*Case, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	c, err := scanCase(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update fraud case: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM fraud_cases WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check fraud case: %w", err)
	}
	if !exists {
		return nil, common.NewNotFoundError("fraud case not found", nil)
	}
	return nil, common.NewConflictError("fraud case already resolved")
}

// CheckStatus aggregates the flag state of a user across all cases
func (r *Repository) CheckStatus(ctx context.Context, userID uuid.UUID) (*StatusResult, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	res := &StatusResult{UserID: userID, RecommendedAction: ActionNone}
	var activeID *uuid.UUID
	var activeScore *int
	var activeAction *string

	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COALESCE(MAX(fraud_score), 0) FROM fraud_cases WHERE user_id = $1),
			open.id, open.fraud_score, open.recommended_action
		FROM (SELECT 1) AS one
		LEFT JOIN fraud_cases open
			ON open.user_id = $1 AND open.resolved = FALSE AND open.status <> 'false_positive'`,
		userID,
	).Scan(&res.MaxFraudScore, &activeID, &activeScore, &activeAction)
	if err != nil {
		return nil, fmt.Errorf("check fraud status: %w", err)
	}

	if activeID != nil {
		res.IsFlagged = true
		res.ActiveCaseID = activeID
		if activeScore != nil {
			res.ActiveFraudScore = *activeScore
		}
		if activeAction != nil {
			res.RecommendedAction = Action(*activeAction)
		}
	}
	return res, nil
}

// Statistics summarises all cases
func (r *Repository) Statistics(ctx context.Context) (*Statistics, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	stats := &Statistics{}
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending_review'),
			COUNT(*) FILTER (WHERE status = 'confirmed_fraud'),
			COUNT(*) FILTER (WHERE status = 'false_positive'),
			COUNT(*) FILTER (WHERE immediate_risk),
			COALESCE(AVG(fraud_score), 0)::float8,
			COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '7 days')
		FROM fraud_cases`,
	).Scan(&stats.TotalCases, &stats.PendingReview, &stats.ConfirmedFraud, &stats.FalsePositives,
		&stats.ImmediateRiskCases, &stats.AverageFraudScore, &stats.RecentCases)
	if err != nil {
		return nil, fmt.Errorf("fraud statistics: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT f->>'category' AS category, COUNT(*)
		FROM fraud_cases, jsonb_array_elements(flags) AS f
		GROUP BY 1
		ORDER BY 2 DESC, 1
		LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("top flag categories: %w", err)
	}
	defer rows.Close()

	stats.TopCategories = []CategoryCount{}
	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		stats.TopCategories = append(stats.TopCategories, cc)
	}
	return stats, rows.Err()
}

// UserSnapshot reads the account and order figures of a user
func (r *Repository) UserSnapshot(ctx context.Context, userID uuid.UUID) (*UserSnapshot, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	var snap UserSnapshot
	var createdAt time.Time
	err := r.db.QueryRow(ctx, `
		SELECT
			u.created_at, u.email_verified, u.phone_verified, u.identity_verified,
			COUNT(o.id),
			COUNT(o.id) FILTER (WHERE o.status = 'cancelled'),
			COUNT(o.id) FILTER (WHERE o.status = 'completed'),
			COALESCE(AVG(o.total_amount), 0)::float8,
			COALESCE(SUM(o.total_amount) FILTER (WHERE o.buyer_id = u.id), 0)::float8,
			COALESCE(SUM(o.total_amount) FILTER (WHERE o.seller_id = u.id AND o.status = 'completed'), 0)::float8,
			COUNT(o.id) FILTER (WHERE o.created_at > NOW() - INTERVAL '24 hours'),
			COUNT(o.id) FILTER (WHERE o.created_at > NOW() - INTERVAL '7 days')
		FROM users u
		LEFT JOIN orders o ON o.buyer_id = u.id OR o.seller_id = u.id
		WHERE u.id = $1
		GROUP BY u.id`, userID,
	).Scan(
		&createdAt, &snap.VerificationStatus.Email, &snap.VerificationStatus.Phone, &snap.VerificationStatus.Identity,
		&snap.TotalOrders, &snap.CancelledOrders, &snap.CompletedOrders,
		&snap.AverageOrderValue, &snap.TotalSpent, &snap.TotalEarned,
		&snap.RecentActivity.OrdersLast24h, &snap.RecentActivity.OrdersLast7Days,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("user not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("user snapshot: %w", err)
	}

	snap.AccountAge = int(time.Since(createdAt).Hours() / 24)
	snap.RecentActivity.LoginLocations = []string{}
	snap.RecentActivity.DeviceInfo = []string{}
	return &snap, nil
}

// SellerReports lists accepted and under-review reports against a seller
func (r *Repository) SellerReports(ctx context.Context, sellerID uuid.UUID) ([]SellerReport, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, category, severity, credibility_score, description, created_at
		FROM reports
		WHERE reported_user_id = $1 AND status IN ('accepted', 'under_review')
		ORDER BY created_at DESC`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("seller reports: %w", err)
	}
	defer rows.Close()

	var out []SellerReport
	for rows.Next() {
		var sr SellerReport
		if err := rows.Scan(&sr.ID, &sr.Category, &sr.Severity, &sr.ReporterCredibility, &sr.Description, &sr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan seller report: %w", err)
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// SellerOrderStats counts a seller's orders by outcome
func (r *Repository) SellerOrderStats(ctx context.Context, sellerID uuid.UUID) (*OrderStats, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	var stats OrderStats
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COALESCE(AVG(total_amount), 0)::float8
		FROM orders WHERE seller_id = $1`, sellerID,
	).Scan(&stats.Total, &stats.Completed, &stats.Cancelled, &stats.AverageValue)
	if err != nil {
		return nil, fmt.Errorf("seller order stats: %w", err)
	}
	return &stats, nil
}

func encodeJSON(values ...interface{}) ([][]byte, error) {
	out := make([][]byte, len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode fraud case field %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

func scanCase(row pgx.Row, extra ...interface{}) (*Case, error) {
	var c Case
	var flags, trigger, snapshot, patterns, aiAnalysis, review, priorFlags, related, resolution []byte

	dest := []interface{}{
		&c.ID, &c.UserID, &c.FraudScore, &c.Status, &flags, &trigger, &snapshot, &patterns,
		&aiAnalysis, &review, &priorFlags, &related,
		&c.RiskAssessment.ImmediateRisk, &c.RiskAssessment.PotentialLoss, &c.RiskAssessment.AffectedUsers, &c.RiskAssessment.RecommendedAction,
		&c.Notes, &c.Resolved, &c.ResolvedAt, &resolution, &c.LastCheckedAt, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(flags, &c.Flags); err != nil {
		c.Flags = []Flag{}
	}
	_ = json.Unmarshal(trigger, &c.TriggeringEvent)
	_ = json.Unmarshal(snapshot, &c.UserSnapshot)
	if err := json.Unmarshal(patterns, &c.SuspiciousPatterns); err != nil {
		c.SuspiciousPatterns = []SuspiciousPattern{}
	}
	if err := json.Unmarshal(priorFlags, &c.PriorFlags); err != nil {
		c.PriorFlags = []PriorFlag{}
	}
	if err := json.Unmarshal(related, &c.RelatedCases); err != nil {
		c.RelatedCases = []uuid.UUID{}
	}
	if len(aiAnalysis) > 0 {
		c.AIAnalysis = &AIAnalysis{}
		if err := json.Unmarshal(aiAnalysis, c.AIAnalysis); err != nil {
			c.AIAnalysis = nil
		}
	}
	if len(review) > 0 {
		c.Review = &Review{}
		if err := json.Unmarshal(review, c.Review); err != nil {
			c.Review = nil
		}
	}
	if len(resolution) > 0 {
		c.Resolution = &Resolution{}
		if err := json.Unmarshal(resolution, c.Resolution); err != nil {
			c.Resolution = nil
		}
	}
	return &c, nil
}
