package reports

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/internal/fraud"
)

// RepositoryInterface defines the persistence operations the report service needs
type RepositoryInterface interface {
	OrderParties(ctx context.Context, orderID uuid.UUID) (*OrderParties, error)
	Exists(ctx context.Context, reporterID, orderID uuid.UUID) (bool, error)
	ReporterProfile(ctx context.Context, reporterID uuid.UUID) (*ReporterProfile, error)
	CountSimilar(ctx context.Context, sellerID uuid.UUID, category Category) (int, error)
	Create(ctx context.Context, rep *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	LinkFraudCase(ctx context.Context, id, caseID uuid.UUID, adjustment int) (bool, error)
	ApplyReview(ctx context.Context, id uuid.UUID, expected, next Status, review *Review) (*Report, error)
	Resolve(ctx context.Context, id uuid.UUID, resolution Resolution) (*Report, error)
	List(ctx context.Context, filter Filter) ([]*Report, int64, error)
	ListByReporter(ctx context.Context, reporterID uuid.UUID, limit, offset int) ([]*Report, int64, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*Report, error)
}

// FraudEngine is the part of the fraud service reports depend on
type FraudEngine interface {
	CheckStatus(ctx context.Context, userID uuid.UUID) (*fraud.StatusResult, error)
	AnalyzeSeller(ctx context.Context, sellerID uuid.UUID, rc fraud.ReportContext) (*fraud.Case, error)
}

// Suspender disables an account
type Suspender interface {
	SuspendUser(ctx context.Context, userID uuid.UUID, reason, source string) error
}
