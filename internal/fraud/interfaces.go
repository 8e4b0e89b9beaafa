package fraud

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryInterface defines the persistence operations the fraud service needs
type RepositoryInterface interface {
	UpsertCase(ctx context.Context, c *Case) (*Case, bool, error)
	GetCase(ctx context.Context, id uuid.UUID) (*Case, error)
	ListUserCases(ctx context.Context, userID uuid.UUID) ([]*Case, error)
	ListCases(ctx context.Context, filter CaseFilter) ([]*Case, int64, error)
	ApplyReview(ctx context.Context, id uuid.UUID, status CaseStatus, review *Review, resolution *Resolution) (*Case, error)
	Resolve(ctx context.Context, id uuid.UUID, resolution Resolution) (*Case, error)
	AppendNote(ctx context.Context, id uuid.UUID, entry string) (*Case, error)
	CheckStatus(ctx context.Context, userID uuid.UUID) (*StatusResult, error)
	Statistics(ctx context.Context) (*Statistics, error)
	UserSnapshot(ctx context.Context, userID uuid.UUID) (*UserSnapshot, error)
	SellerReports(ctx context.Context, sellerID uuid.UUID) ([]SellerReport, error)
	SellerOrderStats(ctx context.Context, sellerID uuid.UUID) (*OrderStats, error)
}

// Suspender disables an account
type Suspender interface {
	SuspendUser(ctx context.Context, userID uuid.UUID, reason, source string) error
}

// StatusCache holds CheckStatus answers per user
type StatusCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*StatusResult, bool)
	Set(ctx context.Context, result *StatusResult)
	Invalidate(ctx context.Context, userID uuid.UUID)
}
