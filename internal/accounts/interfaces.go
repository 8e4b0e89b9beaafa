package accounts

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/models"
)

// RepositoryInterface defines the account persistence operations
type RepositoryInterface interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Suspend(ctx context.Context, id uuid.UUID, reason string) (*models.User, bool, error)
	Activate(ctx context.Context, id uuid.UUID) (*models.User, bool, error)
}
