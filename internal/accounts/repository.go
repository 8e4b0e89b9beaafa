package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/database"
	"github.com/richxcame/gigmarket/pkg/models"
)

const userColumns = `id, email, username, phone_number, role, is_active,
	email_verified, phone_verified, identity_verified,
	suspended_reason, suspended_at, created_at, updated_at`

// Repository handles database operations for user accounts
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new accounts repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ RepositoryInterface = (*Repository)(nil)

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("user not found", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Suspend deactivates an active account. changed is false when the account
// was already suspended.
func (r *Repository) Suspend(ctx context.Context, id uuid.UUID, reason string) (*models.User, bool, error) {
	return r.setActive(ctx, id, `
		UPDATE users
		SET is_active = FALSE, suspended_reason = $2, suspended_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_active = TRUE
		RETURNING `+userColumns, id, reason)
}

// Activate reactivates a suspended account. changed is false when the
// account was already active.
func (r *Repository) Activate(ctx context.Context, id uuid.UUID) (*models.User, bool, error) {
	return r.setActive(ctx, id, `
		UPDATE users
		SET is_active = TRUE, suspended_reason = NULL, suspended_at = NULL, updated_at = NOW()
		WHERE id = $1 AND is_active = FALSE
		RETURNING `+userColumns, id)
}

func (r *Repository) setActive(ctx context.Context, id uuid.UUID, query string, args ...interface{}) (*models.User, bool, error) {
	qctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	user, err := scanUser(r.db.QueryRow(qctx, query, args...))
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to update user status: %w", err)
	}

	user, err = r.GetUserByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return user, false, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PhoneNumber,
		&user.Role,
		&user.IsActive,
		&user.EmailVerified,
		&user.PhoneVerified,
		&user.IdentityVerified,
		&user.SuspendedReason,
		&user.SuspendedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
