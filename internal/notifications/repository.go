package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/database"
)

// Contact is where a user can be reached
type Contact struct {
	UserID   uuid.UUID
	Name     string
	Email    string
	Phone    *string
	Verified bool
}

// RepositoryInterface looks up user contact details
type RepositoryInterface interface {
	GetContact(ctx context.Context, userID uuid.UUID) (*Contact, error)
}

// Repository reads contact details from the users table
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new notifications repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetContact returns the email and phone of a user
func (r *Repository) GetContact(ctx context.Context, userID uuid.UUID) (*Contact, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	c := &Contact{UserID: userID}
	err := r.db.QueryRow(ctx,
		`SELECT username, email, phone_number, phone_verified FROM users WHERE id = $1`, userID,
	).Scan(&c.Name, &c.Email, &c.Phone, &c.Verified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("user not found", err)
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return c, nil
}
