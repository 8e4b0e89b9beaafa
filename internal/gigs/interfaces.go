package gigs

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryInterface defines the persistence operations the gig service needs
type RepositoryInterface interface {
	Create(ctx context.Context, g *Gig) error
	GetByID(ctx context.Context, id uuid.UUID) (*Gig, error)
	List(ctx context.Context, filter ListFilter) ([]*Gig, int64, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, filter SellerFilter) ([]*Gig, int64, error)
	Update(ctx context.Context, g *Gig) (*Gig, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*Gig, error)
}
