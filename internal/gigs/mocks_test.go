package gigs

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, g *Gig) error {
	return m.Called(ctx, g).Error(0)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Gig, error) {
	args := m.Called(ctx, id)
	g, _ := args.Get(0).(*Gig)
	return g, args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, filter ListFilter) ([]*Gig, int64, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]*Gig)
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, filter SellerFilter) ([]*Gig, int64, error) {
	args := m.Called(ctx, sellerID, filter)
	out, _ := args.Get(0).([]*Gig)
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockRepository) Update(ctx context.Context, g *Gig) (*Gig, error) {
	args := m.Called(ctx, g)
	out, _ := args.Get(0).(*Gig)
	return out, args.Error(1)
}

func (m *mockRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Gig, error) {
	args := m.Called(ctx, id, active)
	out, _ := args.Get(0).(*Gig)
	return out, args.Error(1)
}
