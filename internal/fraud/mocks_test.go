package fraud

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) UpsertCase(ctx context.Context, c *Case) (*Case, bool, error) {
	args := m.Called(ctx, c)
	if fn, ok := args.Get(0).(func(context.Context, *Case) *Case); ok {
		return fn(ctx, c), args.Bool(1), args.Error(2)
	}
	out, _ := args.Get(0).(*Case)
	return out, args.Bool(1), args.Error(2)
}

func (m *mockRepository) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*Case)
	return out, args.Error(1)
}

func (m *mockRepository) ListUserCases(ctx context.Context, userID uuid.UUID) ([]*Case, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).([]*Case)
	return out, args.Error(1)
}

func (m *mockRepository) ListCases(ctx context.Context, filter CaseFilter) ([]*Case, int64, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]*Case)
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockRepository) ApplyReview(ctx context.Context, id uuid.UUID, status CaseStatus, review *Review, resolution *Resolution) (*Case, error) {
	args := m.Called(ctx, id, status, review, resolution)
	out, _ := args.Get(0).(*Case)
	return out, args.Error(1)
}

func (m *mockRepository) Resolve(ctx context.Context, id uuid.UUID, resolution Resolution) (*Case, error) {
	args := m.Called(ctx, id, resolution)
	out, _ := args.Get(0).(*Case)
	return out, args.Error(1)
}

func (m *mockRepository) AppendNote(ctx context.Context, id uuid.UUID, entry string) (*Case, error) {
	args := m.Called(ctx, id, entry)
	out, _ := args.Get(0).(*Case)
	return out, args.Error(1)
}

func (m *mockRepository) CheckStatus(ctx context.Context, userID uuid.UUID) (*StatusResult, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).(*StatusResult)
	return out, args.Error(1)
}

func (m *mockRepository) Statistics(ctx context.Context) (*Statistics, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).(*Statistics)
	return out, args.Error(1)
}

func (m *mockRepository) UserSnapshot(ctx context.Context, userID uuid.UUID) (*UserSnapshot, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).(*UserSnapshot)
	return out, args.Error(1)
}

func (m *mockRepository) SellerReports(ctx context.Context, sellerID uuid.UUID) ([]SellerReport, error) {
	args := m.Called(ctx, sellerID)
	out, _ := args.Get(0).([]SellerReport)
	return out, args.Error(1)
}

func (m *mockRepository) SellerOrderStats(ctx context.Context, sellerID uuid.UUID) (*OrderStats, error) {
	args := m.Called(ctx, sellerID)
	out, _ := args.Get(0).(*OrderStats)
	return out, args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, userID uuid.UUID) (*StatusResult, bool) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).(*StatusResult)
	return out, args.Bool(1)
}

func (m *mockCache) Set(ctx context.Context, result *StatusResult) {
	m.Called(ctx, result)
}

func (m *mockCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	m.Called(ctx, userID)
}
