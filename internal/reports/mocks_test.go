package reports

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/internal/fraud"
	"github.com/stretchr/testify/mock"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) OrderParties(ctx context.Context, orderID uuid.UUID) (*OrderParties, error) {
	args := m.Called(ctx, orderID)
	out, _ := args.Get(0).(*OrderParties)
	return out, args.Error(1)
}

func (m *mockRepository) Exists(ctx context.Context, reporterID, orderID uuid.UUID) (bool, error) {
	args := m.Called(ctx, reporterID, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) ReporterProfile(ctx context.Context, reporterID uuid.UUID) (*ReporterProfile, error) {
	args := m.Called(ctx, reporterID)
	out, _ := args.Get(0).(*ReporterProfile)
	return out, args.Error(1)
}

func (m *mockRepository) CountSimilar(ctx context.Context, sellerID uuid.UUID, category Category) (int, error) {
	args := m.Called(ctx, sellerID, category)
	return args.Int(0), args.Error(1)
}

func (m *mockRepository) Create(ctx context.Context, rep *Report) error {
	args := m.Called(ctx, rep)
	return args.Error(0)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*Report)
	return out, args.Error(1)
}

func (m *mockRepository) LinkFraudCase(ctx context.Context, id, caseID uuid.UUID, adjustment int) (bool, error) {
	args := m.Called(ctx, id, caseID, adjustment)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) ApplyReview(ctx context.Context, id uuid.UUID, expected, next Status, review *Review) (*Report, error) {
	args := m.Called(ctx, id, expected, next, review)
	out, _ := args.Get(0).(*Report)
	return out, args.Error(1)
}

func (m *mockRepository) Resolve(ctx context.Context, id uuid.UUID, resolution Resolution) (*Report, error) {
	args := m.Called(ctx, id, resolution)
	out, _ := args.Get(0).(*Report)
	return out, args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, filter Filter) ([]*Report, int64, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]*Report)
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockRepository) ListByReporter(ctx context.Context, reporterID uuid.UUID, limit, offset int) ([]*Report, int64, error) {
	args := m.Called(ctx, reporterID, limit, offset)
	out, _ := args.Get(0).([]*Report)
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*Report, error) {
	args := m.Called(ctx, sellerID)
	out, _ := args.Get(0).([]*Report)
	return out, args.Error(1)
}

type mockFraud struct {
	mock.Mock
}

func (m *mockFraud) CheckStatus(ctx context.Context, userID uuid.UUID) (*fraud.StatusResult, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).(*fraud.StatusResult)
	return out, args.Error(1)
}

func (m *mockFraud) AnalyzeSeller(ctx context.Context, sellerID uuid.UUID, rc fraud.ReportContext) (*fraud.Case, error) {
	args := m.Called(ctx, sellerID, rc)
	out, _ := args.Get(0).(*fraud.Case)
	return out, args.Error(1)
}
