package accounts

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/eventbus"
	"github.com/richxcame/gigmarket/pkg/models"
	"github.com/richxcame/gigmarket/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct{ mock.Mock }

func (m *mockRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockRepository) Suspend(ctx context.Context, id uuid.UUID, reason string) (*models.User, bool, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *mockRepository) Activate(ctx context.Context, id uuid.UUID) (*models.User, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

type fixture struct {
	repo      *mockRepository
	publisher *mocks.MockPublisher
	service   *Service
}

func newFixture() *fixture {
	f := &fixture{repo: new(mockRepository), publisher: mocks.AnyPublish()}
	f.service = NewService(f.repo, f.publisher)
	return f
}

func assertAppError(t *testing.T, err error, code int, message string) {
	t.Helper()
	appErr, ok := common.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

func boolPtr(b bool) *bool { return &b }

func TestSuspendUser_PublishesOnce(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("newly suspended", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Suspend", ctx, userID, "Fraud score: 90").Return(&models.User{ID: userID}, true, nil).Once()

		require.NoError(t, f.service.SuspendUser(ctx, userID, "Fraud score: 90", "fraud_auto_suspend"))
		assert.Equal(t, []string{eventbus.SubjectAccountSuspended}, f.publisher.PublishedSubjects())

		event := f.publisher.Calls[0].Arguments.Get(2).(*eventbus.Event)
		var data eventbus.AccountSuspendedData
		require.NoError(t, event.Decode(&data))
		assert.Equal(t, userID, data.UserID)
		assert.Equal(t, "fraud_auto_suspend", data.Source)
	})

	t.Run("already suspended", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Suspend", ctx, userID, "again").Return(&models.User{ID: userID}, false, nil).Once()

		require.NoError(t, f.service.SuspendUser(ctx, userID, "again", "report_review"))
		assert.Empty(t, f.publisher.PublishedSubjects())
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Suspend", ctx, userID, "x").Return(nil, false, common.NewNotFoundError("user not found", nil)).Once()

		err := f.service.SuspendUser(ctx, userID, "x", "admin")
		assertAppError(t, err, http.StatusNotFound, "user not found")
	})

	t.Run("publish failure is not fatal", func(t *testing.T) {
		f := newFixture()
		f.publisher = new(mocks.MockPublisher)
		f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("nats down"))
		f.service = NewService(f.repo, f.publisher)
		f.repo.On("Suspend", ctx, userID, "x").Return(&models.User{ID: userID}, true, nil).Once()

		assert.NoError(t, f.service.SuspendUser(ctx, userID, "x", "admin"))
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()
	userID := uuid.New()

	t.Run("suspend requires reason", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.UpdateStatus(ctx, adminID, userID, &UpdateStatusRequest{Active: boolPtr(false), Reason: "  "})
		assertAppError(t, err, http.StatusBadRequest, "reason is required to suspend an account")
		f.repo.AssertNotCalled(t, "Suspend", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("suspend", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Suspend", ctx, userID, "chargebacks").Return(&models.User{ID: userID}, true, nil).Once()

		user, err := f.service.UpdateStatus(ctx, adminID, userID, &UpdateStatusRequest{Active: boolPtr(false), Reason: " chargebacks "})
		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, []string{eventbus.SubjectAccountSuspended}, f.publisher.PublishedSubjects())
	})

	t.Run("activate", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Activate", ctx, userID).Return(&models.User{ID: userID, IsActive: true}, true, nil).Once()

		user, err := f.service.UpdateStatus(ctx, adminID, userID, &UpdateStatusRequest{Active: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, user.IsActive)
		assert.Empty(t, f.publisher.PublishedSubjects())
	})

	t.Run("own account", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.UpdateStatus(ctx, adminID, adminID, &UpdateStatusRequest{Active: boolPtr(false), Reason: "x"})
		assertAppError(t, err, http.StatusBadRequest, "cannot change your own account status")
	})
}
