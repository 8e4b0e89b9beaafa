package accounts

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/eventbus"
	"github.com/richxcame/gigmarket/pkg/logger"
	"github.com/richxcame/gigmarket/pkg/models"
	"go.uber.org/zap"
)

const eventSource = "accounts"

// Service suspends and reactivates user accounts
type Service struct {
	repo      RepositoryInterface
	publisher eventbus.Publisher
}

// NewService creates a new accounts service
func NewService(repo RepositoryInterface, publisher eventbus.Publisher) *Service {
	if publisher == nil {
		publisher = eventbus.NoopPublisher{}
	}
	return &Service{repo: repo, publisher: publisher}
}

// SuspendUser deactivates an account. Suspending a suspended account is a
// no-op and publishes nothing.
func (s *Service) SuspendUser(ctx context.Context, userID uuid.UUID, reason, source string) error {
	_, err := s.suspend(ctx, userID, reason, source)
	return err
}

func (s *Service) suspend(ctx context.Context, userID uuid.UUID, reason, source string) (*models.User, error) {
	user, changed, err := s.repo.Suspend(ctx, userID, reason)
	if err != nil {
		return nil, err
	}
	if !changed {
		logger.WithContext(ctx).Debug("account already suspended", zap.String("user_id", userID.String()))
		return user, nil
	}

	logger.WithContext(ctx).Info("account suspended",
		zap.String("user_id", userID.String()),
		zap.String("reason", reason),
		zap.String("source", source),
	)

	event, err := eventbus.NewEvent(eventbus.SubjectAccountSuspended, eventSource, eventbus.AccountSuspendedData{
		UserID: userID,
		Reason: reason,
		Source: source,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, eventbus.SubjectAccountSuspended, event)
	}
	if err != nil {
		logger.WithContext(ctx).Warn("failed to publish account suspension", zap.String("user_id", userID.String()), zap.Error(err))
	}
	return user, nil
}

// GetUser returns an account
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// UpdateStatus is the admin action behind PUT /admin/users/:id/status
func (s *Service) UpdateStatus(ctx context.Context, adminID, userID uuid.UUID, req *UpdateStatusRequest) (*models.User, error) {
	if adminID == userID {
		return nil, common.NewBadRequestError("cannot change your own account status", nil)
	}

	if *req.Active {
		user, changed, err := s.repo.Activate(ctx, userID)
		if err != nil {
			return nil, err
		}
		if changed {
			logger.WithContext(ctx).Info("account reactivated",
				zap.String("user_id", userID.String()),
				zap.String("admin_id", adminID.String()),
			)
		}
		return user, nil
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, common.NewBadRequestError("reason is required to suspend an account", nil)
	}
	return s.suspend(ctx, userID, reason, SourceAdmin)
}
