package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/eventbus"
	"github.com/richxcame/gigmarket/pkg/storage"
	"github.com/stretchr/testify/mock"
)

// MockPublisher is a mock implementation of eventbus.Publisher
type MockPublisher struct {
	mock.Mock
}

// Publish mocks publishing an event
func (m *MockPublisher) Publish(ctx context.Context, subject string, event *eventbus.Event) error {
	args := m.Called(ctx, subject, event)
	return args.Error(0)
}

// MockSuspender is a mock of the account suspension collaborator
type MockSuspender struct {
	mock.Mock
}

// SuspendUser mocks suspending an account
func (m *MockSuspender) SuspendUser(ctx context.Context, userID uuid.UUID, reason, source string) error {
	args := m.Called(ctx, userID, reason, source)
	return args.Error(0)
}

// MockStorage is a mock implementation of storage.Storage
type MockStorage struct {
	mock.Mock
}

// Upload mocks uploading an object
func (m *MockStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*storage.UploadResult, error) {
	args := m.Called(ctx, key, reader, size, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

// Delete mocks deleting an object
func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// GetURL mocks building an object URL
func (m *MockStorage) GetURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

// AnyPublish allows every publish and records nothing else
func AnyPublish() *MockPublisher {
	p := new(MockPublisher)
	p.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return p
}

// PublishedSubjects returns the subjects passed to Publish, in order
func (m *MockPublisher) PublishedSubjects() []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			out = append(out, call.Arguments.String(1))
		}
	}
	return out
}

// MockSubscriber records event subscriptions
type MockSubscriber struct {
	mock.Mock
}

// Subscribe mocks registering a durable subscription
func (m *MockSubscriber) Subscribe(ctx context.Context, subject, durable string, handler eventbus.Handler) error {
	args := m.Called(ctx, subject, durable, handler)
	return args.Error(0)
}
