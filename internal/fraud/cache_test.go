package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStatusCache_SetAndGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisStatusCache(client, 5*time.Minute)
	ctx := context.Background()

	caseID := uuid.New()
	res := &StatusResult{UserID: uuid.New(), IsFlagged: true, MaxFraudScore: 82, ActiveCaseID: &caseID, RecommendedAction: ActionImmediateSuspension}
	raw, err := json.Marshal(res)
	require.NoError(t, err)

	mock.ExpectSet(statusKey(res.UserID), raw, 5*time.Minute).SetVal("OK")
	cache.Set(ctx, res)

	mock.ExpectGet(statusKey(res.UserID)).SetVal(string(raw))
	got, ok := cache.Get(ctx, res.UserID)
	require.True(t, ok)
	assert.Equal(t, res, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStatusCache_Miss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisStatusCache(client, time.Minute)
	userID := uuid.New()

	mock.ExpectGet(statusKey(userID)).RedisNil()
	_, ok := cache.Get(context.Background(), userID)
	assert.False(t, ok)

	mock.ExpectGet(statusKey(userID)).SetErr(errors.New("connection refused"))
	_, ok = cache.Get(context.Background(), userID)
	assert.False(t, ok)

	mock.ExpectGet(statusKey(userID)).SetVal("not json")
	_, ok = cache.Get(context.Background(), userID)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStatusCache_Invalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisStatusCache(client, time.Minute)
	userID := uuid.New()

	mock.ExpectDel("fraud:status:" + userID.String()).SetVal(1)
	cache.Invalidate(context.Background(), userID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStatusCache_InvalidateRetriesConnectionErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisStatusCache(client, time.Minute)
	userID := uuid.New()

	mock.ExpectDel(statusKey(userID)).SetErr(errors.New("dial tcp: connection refused"))
	mock.ExpectDel(statusKey(userID)).SetVal(1)
	cache.Invalidate(context.Background(), userID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
