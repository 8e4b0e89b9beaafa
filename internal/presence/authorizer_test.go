package presence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const participantQuery = `SELECT 1 FROM orders WHERE id = \$1 AND \(buyer_id = \$2 OR seller_id = \$2\)`

func newAuthorizer(t *testing.T) (*OrderParticipants, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewOrderParticipants(db), mock
}

func TestAuthorize_Participant(t *testing.T) {
	auth, mock := newAuthorizer(t)
	orderID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(participantQuery).
		WithArgs(orderID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	assert.True(t, auth.Authorize(context.Background(), userID.String(), orderID.String()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorize_NotParticipant(t *testing.T) {
	auth, mock := newAuthorizer(t)
	orderID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(participantQuery).
		WithArgs(orderID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	assert.False(t, auth.Authorize(context.Background(), userID.String(), orderID.String()))
}

func TestAuthorize_QueryErrorDenies(t *testing.T) {
	auth, mock := newAuthorizer(t)
	orderID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(participantQuery).
		WithArgs(orderID, userID).
		WillReturnError(errors.New("connection refused"))

	assert.False(t, auth.Authorize(context.Background(), userID.String(), orderID.String()))
}

func TestAuthorize_InvalidIDs(t *testing.T) {
	auth, mock := newAuthorizer(t)

	assert.False(t, auth.Authorize(context.Background(), uuid.NewString(), "not-an-order"))
	assert.False(t, auth.Authorize(context.Background(), "nobody", uuid.NewString()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
