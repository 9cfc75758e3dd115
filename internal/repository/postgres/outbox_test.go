package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/model"
)

func TestClaimPendingMarksRowsProcessing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewOutboxRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "event_type", "payload", "status", "error_message", "retry_count",
		"created_at", "updated_at", "processed_at",
	}).AddRow(
		uuid.NewString(), model.EventConfirmationRequested, []byte(`{}`),
		model.OutboxStatusProcessing, nil, 0, now, now, nil,
	)

	// The claim is a single UPDATE ... RETURNING over a SKIP LOCKED subquery,
	// so two processors polling at once cannot return the same rows.
	mock.ExpectQuery("UPDATE outbox_events").
		WithArgs(model.OutboxStatusProcessing, model.OutboxStatusPending, 10).
		WillReturnRows(rows)

	events, err := repo.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusProcessing, events[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequeueStuckReturnsCount(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewOutboxRepository(db)

	cutoff := time.Now().Add(-15 * time.Minute)
	mock.ExpectExec("UPDATE outbox_events").
		WithArgs(model.OutboxStatusPending, model.OutboxStatusProcessing, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	requeued, err := repo.RequeueStuck(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), requeued)
	require.NoError(t, mock.ExpectationsWereMet())
}
