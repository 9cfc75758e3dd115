package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/model"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return sqlx.NewDb(db, "postgres"), mock
}

func TestConfirmAppliesOnce(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSubscriberRepository(db)

	mock.ExpectExec("UPDATE subscribers").
		WithArgs(model.SubscriberStatusActive, sqlmock.AnyArg(), sqlmock.AnyArg(), "tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.Confirm(context.Background(), "tok-1", time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmAlreadyConfirmedChangesNothing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSubscriberRepository(db)

	// The conditional WHERE is_confirmed = FALSE matches no rows.
	mock.ExpectExec("UPDATE subscribers").
		WithArgs(model.SubscriberStatusActive, sqlmock.AnyArg(), sqlmock.AnyArg(), "tok-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.Confirm(context.Background(), "tok-1", time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnsubscribeSkipsAlreadyUnsubscribed(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSubscriberRepository(db)

	mock.ExpectExec("UPDATE subscribers").
		WithArgs(model.SubscriberStatusUnsubscribed, sqlmock.AnyArg(), "unsub-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.Unsubscribe(context.Background(), "unsub-1")
	require.NoError(t, err)
	assert.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListBuildsFilterClauses(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSubscriberRepository(db)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM subscribers").
		WithArgs("active", "en").
		WillReturnRows(countRows)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "email", "language", "status", "is_confirmed", "is_active",
		"confirm_token", "unsub_token", "consent_given_at", "ip_address",
		"confirmed_at", "created_at", "updated_at",
	}).AddRow(
		"8b7f4f6e-65f0-4a02-9a91-54c21e2e7b11", "reader@example.com", "en",
		"active", true, true, "ct", "ut", now, "203.0.113.7", now, now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM subscribers").
		WithArgs("active", "en", 25, 0).
		WillReturnRows(rows)

	filters := &model.SubscriberFilters{
		Status:   model.SubscriberStatusActive,
		Language: "en",
	}
	filters.Normalize()

	subs, total, err := repo.List(context.Background(), filters)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, subs, 1)
	assert.Equal(t, "reader@example.com", subs[0].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}
