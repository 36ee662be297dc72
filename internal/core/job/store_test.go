package job

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStoreWithDB(mock), mock
}

func TestStoreCreate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs("job-1", StatusPending, 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Create(context.Background(), "job-1", 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreLifecycleUpdates(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs("job-1", StatusRunning).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.MarkRunning(ctx, "job-1"))

	mock.ExpectExec("UPDATE jobs SET completed_urls").
		WithArgs("job-1", 1, 0, "https://x.test/p2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.SetProgress(ctx, "job-1", 1, 0, "https://x.test/p2"))

	mock.ExpectExec("UPDATE jobs").
		WithArgs("job-1", StatusCompleted, 2, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.Complete(ctx, "job-1", 2, 1))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreFail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs("job-1", StatusFailed, "enqueue failed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.Fail(context.Background(), "job-1", "enqueue failed"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGet(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"id", "status", "total_urls", "completed_urls", "failed_urls",
		"current_url", "error_message", "created_at", "completed_at",
	}).AddRow("job-1", StatusRunning, 4, 2, 1, strPtr("https://x.test/p3"), (*string)(nil), created, (*time.Time)(nil))

	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs("job-1").
		WillReturnRows(rows)

	j, err := store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, j.Status)
	assert.Equal(t, 4, j.TotalURLs)
	assert.Equal(t, 2, j.CompletedURLs)
	assert.Equal(t, 1, j.FailedURLs)
	require.NotNil(t, j.CurrentURL)
	assert.Equal(t, "https://x.test/p3", *j.CurrentURL)
	assert.Equal(t, 50.0, j.Progress())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "status", "total_urls", "completed_urls", "failed_urls",
			"current_url", "error_message", "created_at", "completed_at",
		}))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreList(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"id", "status", "total_urls", "completed_urls", "failed_urls",
		"current_url", "error_message", "created_at", "completed_at",
	}).
		AddRow("job-2", StatusPending, 1, 0, 0, (*string)(nil), (*string)(nil), now, (*time.Time)(nil)).
		AddRow("job-1", StatusCompleted, 2, 2, 0, (*string)(nil), (*string)(nil), now.Add(-time.Hour), &now)

	mock.ExpectQuery("SELECT (.+) FROM jobs ORDER BY created_at DESC").
		WithArgs(20).
		WillReturnRows(rows)

	jobs, err := store.List(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-2", jobs[0].ID)
	assert.Equal(t, "job-1", jobs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func strPtr(s string) *string { return &s }
