package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	models "github.com/chrisdamba/excursiondesk/internal"
	"github.com/chrisdamba/excursiondesk/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (pgxmock.PgxPoolIface, *repository.SnapshotRepository) {
	mockDb, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mockDb, repository.NewSnapshotRepository(mockDb)
}

func TestEnsureSchema(t *testing.T) {
	mockDb, repo := setupMockDB(t)
	defer mockDb.Close()

	mockDb.ExpectExec("CREATE TABLE IF NOT EXISTS draft_snapshots").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mockDb.ExpectationsWereMet())
}

func TestSaveDrafts(t *testing.T) {
	fetchedAt := time.Date(2025, 5, 30, 10, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta(`INSERT INTO draft_snapshots (family_id, payload, fetched_at)`)

	t.Run("upserts the encoded list", func(t *testing.T) {
		mockDb, repo := setupMockDB(t)
		defer mockDb.Close()

		drafts := []models.Booking{{ID: 1, Status: models.StatusDraft, Date: "2025-06-01", ExcursionID: 5}}
		mockDb.ExpectExec(query).
			WithArgs(9, pgxmock.AnyArg(), fetchedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.SaveDrafts(context.Background(), 9, drafts, fetchedAt)

		assert.NoError(t, err)
		assert.NoError(t, mockDb.ExpectationsWereMet())
	})

	t.Run("nil list is stored as empty", func(t *testing.T) {
		mockDb, repo := setupMockDB(t)
		defer mockDb.Close()

		mockDb.ExpectExec(query).
			WithArgs(9, []byte("[]"), fetchedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.SaveDrafts(context.Background(), 9, nil, fetchedAt))
		assert.NoError(t, mockDb.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mockDb, repo := setupMockDB(t)
		defer mockDb.Close()

		mockDb.ExpectExec(query).WillReturnError(errors.New("disk full"))

		err := repo.SaveDrafts(context.Background(), 9, nil, fetchedAt)

		assert.ErrorContains(t, err, "saving snapshot for family 9: disk full")
	})
}

func TestLoadDrafts(t *testing.T) {
	fetchedAt := time.Date(2025, 5, 30, 10, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta(`SELECT payload, fetched_at`)

	t.Run("found", func(t *testing.T) {
		mockDb, repo := setupMockDB(t)
		defer mockDb.Close()

		rows := pgxmock.NewRows([]string{"payload", "fetched_at"}).
			AddRow([]byte(`[{"id":1,"status":"DRAFT","gross_total":"12,50"}]`), fetchedAt)
		mockDb.ExpectQuery(query).WithArgs(9).WillReturnRows(rows)

		snap, err := repo.LoadDrafts(context.Background(), 9)

		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, 9, snap.FamilyID)
		assert.Equal(t, fetchedAt, snap.FetchedAt)
		require.Len(t, snap.Drafts, 1)
		assert.Equal(t, models.Amount(12.5), snap.Drafts[0].GrossTotal)
	})

	t.Run("missing", func(t *testing.T) {
		mockDb, repo := setupMockDB(t)
		defer mockDb.Close()

		mockDb.ExpectQuery(query).WithArgs(9).WillReturnError(pgx.ErrNoRows)

		snap, err := repo.LoadDrafts(context.Background(), 9)

		assert.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		mockDb, repo := setupMockDB(t)
		defer mockDb.Close()

		rows := pgxmock.NewRows([]string{"payload", "fetched_at"}).AddRow([]byte(`{`), fetchedAt)
		mockDb.ExpectQuery(query).WithArgs(9).WillReturnRows(rows)

		_, err := repo.LoadDrafts(context.Background(), 9)

		assert.ErrorContains(t, err, "decoding snapshot for family 9")
	})
}

func TestListSnapshots(t *testing.T) {
	mockDb, repo := setupMockDB(t)
	defer mockDb.Close()

	first := time.Date(2025, 5, 30, 10, 0, 0, 0, time.UTC)
	second := first.Add(-time.Hour)
	rows := pgxmock.NewRows([]string{"family_id", "jsonb_array_length", "fetched_at"}).
		AddRow(9, 3, first).
		AddRow(4, 0, second)
	mockDb.ExpectQuery(regexp.QuoteMeta("FROM draft_snapshots")).WithArgs(10).WillReturnRows(rows)

	infos, err := repo.ListSnapshots(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, []repository.SnapshotInfo{
		{FamilyID: 9, Rows: 3, FetchedAt: first},
		{FamilyID: 4, Rows: 0, FetchedAt: second},
	}, infos)
	assert.NoError(t, mockDb.ExpectationsWereMet())
}

func TestPurgeBefore(t *testing.T) {
	mockDb, repo := setupMockDB(t)
	defer mockDb.Close()

	cutoff := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	mockDb.ExpectExec(regexp.QuoteMeta("DELETE FROM draft_snapshots")).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := repo.PurgeBefore(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
