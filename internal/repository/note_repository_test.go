package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/notium/server/internal/models"
	"github.com/notium/server/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListNotesByWorkspace(t *testing.T) {
	query := regexp.QuoteMeta(`SELECT id, title, content, workspace_id, created_at, updated_at FROM notes WHERE workspace_id=$1 ORDER BY created_at`)
	now := time.Now()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := repository.NewPostgresNoteRepository(sqlx.NewDb(db, "sqlmock"))

	rows := sqlmock.NewRows([]string{"id", "title", "content", "workspace_id", "created_at", "updated_at"}).
		AddRow("n1", "План", "## список дел", "ws1", now, now)
	mock.ExpectQuery(query).WithArgs("ws1").WillReturnRows(rows)

	notes, err := repo.ListNotesByWorkspace(context.Background(), "ws1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "n1", notes[0].ID)
	assert.Equal(t, "ws1", notes[0].WorkspaceID)
}

func TestBulkInsertNotesTx(t *testing.T) {
	t.Run("Вставка с сохранением исходных id", func(t *testing.T) {
		tx, sqlxDB, mock := setupTxMock(t)
		repo := repository.NewPostgresNoteRepository(sqlxDB)

		mock.ExpectExec("INSERT INTO notes").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		notes := []models.Note{{ID: "n1", Title: "План", Content: "текст", WorkspaceID: "ws1"}}
		require.NoError(t, repo.BulkInsertNotesTx(context.Background(), tx, notes))
		require.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Пустой список — запрос не выполняется", func(t *testing.T) {
		tx, sqlxDB, mock := setupTxMock(t)
		repo := repository.NewPostgresNoteRepository(sqlxDB)
		mock.ExpectCommit()

		require.NoError(t, repo.BulkInsertNotesTx(context.Background(), tx, nil))
		require.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteNotesByWorkspaceTx(t *testing.T) {
	query := regexp.QuoteMeta(`DELETE FROM notes WHERE workspace_id=$1`)

	tx, sqlxDB, mock := setupTxMock(t)
	repo := repository.NewPostgresNoteRepository(sqlxDB)
	mock.ExpectExec(query).WithArgs("ws1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteNotesByWorkspaceTx(context.Background(), tx, "ws1"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
