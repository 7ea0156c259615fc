package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/notium/server/internal/models"
	"github.com/notium/server/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Вспомогательная функция для создания мока БД и репозитория папок.
func setupFolderRepoMock(t *testing.T) (repository.FolderRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return repository.NewPostgresFolderRepository(sqlxDB), mock
}

func TestListFolders(t *testing.T) {
	now := time.Now()
	parentID := "f-root"
	query := regexp.QuoteMeta(`SELECT id, name, parent_id, created_at, updated_at FROM folders ORDER BY created_at`)

	tests := []struct {
		name      string
		mockSetup func(mock sqlmock.Sqlmock)
		wantLen   int
		wantErr   bool
	}{
		{
			name: "Успешное получение списка",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name", "parent_id", "created_at", "updated_at"}).
					AddRow("f-root", "Корень", nil, now, now).
					AddRow("f-child", "Вложенная", &parentID, now, now)
				mock.ExpectQuery(query).WillReturnRows(rows)
			},
			wantLen: 2,
		},
		{
			name: "Ошибка базы данных",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WillReturnError(errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupFolderRepoMock(t)
			tt.mockSetup(mock)

			folders, err := repo.ListFolders(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, folders, tt.wantLen)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetFolderByID(t *testing.T) {
	now := time.Now()
	query := regexp.QuoteMeta(`SELECT id, name, parent_id, created_at, updated_at FROM folders WHERE id=$1`)

	t.Run("Папка найдена", func(t *testing.T) {
		repo, mock := setupFolderRepoMock(t)
		rows := sqlmock.NewRows([]string{"id", "name", "parent_id", "created_at", "updated_at"}).
			AddRow("f1", "Проекты", nil, now, now)
		mock.ExpectQuery(query).WithArgs("f1").WillReturnRows(rows)

		folder, err := repo.GetFolderByID(context.Background(), "f1")
		require.NoError(t, err)
		assert.Equal(t, "f1", folder.ID)
		assert.Equal(t, "Проекты", folder.Name)
	})

	t.Run("Папка не найдена", func(t *testing.T) {
		repo, mock := setupFolderRepoMock(t)
		mock.ExpectQuery(query).WithArgs("missing").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetFolderByID(context.Background(), "missing")
		assert.ErrorIs(t, err, repository.ErrFolderNotFound)
	})
}

func TestCreateFolder(t *testing.T) {
	now := time.Now()
	query := regexp.QuoteMeta(`INSERT INTO folders (id, name, parent_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`)
	folder := &models.Folder{ID: "f1", Name: "Проекты", CreatedAt: now, UpdatedAt: now}

	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock)
		expectedErr error
	}{
		{
			name: "Успешное создание с исходным id",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(query).
					WithArgs(folder.ID, folder.Name, folder.ParentID, folder.CreatedAt, folder.UpdatedAt).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "Папка с таким id уже существует",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(query).WillReturnError(&pq.Error{Code: "23505"})
			},
			expectedErr: repository.ErrFolderExists,
		},
		{
			name: "Ошибка базы данных",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(query).WillReturnError(errors.New("database error"))
			},
			expectedErr: errors.New("ошибка выполнения запроса"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupFolderRepoMock(t)
			tt.mockSetup(mock)

			err := repo.CreateFolder(context.Background(), folder)
			if tt.expectedErr != nil {
				require.Error(t, err)
				if errors.Is(tt.expectedErr, repository.ErrFolderExists) {
					assert.ErrorIs(t, err, repository.ErrFolderExists)
				} else {
					assert.Contains(t, err.Error(), tt.expectedErr.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
