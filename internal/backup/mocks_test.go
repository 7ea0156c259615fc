package backup_test

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/notium/server/internal/models"
	"github.com/stretchr/testify/mock"
)

// --- Mocks репозиториев --- //

// MockFolderRepository is a mock for FolderRepository.
type MockFolderRepository struct {
	mock.Mock
}

func (m *MockFolderRepository) ListFolders(ctx context.Context) ([]models.Folder, error) {
	args := m.Called(ctx)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Folder), args.Error(1)
}

func (m *MockFolderRepository) GetFolderByID(ctx context.Context, folderID string) (*models.Folder, error) {
	args := m.Called(ctx, folderID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Folder), args.Error(1)
}

func (m *MockFolderRepository) CreateFolder(ctx context.Context, folder *models.Folder) error {
	args := m.Called(ctx, folder)
	return args.Error(0)
}

// MockWorkspaceRepository is a mock for WorkspaceRepository.
type MockWorkspaceRepository struct {
	mock.Mock
}

func (m *MockWorkspaceRepository) GetWorkspaceByID(
	ctx context.Context,
	workspaceID string,
) (*models.Workspace, error) {
	args := m.Called(ctx, workspaceID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) CreateWorkspaceTx(
	ctx context.Context,
	tx *sqlx.Tx,
	workspace *models.Workspace,
) error {
	args := m.Called(ctx, tx, workspace)
	return args.Error(0)
}

func (m *MockWorkspaceRepository) DeleteWorkspaceTx(ctx context.Context, tx *sqlx.Tx, workspaceID string) error {
	args := m.Called(ctx, tx, workspaceID)
	return args.Error(0)
}

// MockDocumentRepository is a mock for DocumentRepository.
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) ListDocumentsByWorkspace(
	ctx context.Context,
	workspaceID string,
) ([]models.Document, error) {
	args := m.Called(ctx, workspaceID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Document), args.Error(1)
}

func (m *MockDocumentRepository) BulkInsertDocumentsTx(
	ctx context.Context,
	tx *sqlx.Tx,
	documents []models.Document,
) error {
	args := m.Called(ctx, tx, documents)
	return args.Error(0)
}

func (m *MockDocumentRepository) DeleteDocumentsByWorkspaceTx(
	ctx context.Context,
	tx *sqlx.Tx,
	workspaceID string,
) error {
	args := m.Called(ctx, tx, workspaceID)
	return args.Error(0)
}

// MockNoteRepository is a mock for NoteRepository.
type MockNoteRepository struct {
	mock.Mock
}

func (m *MockNoteRepository) ListNotesByWorkspace(
	ctx context.Context,
	workspaceID string,
) ([]models.Note, error) {
	args := m.Called(ctx, workspaceID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Note), args.Error(1)
}

func (m *MockNoteRepository) BulkInsertNotesTx(ctx context.Context, tx *sqlx.Tx, notes []models.Note) error {
	args := m.Called(ctx, tx, notes)
	return args.Error(0)
}

func (m *MockNoteRepository) DeleteNotesByWorkspaceTx(
	ctx context.Context,
	tx *sqlx.Tx,
	workspaceID string,
) error {
	args := m.Called(ctx, tx, workspaceID)
	return args.Error(0)
}
