package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/notium/server/internal/models"
)

// WorkspaceRepository определяет методы для работы с рабочими пространствами.
// Методы с суффиксом Tx принимают транзакцию: восстановление выполняет
// удаление и пересоздание одного рабочего пространства в одной транзакции,
// которой управляет оркестратор.
type WorkspaceRepository interface {
	GetWorkspaceByID(ctx context.Context, workspaceID string) (*models.Workspace, error)
	CreateWorkspaceTx(ctx context.Context, tx *sqlx.Tx, workspace *models.Workspace) error
	DeleteWorkspaceTx(ctx context.Context, tx *sqlx.Tx, workspaceID string) error
}

// postgresWorkspaceRepository реализует WorkspaceRepository для PostgreSQL.
type postgresWorkspaceRepository struct {
	db *sqlx.DB
}

// NewPostgresWorkspaceRepository создает новый экземпляр репозитория рабочих пространств.
func NewPostgresWorkspaceRepository(db *sqlx.DB) WorkspaceRepository {
	return &postgresWorkspaceRepository{db: db}
}

// GetWorkspaceByID находит рабочее пространство по идентификатору.
func (r *postgresWorkspaceRepository) GetWorkspaceByID(
	ctx context.Context,
	workspaceID string,
) (*models.Workspace, error) {
	query := `SELECT id, title, description, folder_id, created_at, updated_at
	          FROM workspaces WHERE id=$1`
	var workspace models.Workspace

	err := r.db.GetContext(ctx, &workspace, query, workspaceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[WorkspaceRepo] Рабочее пространство '%s' не найдено", workspaceID)
			return nil, ErrWorkspaceNotFound
		}
		log.Printf("[WorkspaceRepo] Ошибка при поиске рабочего пространства '%s': %v", workspaceID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение рабочего пространства: %w", err)
	}

	return &workspace, nil
}

// CreateWorkspaceTx создает рабочее пространство с сохранением исходного id
// в рамках переданной транзакции.
func (r *postgresWorkspaceRepository) CreateWorkspaceTx(
	ctx context.Context,
	tx *sqlx.Tx,
	workspace *models.Workspace,
) error {
	query := `INSERT INTO workspaces (id, title, description, folder_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.ExecContext(ctx, query,
		workspace.ID, workspace.Title, workspace.Description, workspace.FolderID,
		workspace.CreatedAt, workspace.UpdatedAt,
	)
	if err != nil {
		log.Printf("[WorkspaceRepo] Ошибка при создании рабочего пространства '%s': %v", workspace.ID, err)
		return fmt.Errorf("ошибка выполнения запроса на создание рабочего пространства: %w", err)
	}

	log.Printf("[WorkspaceRepo] Рабочее пространство '%s' (id: %s) создано", workspace.Title, workspace.ID)
	return nil
}

// DeleteWorkspaceTx удаляет рабочее пространство по id в рамках транзакции.
// Отсутствие строки не считается ошибкой: удаление идемпотентно, при
// восстановлении в чистое хранилище удалять просто нечего.
func (r *postgresWorkspaceRepository) DeleteWorkspaceTx(
	ctx context.Context,
	tx *sqlx.Tx,
	workspaceID string,
) error {
	query := `DELETE FROM workspaces WHERE id=$1`

	result, err := tx.ExecContext(ctx, query, workspaceID)
	if err != nil {
		log.Printf("[WorkspaceRepo] Ошибка при удалении рабочего пространства '%s': %v", workspaceID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление рабочего пространства: %w", err)
	}

	if affected, raErr := result.RowsAffected(); raErr == nil && affected == 0 {
		log.Printf("[WorkspaceRepo] Рабочее пространство '%s' отсутствовало, удалять нечего", workspaceID)
	}
	return nil
}

// Кастомные ошибки репозитория рабочих пространств.
var (
	ErrWorkspaceNotFound = errors.New("рабочее пространство не найдено")
)
