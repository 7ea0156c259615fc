package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/notium/server/internal/models"
)

// NoteRepository определяет методы для работы со структурированными заметками.
type NoteRepository interface {
	ListNotesByWorkspace(ctx context.Context, workspaceID string) ([]models.Note, error)
	BulkInsertNotesTx(ctx context.Context, tx *sqlx.Tx, notes []models.Note) error
	DeleteNotesByWorkspaceTx(ctx context.Context, tx *sqlx.Tx, workspaceID string) error
}

// postgresNoteRepository реализует NoteRepository для PostgreSQL.
type postgresNoteRepository struct {
	db *sqlx.DB
}

// NewPostgresNoteRepository создает новый экземпляр репозитория заметок.
func NewPostgresNoteRepository(db *sqlx.DB) NoteRepository {
	return &postgresNoteRepository{db: db}
}

// ListNotesByWorkspace возвращает все заметки рабочего пространства.
func (r *postgresNoteRepository) ListNotesByWorkspace(
	ctx context.Context,
	workspaceID string,
) ([]models.Note, error) {
	query := `SELECT id, title, content, workspace_id, created_at, updated_at
	          FROM notes WHERE workspace_id=$1 ORDER BY created_at`

	notes := make([]models.Note, 0)
	err := r.db.SelectContext(ctx, &notes, query, workspaceID)
	if err != nil {
		log.Printf("[NoteRepo] Ошибка при получении заметок пространства '%s': %v", workspaceID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение заметок: %w", err)
	}

	log.Printf("[NoteRepo] Получено %d заметок для пространства '%s'", len(notes), workspaceID)
	return notes, nil
}

// BulkInsertNotesTx вставляет заметки с сохранением исходных id в рамках
// переданной транзакции. Сохранение id обязательно: markdown-файлы в дереве
// блобов именуются по id заметки.
func (r *postgresNoteRepository) BulkInsertNotesTx(
	ctx context.Context,
	tx *sqlx.Tx,
	notes []models.Note,
) error {
	if len(notes) == 0 {
		return nil // Нечего вставлять
	}

	query := `INSERT INTO notes (id, title, content, workspace_id, created_at, updated_at)
	          VALUES (:id, :title, :content, :workspace_id, :created_at, :updated_at)`

	_, err := tx.NamedExecContext(ctx, query, notes)
	if err != nil {
		log.Printf("[NoteRepo] Ошибка при массовой вставке %d заметок: %v", len(notes), err)
		return fmt.Errorf("ошибка выполнения запроса на вставку заметок: %w", err)
	}

	log.Printf("[NoteRepo] Вставлено %d заметок", len(notes))
	return nil
}

// DeleteNotesByWorkspaceTx удаляет все заметки рабочего пространства в рамках
// транзакции. Отсутствие строк не является ошибкой.
func (r *postgresNoteRepository) DeleteNotesByWorkspaceTx(
	ctx context.Context,
	tx *sqlx.Tx,
	workspaceID string,
) error {
	query := `DELETE FROM notes WHERE workspace_id=$1`

	if _, err := tx.ExecContext(ctx, query, workspaceID); err != nil {
		log.Printf("[NoteRepo] Ошибка при удалении заметок пространства '%s': %v", workspaceID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление заметок: %w", err)
	}
	return nil
}
