package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/notium/server/internal/models"
)

// DocumentRepository определяет методы для работы с метаданными документов.
type DocumentRepository interface {
	ListDocumentsByWorkspace(ctx context.Context, workspaceID string) ([]models.Document, error)
	BulkInsertDocumentsTx(ctx context.Context, tx *sqlx.Tx, documents []models.Document) error
	DeleteDocumentsByWorkspaceTx(ctx context.Context, tx *sqlx.Tx, workspaceID string) error
}

// postgresDocumentRepository реализует DocumentRepository для PostgreSQL.
type postgresDocumentRepository struct {
	db *sqlx.DB
}

// NewPostgresDocumentRepository создает новый экземпляр репозитория документов.
func NewPostgresDocumentRepository(db *sqlx.DB) DocumentRepository {
	return &postgresDocumentRepository{db: db}
}

// ListDocumentsByWorkspace возвращает метаданные всех документов рабочего пространства.
func (r *postgresDocumentRepository) ListDocumentsByWorkspace(
	ctx context.Context,
	workspaceID string,
) ([]models.Document, error) {
	query := `SELECT id, file_name, mime_type, size_bytes, status, text_content, workspace_id
	          FROM documents WHERE workspace_id=$1 ORDER BY file_name`

	documents := make([]models.Document, 0)
	err := r.db.SelectContext(ctx, &documents, query, workspaceID)
	if err != nil {
		log.Printf("[DocumentRepo] Ошибка при получении документов пространства '%s': %v", workspaceID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение документов: %w", err)
	}

	log.Printf("[DocumentRepo] Получено %d документов для пространства '%s'", len(documents), workspaceID)
	return documents, nil
}

// BulkInsertDocumentsTx вставляет строки документов с сохранением исходных id
// в рамках переданной транзакции.
func (r *postgresDocumentRepository) BulkInsertDocumentsTx(
	ctx context.Context,
	tx *sqlx.Tx,
	documents []models.Document,
) error {
	if len(documents) == 0 {
		return nil // Нечего вставлять
	}

	query := `INSERT INTO documents (id, file_name, mime_type, size_bytes, status, text_content, workspace_id)
	          VALUES (:id, :file_name, :mime_type, :size_bytes, :status, :text_content, :workspace_id)`

	_, err := tx.NamedExecContext(ctx, query, documents)
	if err != nil {
		log.Printf("[DocumentRepo] Ошибка при массовой вставке %d документов: %v", len(documents), err)
		return fmt.Errorf("ошибка выполнения запроса на вставку документов: %w", err)
	}

	log.Printf("[DocumentRepo] Вставлено %d документов", len(documents))
	return nil
}

// DeleteDocumentsByWorkspaceTx удаляет все документы рабочего пространства
// в рамках транзакции. Отсутствие строк не является ошибкой.
func (r *postgresDocumentRepository) DeleteDocumentsByWorkspaceTx(
	ctx context.Context,
	tx *sqlx.Tx,
	workspaceID string,
) error {
	query := `DELETE FROM documents WHERE workspace_id=$1`

	if _, err := tx.ExecContext(ctx, query, workspaceID); err != nil {
		log.Printf("[DocumentRepo] Ошибка при удалении документов пространства '%s': %v", workspaceID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление документов: %w", err)
	}
	return nil
}
