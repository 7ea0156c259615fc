package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/notium/server/internal/models"
)

// FolderRepository определяет методы для работы с папками.
// CreateFolder сохраняет папку с ее исходным id: при восстановлении из архива
// идентификаторы должны сохраняться, иначе ссылки workspace -> folder станут
// недействительными.
type FolderRepository interface {
	ListFolders(ctx context.Context) ([]models.Folder, error)
	GetFolderByID(ctx context.Context, folderID string) (*models.Folder, error)
	CreateFolder(ctx context.Context, folder *models.Folder) error
}

// postgresFolderRepository реализует FolderRepository для PostgreSQL.
type postgresFolderRepository struct {
	db *sqlx.DB
}

// NewPostgresFolderRepository создает новый экземпляр репозитория папок.
func NewPostgresFolderRepository(db *sqlx.DB) FolderRepository {
	return &postgresFolderRepository{db: db}
}

// ListFolders возвращает все папки хранилища.
// Используется при создании бэкапа: в архив попадают все папки целиком,
// чтобы восстановление было самодостаточным.
func (r *postgresFolderRepository) ListFolders(ctx context.Context) ([]models.Folder, error) {
	query := `SELECT id, name, parent_id, created_at, updated_at FROM folders ORDER BY created_at`

	folders := make([]models.Folder, 0)
	err := r.db.SelectContext(ctx, &folders, query)
	if err != nil {
		log.Printf("[FolderRepo] Ошибка при получении списка папок: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение списка папок: %w", err)
	}

	log.Printf("[FolderRepo] Получено %d папок", len(folders))
	return folders, nil
}

// GetFolderByID находит папку по ее идентификатору.
func (r *postgresFolderRepository) GetFolderByID(ctx context.Context, folderID string) (*models.Folder, error) {
	query := `SELECT id, name, parent_id, created_at, updated_at FROM folders WHERE id=$1`
	var folder models.Folder

	err := r.db.GetContext(ctx, &folder, query, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFolderNotFound // Папка не найдена
		}
		log.Printf("[FolderRepo] Ошибка при поиске папки '%s': %v", folderID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение папки: %w", err)
	}

	return &folder, nil
}

// CreateFolder создает папку с сохранением исходного id.
func (r *postgresFolderRepository) CreateFolder(ctx context.Context, folder *models.Folder) error {
	query := `INSERT INTO folders (id, name, parent_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		folder.ID, folder.Name, folder.ParentID, folder.CreatedAt, folder.UpdatedAt,
	)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			log.Printf("[FolderRepo] Ошибка создания папки: id '%s' уже существует", folder.ID)
			return ErrFolderExists
		}
		log.Printf("[FolderRepo] Непредвиденная ошибка при создании папки '%s': %v", folder.ID, err)
		return fmt.Errorf("ошибка выполнения запроса на создание папки: %w", err)
	}

	log.Printf("[FolderRepo] Папка '%s' (id: %s) успешно создана", folder.Name, folder.ID)
	return nil
}

// Кастомные ошибки репозитория папок.
var (
	ErrFolderNotFound = errors.New("папка не найдена")
	ErrFolderExists   = errors.New("папка с таким id уже существует")
)
