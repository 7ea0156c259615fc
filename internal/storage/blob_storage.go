package storage

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Виды поддеревьев блобов внутри каталога рабочего пространства.
const (
	TreeDocuments = "documents"
	TreeNotes     = "notes"
	TreeVectors   = "vectors"
)

// BlobTreeKinds перечисляет все виды поддеревьев в фиксированном порядке.
var BlobTreeKinds = []string{TreeDocuments, TreeNotes, TreeVectors}

// BlobStorage определяет интерфейс для работы с деревьями блобов рабочих
// пространств на диске. Каждому рабочему пространству принадлежит свой
// подкаталог корня, внутри которого лежат поддеревья documents/notes/vectors.
type BlobStorage interface {
	// WorkspaceDir возвращает путь к каталогу блобов рабочего пространства.
	WorkspaceDir(workspaceID string) string
	// EnsureWorkspaceDir создает каталог рабочего пространства, если его нет.
	EnsureWorkspaceDir(workspaceID string) error
	// RemoveWorkspaceTree рекурсивно удаляет каталог рабочего пространства.
	RemoveWorkspaceTree(workspaceID string) error
	// ExportTree копирует поддерево kind рабочего пространства в dstDir.
	// Возвращает ErrTreeNotFound, если поддерева нет на диске.
	ExportTree(workspaceID, kind, dstDir string) error
	// ImportTree копирует содержимое srcDir в поддерево kind рабочего пространства.
	ImportTree(srcDir, workspaceID, kind string) error
}

// localBlobStorage реализует BlobStorage поверх локальной файловой системы.
type localBlobStorage struct {
	root string
}

// NewLocalBlobStorage создает хранилище блобов с корнем в каталоге root.
// Корень создается сразу, чтобы ошибка конфигурации обнаружилась при старте,
// а не при первом бэкапе.
func NewLocalBlobStorage(root string) (BlobStorage, error) {
	if root == "" {
		return nil, errors.New("не указан корневой каталог хранилища блобов")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("ошибка создания корневого каталога блобов '%s': %w", root, err)
	}

	log.Printf("[BlobStorage] Хранилище блобов инициализировано, корень: %s", root)
	return &localBlobStorage{root: root}, nil
}

// WorkspaceDir возвращает путь к каталогу блобов рабочего пространства.
func (s *localBlobStorage) WorkspaceDir(workspaceID string) string {
	return filepath.Join(s.root, workspaceID)
}

// EnsureWorkspaceDir создает каталог рабочего пространства, если его нет.
func (s *localBlobStorage) EnsureWorkspaceDir(workspaceID string) error {
	dir := s.WorkspaceDir(workspaceID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("ошибка создания каталога блобов '%s': %w", dir, err)
	}
	return nil
}

// RemoveWorkspaceTree рекурсивно удаляет каталог рабочего пространства.
// Отсутствие каталога не считается ошибкой.
func (s *localBlobStorage) RemoveWorkspaceTree(workspaceID string) error {
	dir := s.WorkspaceDir(workspaceID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("ошибка удаления дерева блобов '%s': %w", dir, err)
	}
	log.Printf("[BlobStorage] Дерево блобов пространства '%s' удалено", workspaceID)
	return nil
}

// ExportTree копирует поддерево kind рабочего пространства в dstDir.
func (s *localBlobStorage) ExportTree(workspaceID, kind, dstDir string) error {
	src := filepath.Join(s.root, workspaceID, kind)
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrTreeNotFound
		}
		return fmt.Errorf("ошибка проверки поддерева '%s': %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("путь '%s' не является каталогом", src)
	}

	if err := copyDir(src, dstDir); err != nil {
		return fmt.Errorf("ошибка копирования поддерева '%s': %w", src, err)
	}
	return nil
}

// ImportTree копирует содержимое srcDir в поддерево kind рабочего пространства.
func (s *localBlobStorage) ImportTree(srcDir, workspaceID, kind string) error {
	dst := filepath.Join(s.root, workspaceID, kind)
	if err := copyDir(srcDir, dst); err != nil {
		return fmt.Errorf("ошибка копирования в поддерево '%s': %w", dst, err)
	}
	return nil
}

// copyDir рекурсивно копирует каталог src в dst, создавая dst при необходимости.
// Символические ссылки не копируются: в деревьях блобов их быть не должно.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		if !d.Type().IsRegular() {
			log.Printf("[BlobStorage] Пропущен нерегулярный файл: %s", path)
			return nil
		}
		return copyFile(path, target)
	})
}

// copyFile копирует один регулярный файл.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			log.Printf("[BlobStorage] Ошибка закрытия файла '%s': %v", src, closeErr)
		}
	}()

	if err = os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Кастомные ошибки хранилища блобов.
var (
	ErrTreeNotFound = errors.New("поддерево блобов не найдено")
)
