package backup

import (
	"archive/zip"
	"compress/flate"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/notium/server/internal/repository"
	"github.com/notium/server/internal/storage"
)

const (
	// Имя подкаталога временного каталога, в котором собирается содержимое архива.
	// Сам файл архива лежит рядом, чтобы не попасть в собственное содержимое.
	bundleDirName   = "bundle"
	archiveFileName = "backup.zip"
)

// BackupRequest описывает одно рабочее пространство, включаемое в бэкап.
// LegacyNotes — непрозрачный текст заметок дорелизного формата, который
// записывается в архив дословно.
type BackupRequest struct {
	WorkspaceID string
	LegacyNotes string
}

// Archive — готовый архив бэкапа. Является io.ReadCloser над файлом архива;
// Close закрывает файл и удаляет весь временный каталог сборки, поэтому
// уборка привязана к окончанию чтения потока, а не к возврату из Build.
type Archive struct {
	file *os.File
	size int64
	temp *TempWorkspace
}

// OpenArchive открывает готовый файл архива для чтения. temp может быть nil,
// если уборка каталога не требуется (например, архив получен извне).
func OpenArchive(path string, temp *TempWorkspace) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла архива: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("ошибка чтения информации о файле архива: %w", err)
	}

	return &Archive{file: file, size: stat.Size(), temp: temp}, nil
}

// Read читает содержимое архива.
func (a *Archive) Read(p []byte) (int, error) {
	return a.file.Read(p)
}

// Size возвращает размер файла архива в байтах.
func (a *Archive) Size() int64 {
	return a.size
}

// Path возвращает путь к файлу архива. Файл существует до вызова Close.
func (a *Archive) Path() string {
	return a.file.Name()
}

// Close закрывает файл архива и удаляет временный каталог сборки.
func (a *Archive) Close() error {
	err := a.file.Close()
	a.temp.Release()
	if err != nil {
		return fmt.Errorf("ошибка закрытия файла архива: %w", err)
	}
	return nil
}

// Builder собирает архив бэкапа: выгружает манифест, папки и данные
// рабочих пространств во временный каталог, затем упаковывает его в zip.
type Builder struct {
	folders    repository.FolderRepository
	workspaces repository.WorkspaceRepository
	documents  repository.DocumentRepository
	notes      repository.NoteRepository
	blobs      storage.BlobStorage
}

// NewBuilder создает новый сборщик архивов.
func NewBuilder(
	folders repository.FolderRepository,
	workspaces repository.WorkspaceRepository,
	documents repository.DocumentRepository,
	notes repository.NoteRepository,
	blobs storage.BlobStorage,
) *Builder {
	return &Builder{
		folders:    folders,
		workspaces: workspaces,
		documents:  documents,
		notes:      notes,
		blobs:      blobs,
	}
}

// Build собирает архив для перечисленных рабочих пространств и возвращает
// его как читаемый поток. При любой ошибке временный каталог удаляется до
// возврата; при успехе каталог живет до Close возвращенного архива.
func (b *Builder) Build(ctx context.Context, requests []BackupRequest) (*Archive, error) {
	if len(requests) == 0 {
		return nil, errors.New("не указано ни одного рабочего пространства для бэкапа")
	}

	temp, err := NewTempWorkspace()
	if err != nil {
		return nil, err
	}

	archive, err := b.build(ctx, temp, requests)
	if err != nil {
		temp.Release()
		return nil, err
	}
	return archive, nil
}

func (b *Builder) build(ctx context.Context, temp *TempWorkspace, requests []BackupRequest) (*Archive, error) {
	bundleDir := filepath.Join(temp.Path(), bundleDirName)
	if err := os.MkdirAll(bundleDir, 0o700); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога сборки: %w", err)
	}

	// Манифест: версия формата и список id в порядке запроса.
	workspaceIDs := make([]string, 0, len(requests))
	for _, req := range requests {
		workspaceIDs = append(workspaceIDs, req.WorkspaceID)
	}
	manifest := Manifest{
		FormatVersion: FormatVersion,
		CreatedAt:     time.Now().UTC(),
		WorkspaceIDs:  workspaceIDs,
	}
	if err := writeJSONFile(filepath.Join(bundleDir, manifestFileName), manifest); err != nil {
		return nil, err
	}

	// В архив попадают все папки хранилища, а не только те, на которые
	// ссылаются выбранные пространства: так восстановление самодостаточно.
	folders, err := b.folders.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка выгрузки папок: %w", err)
	}
	if err = writeJSONFile(filepath.Join(bundleDir, foldersFileName), folders); err != nil {
		return nil, err
	}

	for _, req := range requests {
		if err = b.stageWorkspace(ctx, bundleDir, req); err != nil {
			return nil, fmt.Errorf("ошибка выгрузки пространства '%s': %w", req.WorkspaceID, err)
		}
	}

	archivePath := filepath.Join(temp.Path(), archiveFileName)
	if err = writeZip(bundleDir, archivePath); err != nil {
		return nil, err
	}

	archive, err := OpenArchive(archivePath, temp)
	if err != nil {
		return nil, err
	}

	log.Printf("[Builder] Архив собран: %d пространств, %d байт", len(requests), archive.Size())
	return archive, nil
}

// stageWorkspace выгружает одно рабочее пространство в каталог сборки:
// метаданные, строки документов, заметки и деревья блобов.
func (b *Builder) stageWorkspace(ctx context.Context, bundleDir string, req BackupRequest) error {
	workspace, err := b.workspaces.GetWorkspaceByID(ctx, req.WorkspaceID)
	if err != nil {
		return err
	}

	wsDir := filepath.Join(bundleDir, req.WorkspaceID)
	if err = os.MkdirAll(wsDir, 0o700); err != nil {
		return fmt.Errorf("ошибка создания каталога пространства: %w", err)
	}

	if err = writeJSONFile(filepath.Join(wsDir, metadataFileName), workspace); err != nil {
		return err
	}

	documents, err := b.documents.ListDocumentsByWorkspace(ctx, req.WorkspaceID)
	if err != nil {
		return err
	}
	if err = writeJSONFile(filepath.Join(wsDir, documentsMetaFileName), documents); err != nil {
		return err
	}

	// Легаси-заметки пишутся дословно: это непрозрачный блоб клиента,
	// который должен пережить цикл бэкап/восстановление без изменений.
	if err = os.WriteFile(filepath.Join(wsDir, notesFileName), []byte(req.LegacyNotes), 0o600); err != nil {
		return fmt.Errorf("ошибка записи легаси-заметок: %w", err)
	}

	notes, err := b.notes.ListNotesByWorkspace(ctx, req.WorkspaceID)
	if err != nil {
		return err
	}
	if len(notes) > 0 {
		if err = writeJSONFile(filepath.Join(wsDir, notepadNotesFileName), notes); err != nil {
			return err
		}
	}

	// Деревья блобов опциональны: отсутствующее поддерево — не ошибка.
	for _, kind := range storage.BlobTreeKinds {
		err = b.blobs.ExportTree(req.WorkspaceID, kind, filepath.Join(wsDir, kind))
		if err != nil {
			if errors.Is(err, storage.ErrTreeNotFound) {
				log.Printf("[Builder] У пространства '%s' нет поддерева '%s', пропускаем", req.WorkspaceID, kind)
				continue
			}
			return err
		}
	}

	return nil
}

// writeZip упаковывает содержимое srcDir в zip-файл dstPath. Используется
// максимальное сжатие: бэкапы создаются редко и вне горячего пути, размер
// важнее скорости. Архив полностью финализируется до возврата.
func writeZip(srcDir, dstPath string) error {
	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("ошибка создания файла архива: %w", err)
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	walkErr := filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		// В zip всегда прямые слеши, независимо от ОС.
		entry, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(entry, in)
		if closeErr := in.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		return err
	})

	if walkErr != nil {
		_ = zw.Close()
		_ = out.Close()
		return fmt.Errorf("ошибка упаковки архива: %w", walkErr)
	}

	// Close дописывает центральный каталог zip; без него архив нечитаем.
	if err = zw.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("ошибка финализации архива: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия файла архива: %w", err)
	}
	return nil
}
