package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/notium/server/internal/backup"
	"github.com/notium/server/internal/storage"
)

// BackupService определяет интерфейс для сервиса бэкапов.
type BackupService interface {
	CreateBackup(ctx context.Context, requests []backup.BackupRequest) (*backup.Archive, error)
	RestoreFromBackup(ctx context.Context, archivePath string) (*backup.RestoreResult, error)
	RestoreFromRemote(ctx context.Context, objectKey string) (*backup.RestoreResult, error)
	DeleteRemoteBackup(ctx context.Context, objectKey string) error
}

// ArchiveBuilder строит архив бэкапа. Вынесено в интерфейс для подмены в тестах.
type ArchiveBuilder interface {
	Build(ctx context.Context, requests []backup.BackupRequest) (*backup.Archive, error)
}

// ArchiveRestorer восстанавливает хранилище из распакованного архива.
type ArchiveRestorer interface {
	Restore(ctx context.Context, extracted *backup.Extracted) (*backup.RestoreResult, error)
}

// Убедимся, что backupService удовлетворяет интерфейсу BackupService.
var _ BackupService = (*backupService)(nil)

type backupService struct {
	builder   ArchiveBuilder
	extractor *backup.Extractor
	restorer  ArchiveRestorer
	// archiveStorage может быть nil: off-site копии выключаются конфигурацией.
	archiveStorage storage.ArchiveStorage
}

// NewBackupService создает новый экземпляр сервиса бэкапов.
// archiveStorage равный nil отключает off-site копии и удаленное восстановление.
func NewBackupService(
	builder ArchiveBuilder,
	extractor *backup.Extractor,
	restorer ArchiveRestorer,
	archiveStorage storage.ArchiveStorage,
) BackupService {
	return &backupService{
		builder:        builder,
		extractor:      extractor,
		restorer:       restorer,
		archiveStorage: archiveStorage,
	}
}

// CreateBackup собирает архив и, если настроено off-site хранилище, загружает
// туда копию. Неудача загрузки копии только логируется: основной результат —
// сам архив, и он уже готов.
func (s *backupService) CreateBackup(
	ctx context.Context,
	requests []backup.BackupRequest,
) (*backup.Archive, error) {
	archive, err := s.builder.Build(ctx, requests)
	if err != nil {
		log.Printf("[BackupService] Ошибка сборки архива: %v", err)
		return nil, err
	}

	if s.archiveStorage != nil {
		s.uploadReplica(ctx, archive)
	}

	return archive, nil
}

// uploadReplica загружает копию готового архива в off-site хранилище.
// Архив читается из файла по отдельному дескриптору, чтобы не сдвигать
// позицию чтения потока, который уйдет клиенту.
func (s *backupService) uploadReplica(ctx context.Context, archive *backup.Archive) {
	file, err := os.Open(archive.Path())
	if err != nil {
		log.Printf("[BackupService] Не удалось открыть архив для off-site копии: %v", err)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("[BackupService] Ошибка закрытия файла архива: %v", closeErr)
		}
	}()

	objectKey := fmt.Sprintf("backups/%s-%s.zip",
		time.Now().UTC().Format("20060102T150405Z"), uuid.NewString())

	if err = s.archiveStorage.UploadArchive(ctx, objectKey, file, archive.Size()); err != nil {
		log.Printf("[BackupService] Off-site копия не загружена (бэкап не пострадал): %v", err)
		return
	}
	log.Printf("[BackupService] Off-site копия загружена: %s", objectKey)
}

// RestoreFromBackup распаковывает архив по пути archivePath и восстанавливает
// из него хранилище. Временный каталог распаковки удаляется на любом исходе.
func (s *backupService) RestoreFromBackup(
	ctx context.Context,
	archivePath string,
) (*backup.RestoreResult, error) {
	extracted, err := s.extractor.Extract(archivePath)
	if err != nil {
		log.Printf("[BackupService] Ошибка распаковки архива '%s': %v", archivePath, err)
		return nil, err
	}
	defer extracted.Release()

	result, err := s.restorer.Restore(ctx, extracted)
	if err != nil {
		log.Printf("[BackupService] Ошибка восстановления из '%s': %v", archivePath, err)
		return nil, err
	}
	return result, nil
}

// RestoreFromRemote скачивает архив из off-site хранилища во временный файл
// и выполняет обычное восстановление. Временный файл удаляется на любом исходе.
func (s *backupService) RestoreFromRemote(
	ctx context.Context,
	objectKey string,
) (*backup.RestoreResult, error) {
	if s.archiveStorage == nil {
		return nil, ErrRemoteStorageDisabled
	}

	remote, err := s.archiveStorage.DownloadArchive(ctx, objectKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := remote.Close(); closeErr != nil {
			log.Printf("[BackupService] Ошибка закрытия удаленного архива '%s': %v", objectKey, closeErr)
		}
	}()

	tmpFile, err := os.CreateTemp("", "notium-remote-*.zip")
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if removeErr := os.Remove(tmpPath); removeErr != nil {
			log.Printf("[BackupService] Ошибка удаления временного файла '%s': %v", tmpPath, removeErr)
		}
	}()

	_, err = io.Copy(tmpFile, remote)
	if closeErr := tmpFile.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка скачивания удаленного архива '%s': %w", objectKey, err)
	}

	log.Printf("[BackupService] Удаленный архив '%s' скачан, начинаем восстановление", objectKey)
	return s.RestoreFromBackup(ctx, tmpPath)
}

// DeleteRemoteBackup удаляет off-site копию по ключу объекта.
func (s *backupService) DeleteRemoteBackup(ctx context.Context, objectKey string) error {
	if s.archiveStorage == nil {
		return ErrRemoteStorageDisabled
	}
	return s.archiveStorage.DeleteArchive(ctx, objectKey)
}

// Кастомные ошибки сервиса бэкапов.
var (
	ErrRemoteStorageDisabled = errors.New("off-site хранилище архивов не настроено")
)
