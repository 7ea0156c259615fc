package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveStorage определяет интерфейс для off-site хранилища архивов бэкапов.
// Копия каждого успешного бэкапа загружается сюда; восстановление может
// забирать архив по ключу объекта, не требуя повторной загрузки с клиента.
type ArchiveStorage interface {
	UploadArchive(ctx context.Context, objectKey string, reader io.Reader, size int64) error
	DownloadArchive(ctx context.Context, objectKey string) (io.ReadCloser, error)
	DeleteArchive(ctx context.Context, objectKey string) error
}

// MinioClient реализует ArchiveStorage для MinIO.
type MinioClient struct {
	client     *minio.Client
	bucketName string
}

// MinioConfig содержит параметры для подключения к MinIO.
type MinioConfig struct {
	Endpoint        string // Адрес MinIO (например, "localhost:9000")
	AccessKeyID     string // Логин
	SecretAccessKey string // Пароль
	UseSSL          bool   // Использовать SSL (обычно false для локальной разработки)
	BucketName      string // Имя бакета для хранения архивов
	Region          string // Регион (не обязательно для MinIO, но может требоваться)
}

// Архивы всегда zip, другой контент в бакет не попадает.
const archiveContentType = "application/zip"

// NewMinioClient создает новый клиент MinIO.
func NewMinioClient(cfg MinioConfig) (*MinioClient, error) {
	log.Printf("Инициализация клиента MinIO для эндпоинта %s...", cfg.Endpoint)

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	// Проверка доступности MinIO
	// Необязательно, но полезно для раннего обнаружения проблем
	_, err = minioClient.ListBuckets(context.Background())
	if err != nil {
		log.Printf("Предупреждение: не удалось проверить соединение с MinIO: %v. Проверьте доступность и креды.", err)
		// Не возвращаем ошибку, чтобы сервер мог запуститься, даже если MinIO временно недоступен
	}

	// Проверка существования бакета и создание при необходимости
	ctx := context.Background()
	exists, err := minioClient.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки существования бакета '%s': %w", cfg.BucketName, err)
	}
	if !exists {
		log.Printf("Бакет '%s' не найден, попытка создания...", cfg.BucketName)
		err = minioClient.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, fmt.Errorf("ошибка создания бакета '%s': %w", cfg.BucketName, err)
		}
		log.Printf("Бакет '%s' успешно создан.", cfg.BucketName)
	}

	log.Printf("Клиент MinIO успешно инициализирован для бакета '%s'.", cfg.BucketName)
	return &MinioClient{
		client:     minioClient,
		bucketName: cfg.BucketName,
	}, nil
}

// UploadArchive загружает архив бэкапа в MinIO.
func (c *MinioClient) UploadArchive(
	ctx context.Context,
	objectKey string,
	reader io.Reader,
	size int64,
) error {
	log.Printf("[Minio] Загрузка архива '%s' в бакет '%s'...", objectKey, c.bucketName)

	opts := minio.PutObjectOptions{
		ContentType: archiveContentType,
	}

	uploadInfo, err := c.client.PutObject(ctx, c.bucketName, objectKey, reader, size, opts)
	if err != nil {
		log.Printf("[Minio] Ошибка загрузки архива '%s': %v", objectKey, err)
		return fmt.Errorf("ошибка загрузки архива в MinIO: %w", err)
	}

	log.Printf("[Minio] Архив '%s' успешно загружен, размер: %d, ETag: %s", objectKey, uploadInfo.Size, uploadInfo.ETag)
	return nil
}

// DownloadArchive скачивает архив бэкапа из MinIO.
// Возвращает io.ReadCloser, который нужно закрыть после использования.
func (c *MinioClient) DownloadArchive(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	log.Printf("[Minio] Скачивание архива '%s' из бакета '%s'...", objectKey, c.bucketName)

	object, err := c.client.GetObject(ctx, c.bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, c.wrapObjectError(objectKey, err)
	}

	// GetObject ленивый: ошибка отсутствия объекта всплывает только при чтении,
	// поэтому сразу запрашиваем метаданные.
	if _, err = object.Stat(); err != nil {
		_ = object.Close()
		return nil, c.wrapObjectError(objectKey, err)
	}

	log.Printf("[Minio] Архив '%s' успешно получен для скачивания", objectKey)
	return object, nil
}

// DeleteArchive удаляет архив бэкапа из MinIO.
func (c *MinioClient) DeleteArchive(ctx context.Context, objectKey string) error {
	log.Printf("[Minio] Удаление архива '%s' из бакета '%s'...", objectKey, c.bucketName)

	err := c.client.RemoveObject(ctx, c.bucketName, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		log.Printf("[Minio] Ошибка удаления архива '%s': %v", objectKey, err)
		return fmt.Errorf("ошибка удаления архива из MinIO: %w", err)
	}

	log.Printf("[Minio] Архив '%s' удален", objectKey)
	return nil
}

// wrapObjectError транслирует ошибку MinIO "NoSuchKey" в ErrObjectNotFound.
func (c *MinioClient) wrapObjectError(objectKey string, err error) error {
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) && minioErr.Code == "NoSuchKey" {
		log.Printf("[Minio] Архив '%s' не найден в бакете '%s'", objectKey, c.bucketName)
		return ErrObjectNotFound
	}
	log.Printf("[Minio] Ошибка получения архива '%s': %v", objectKey, err)
	return fmt.Errorf("ошибка получения архива из MinIO: %w", err)
}

// Кастомная ошибка хранилища архивов.
var (
	ErrObjectNotFound = errors.New("объект не найден в хранилище")
)
