package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

const (
	// Порт по умолчанию для HTTPS (непривилегированный).
	defaultServerPort = "8443"

	// Переменные окружения.
	envServerPort    = "SERVER_PORT"
	envTLSCertFile   = "TLS_CERT_FILE"
	envTLSKeyFile    = "TLS_KEY_FILE"
	envDatabaseDSN   = "DATABASE_DSN"
	envBlobRoot      = "BLOB_ROOT"
	envJWTSecret     = "JWT_SECRET" //nolint:gosec // Ложное срабатывание, это имя переменной окружения
	envRestorePolicy = "RESTORE_POLICY"

	// Переменные окружения для MinIO (off-site копии архивов).
	envMinioEndpoint = "MINIO_ENDPOINT"
	envMinioUser     = "MINIO_USER"
	envMinioPassword = "MINIO_PASSWORD"
	envMinioBucket   = "MINIO_BUCKET"

	defaultMinioBucket = "notium-backups"
)

// config хранит конфигурацию сервера.
type config struct {
	Port          string
	CertFile      string
	KeyFile       string
	DatabaseDSN   string
	BlobRoot      string
	JWTSecret     string
	RestorePolicy string // "abort" (по умолчанию) или "continue"

	// Настройки off-site хранилища; пустой Endpoint выключает его целиком.
	MinioEndpoint string
	MinioUser     string
	MinioPassword string
	MinioBucket   string
}

// parseFlags разбирает флаги и переменные окружения, возвращает config или ошибку.
func parseFlags() (*config, error) {
	cfg := &config{}

	// Определяем флаги
	flag.StringVar(&cfg.Port, "port", "",
		fmt.Sprintf("Порт для запуска HTTPS-сервера (env: %s, default: %s)", envServerPort, defaultServerPort))
	flag.StringVar(&cfg.CertFile, "cert-file", "",
		fmt.Sprintf("Путь к файлу TLS-сертификата (env: %s)", envTLSCertFile))
	flag.StringVar(&cfg.KeyFile, "key-file", "",
		fmt.Sprintf("Путь к файлу TLS-ключа (env: %s)", envTLSKeyFile))
	flag.StringVar(&cfg.DatabaseDSN, "database-dsn", "",
		fmt.Sprintf("Строка подключения к базе данных (env: %s)", envDatabaseDSN))
	flag.StringVar(&cfg.BlobRoot, "blob-root", "",
		fmt.Sprintf("Корневой каталог деревьев блобов рабочих пространств (env: %s)", envBlobRoot))
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", "",
		fmt.Sprintf("Секрет подписи JWT токенов (env: %s)", envJWTSecret))
	flag.StringVar(&cfg.RestorePolicy, "restore-policy", "",
		fmt.Sprintf("Политика восстановления: abort или continue (env: %s, default: abort)", envRestorePolicy))
	flag.StringVar(&cfg.MinioEndpoint, "minio-endpoint", "",
		fmt.Sprintf("Адрес MinIO для off-site копий; пусто — копии выключены (env: %s)", envMinioEndpoint))
	flag.StringVar(&cfg.MinioUser, "minio-user", "",
		fmt.Sprintf("Логин MinIO (env: %s)", envMinioUser))
	flag.StringVar(&cfg.MinioPassword, "minio-password", "",
		fmt.Sprintf("Пароль MinIO (env: %s)", envMinioPassword))
	flag.StringVar(&cfg.MinioBucket, "minio-bucket", "",
		fmt.Sprintf("Бакет MinIO для архивов (env: %s, default: %s)", envMinioBucket, defaultMinioBucket))

	// Парсим флаги
	flag.Parse()

	// Применяем переменные окружения, если флаги не заданы
	applyEnv(&cfg.Port, envServerPort, defaultServerPort)
	applyEnv(&cfg.CertFile, envTLSCertFile, "")
	applyEnv(&cfg.KeyFile, envTLSKeyFile, "")
	applyEnv(&cfg.DatabaseDSN, envDatabaseDSN, "")
	applyEnv(&cfg.BlobRoot, envBlobRoot, "")
	applyEnv(&cfg.JWTSecret, envJWTSecret, "")
	applyEnv(&cfg.RestorePolicy, envRestorePolicy, "")
	applyEnv(&cfg.MinioEndpoint, envMinioEndpoint, "")
	applyEnv(&cfg.MinioUser, envMinioUser, "")
	applyEnv(&cfg.MinioPassword, envMinioPassword, "")
	applyEnv(&cfg.MinioBucket, envMinioBucket, defaultMinioBucket)

	// Проверяем обязательные параметры
	if cfg.CertFile == "" {
		return nil, errors.New("не указан путь к файлу сертификата (--cert-file или " + envTLSCertFile + ")")
	}
	if cfg.KeyFile == "" {
		return nil, errors.New("не указан путь к файлу ключа (--key-file или " + envTLSKeyFile + ")")
	}
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("не указана строка подключения к БД (--database-dsn или " + envDatabaseDSN + ")")
	}
	if cfg.BlobRoot == "" {
		return nil, errors.New("не указан корневой каталог блобов (--blob-root или " + envBlobRoot + ")")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("не указан секрет подписи JWT (--jwt-secret или " + envJWTSecret + ")")
	}

	return cfg, nil
}

// applyEnv подставляет значение переменной окружения либо значение по
// умолчанию, если флаг не был задан.
func applyEnv(dst *string, envKey, fallback string) {
	if *dst != "" {
		return
	}
	if value, ok := os.LookupEnv(envKey); ok {
		*dst = value
		return
	}
	*dst = fallback
}
