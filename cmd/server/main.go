package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Драйвер PostgreSQL
	"github.com/notium/server/internal/backup"
	"github.com/notium/server/internal/handlers"
	appmiddleware "github.com/notium/server/internal/middleware"
	"github.com/notium/server/internal/repository"
	"github.com/notium/server/internal/services"
	"github.com/notium/server/internal/storage"
)

const (
	defaultReadTimeout = 10 * time.Second
	// Запись архива большого пространства занимает время, таймаут щедрый.
	defaultWriteTimeout = 5 * time.Minute
	defaultIdleTimeout  = 30 * time.Second
)

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db            *sqlx.DB
	authHandler   *handlers.AuthHandler
	backupHandler *handlers.BackupHandler
	jwtSecret     string
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	log.Println("Запуск сервера Notium...")

	cfg, err := parseFlags()
	if err != nil {
		return fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	// Инициализация зависимостей
	deps, err := setupDependencies(cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	// Отложенное закрытие соединения с БД
	defer func() {
		if deps.db != nil {
			if closeErr := deps.db.Close(); closeErr != nil {
				log.Printf("Ошибка закрытия соединения с БД: %v", closeErr)
			}
		}
	}()

	// Настройка роутера
	r := setupRouter(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	log.Printf("Запуск HTTPS-сервера на порту %s...", cfg.Port)

	if err = server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка запуска HTTPS-сервера: %w", err)
	}
	return nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(cfg *config) (*dependencies, error) {
	deps := &dependencies{jwtSecret: cfg.JWTSecret}
	var err error

	// 1. Подключение к БД
	deps.db, err = repository.NewPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}

	// 2. Хранилище блобов рабочих пространств
	blobStorage, err := storage.NewLocalBlobStorage(cfg.BlobRoot)
	if err != nil {
		closeDB(deps.db)
		return nil, fmt.Errorf("ошибка инициализации хранилища блобов: %w", err)
	}

	// 3. Off-site хранилище архивов (опционально)
	var archiveStorage storage.ArchiveStorage
	if cfg.MinioEndpoint != "" {
		minioCfg := storage.MinioConfig{
			Endpoint:        cfg.MinioEndpoint,
			AccessKeyID:     cfg.MinioUser,
			SecretAccessKey: cfg.MinioPassword,
			UseSSL:          false, // Для локальной разработки
			BucketName:      cfg.MinioBucket,
		}
		archiveStorage, err = storage.NewMinioClient(minioCfg)
		if err != nil {
			closeDB(deps.db)
			return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
		}
	} else {
		log.Println("MINIO_ENDPOINT не задан, off-site копии архивов выключены.")
	}

	// 4. Создание репозиториев
	userRepo := repository.NewPostgresUserRepository(deps.db)
	folderRepo := repository.NewPostgresFolderRepository(deps.db)
	workspaceRepo := repository.NewPostgresWorkspaceRepository(deps.db)
	documentRepo := repository.NewPostgresDocumentRepository(deps.db)
	noteRepo := repository.NewPostgresNoteRepository(deps.db)

	// 5. Движок бэкапов
	policy, err := backup.ParseRestorePolicy(cfg.RestorePolicy)
	if err != nil {
		closeDB(deps.db)
		return nil, err
	}
	builder := backup.NewBuilder(folderRepo, workspaceRepo, documentRepo, noteRepo, blobStorage)
	extractor := backup.NewExtractor()
	locker := backup.NewWorkspaceLocker(filepath.Join(cfg.BlobRoot, ".locks"))
	restorer := backup.NewRestorer(
		deps.db, folderRepo, workspaceRepo, documentRepo, noteRepo, blobStorage, locker, policy,
	)

	// 6. Создание сервисов
	authService := services.NewAuthService(userRepo, cfg.JWTSecret)
	backupService := services.NewBackupService(builder, extractor, restorer, archiveStorage)

	// 7. Создание обработчиков
	deps.authHandler = handlers.NewAuthHandler(authService)
	deps.backupHandler = handlers.NewBackupHandler(backupService)

	return deps, nil
}

// closeDB закрывает соединение с БД при ошибке инициализации других зависимостей.
func closeDB(db *sqlx.DB) {
	if closeErr := db.Close(); closeErr != nil {
		log.Printf("Ошибка закрытия соединения с БД: %v", closeErr)
	}
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(deps *dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- Маршруты --- //
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})

	// Определяем базовый маршрут /api
	r.Route("/api", func(r chi.Router) {
		// Публичные маршруты (регистрация, вход)
		r.Post("/register", deps.authHandler.Register)
		r.Post("/login", deps.authHandler.Login)

		// Приватные маршруты (требуют аутентификации)
		r.Group(func(r chi.Router) {
			// Применяем middleware аутентификации ко всей группе
			r.Use(appmiddleware.NewAuthenticator(deps.jwtSecret))

			// Маршруты бэкапа и восстановления
			r.Route("/backups", func(r chi.Router) {
				r.Post("/", deps.backupHandler.CreateBackup)
				r.Post("/restore", deps.backupHandler.Restore)
				r.Post("/restore-remote", deps.backupHandler.RestoreRemote)
				r.Delete("/remote", deps.backupHandler.DeleteRemote)
			})
		})
	})
	return r
}
