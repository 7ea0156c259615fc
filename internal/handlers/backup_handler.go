package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/notium/server/internal/backup"
	"github.com/notium/server/internal/models"
	"github.com/notium/server/internal/services"
	"github.com/notium/server/internal/storage"
)

// Ограничение на размер загружаемого архива в памяти; остальное multipart
// складывает во временные файлы.
const maxUploadMemory = 32 << 20 // 32 МБ

// BackupHandler обрабатывает HTTP-запросы бэкапа и восстановления.
type BackupHandler struct {
	service services.BackupService
}

// NewBackupHandler создает новый экземпляр BackupHandler.
func NewBackupHandler(s services.BackupService) *BackupHandler {
	return &BackupHandler{service: s}
}

// CreateBackup обрабатывает POST запрос на создание бэкапа.
// Тело: {"workspaces": [{"id": "...", "legacy_notes": "..."}]}.
// Ответ — поток архива application/zip.
func (h *BackupHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBackupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[BackupHandler:Create] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	if len(req.Workspaces) == 0 {
		http.Error(w, "Не указано ни одного рабочего пространства", http.StatusBadRequest)
		return
	}

	requests := make([]backup.BackupRequest, 0, len(req.Workspaces))
	for _, ws := range req.Workspaces {
		if ws.ID == "" {
			http.Error(w, "Пустой id рабочего пространства", http.StatusBadRequest)
			return
		}
		requests = append(requests, backup.BackupRequest{
			WorkspaceID: ws.ID,
			LegacyNotes: ws.LegacyNotes,
		})
	}

	log.Printf("[BackupHandler:Create] Запрос бэкапа %d пространств", len(requests))

	archive, err := h.service.CreateBackup(r.Context(), requests)
	if err != nil {
		log.Printf("[BackupHandler:Create] Ошибка создания бэкапа: %v", err)
		http.Error(w, "Внутренняя ошибка сервера при создании бэкапа", http.StatusInternalServerError)
		return
	}
	// Close закрывает файл архива и удаляет временный каталог сборки —
	// уборка происходит после полной отдачи потока клиенту.
	defer func() {
		if closeErr := archive.Close(); closeErr != nil {
			log.Printf("[BackupHandler:Create] Ошибка закрытия архива: %v", closeErr)
		}
	}()

	filename := fmt.Sprintf("notium_backup_%s.zip", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.FormatInt(archive.Size(), 10))

	if _, err = io.Copy(w, archive); err != nil {
		log.Printf("[BackupHandler:Create] Ошибка отправки архива клиенту: %v", err)
		return
	}

	log.Printf("[BackupHandler:Create] Архив (%d байт) успешно отправлен", archive.Size())
}

// Restore обрабатывает POST запрос на восстановление из загруженного архива.
// Архив приходит multipart-полем "archive"; загруженный файл удаляется
// в любом случае после завершения восстановления.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		log.Printf("[BackupHandler:Restore] Ошибка разбора multipart-запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	upload, _, err := r.FormFile("archive")
	if err != nil {
		log.Printf("[BackupHandler:Restore] Поле 'archive' отсутствует: %v", err)
		http.Error(w, "Не передан файл архива (поле 'archive')", http.StatusBadRequest)
		return
	}
	defer func() {
		if closeErr := upload.Close(); closeErr != nil {
			log.Printf("[BackupHandler:Restore] Ошибка закрытия загруженного файла: %v", closeErr)
		}
	}()

	// Сохраняем загрузку во временный файл; удаляем его на любом исходе.
	tmpFile, err := os.CreateTemp("", "notium-upload-*.zip")
	if err != nil {
		log.Printf("[BackupHandler:Restore] Ошибка создания временного файла: %v", err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if removeErr := os.Remove(tmpPath); removeErr != nil {
			log.Printf("[BackupHandler:Restore] Ошибка удаления загруженного архива '%s': %v", tmpPath, removeErr)
		}
	}()

	_, err = io.Copy(tmpFile, upload)
	if closeErr := tmpFile.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		log.Printf("[BackupHandler:Restore] Ошибка сохранения загруженного архива: %v", err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	log.Printf("[BackupHandler:Restore] Архив загружен во временный файл, начинаем восстановление")

	result, err := h.service.RestoreFromBackup(r.Context(), tmpPath)
	if err != nil {
		h.writeRestoreError(w, err)
		return
	}

	h.writeRestoreResult(w, result)
}

// RestoreRemote обрабатывает POST запрос на восстановление из off-site архива.
// Тело: {"object_key": "..."}.
func (h *BackupHandler) RestoreRemote(w http.ResponseWriter, r *http.Request) {
	var req models.RestoreRemoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[BackupHandler:RestoreRemote] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}
	if req.ObjectKey == "" {
		http.Error(w, "Не указан ключ объекта", http.StatusBadRequest)
		return
	}

	log.Printf("[BackupHandler:RestoreRemote] Запрос восстановления из '%s'", req.ObjectKey)

	result, err := h.service.RestoreFromRemote(r.Context(), req.ObjectKey)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrObjectNotFound):
			http.Error(w, "Архив не найден в off-site хранилище", http.StatusNotFound)
		case errors.Is(err, services.ErrRemoteStorageDisabled):
			http.Error(w, "Off-site хранилище не настроено", http.StatusServiceUnavailable)
		default:
			h.writeRestoreError(w, err)
		}
		return
	}

	h.writeRestoreResult(w, result)
}

// DeleteRemote обрабатывает DELETE запрос на удаление off-site копии.
// Ключ объекта передается query-параметром object_key (ключи содержат слеши).
func (h *BackupHandler) DeleteRemote(w http.ResponseWriter, r *http.Request) {
	objectKey := r.URL.Query().Get("object_key")
	if objectKey == "" {
		http.Error(w, "Не указан ключ объекта", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteRemoteBackup(r.Context(), objectKey); err != nil {
		switch {
		case errors.Is(err, services.ErrRemoteStorageDisabled):
			http.Error(w, "Off-site хранилище не настроено", http.StatusServiceUnavailable)
		default:
			log.Printf("[BackupHandler:DeleteRemote] Ошибка удаления '%s': %v", objectKey, err)
			http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent) // 204 No Content
	log.Printf("[BackupHandler:DeleteRemote] Off-site копия '%s' удалена", objectKey)
}

// writeRestoreError транслирует ошибку восстановления в HTTP-статус:
// структурные ошибки архива — вина клиента (400), остальное — 500.
func (h *BackupHandler) writeRestoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, backup.ErrManifestInvalid) || errors.Is(err, backup.ErrWorkspaceMismatch) {
		log.Printf("[BackupHandler] Невалидный архив: %v", err)
		http.Error(w, fmt.Sprintf("Невалидный архив: %v", err), http.StatusBadRequest)
		return
	}
	log.Printf("[BackupHandler] Ошибка восстановления: %v", err)
	http.Error(w, "Внутренняя ошибка сервера при восстановлении", http.StatusInternalServerError)
}

// writeRestoreResult отправляет результат восстановления в JSON.
func (h *BackupHandler) writeRestoreResult(w http.ResponseWriter, result *backup.RestoreResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("[BackupHandler] Ошибка кодирования результата восстановления: %v", err)
	}
}
