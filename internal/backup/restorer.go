package backup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/notium/server/internal/models"
	"github.com/notium/server/internal/repository"
	"github.com/notium/server/internal/storage"
)

// RestorePolicy определяет поведение при ошибке восстановления одного
// рабочего пространства.
type RestorePolicy int

const (
	// PolicyAbortAll — ошибка любого пространства прерывает все восстановление.
	// Уже восстановленные пространства не откатываются: атомарность действует
	// в пределах одного пространства, не между ними.
	PolicyAbortAll RestorePolicy = iota
	// PolicyContinue — ошибка пространства фиксируется в результате,
	// восстановление продолжается со следующего.
	PolicyContinue
)

// ParseRestorePolicy разбирает строковое значение политики из конфигурации.
func ParseRestorePolicy(value string) (RestorePolicy, error) {
	switch value {
	case "", "abort":
		return PolicyAbortAll, nil
	case "continue":
		return PolicyContinue, nil
	default:
		return PolicyAbortAll, fmt.Errorf("неизвестная политика восстановления: '%s'", value)
	}
}

// WorkspacePayload — легаси-заметки одного пространства, возвращаемые
// клиенту после восстановления для слияния с локальным состоянием.
type WorkspacePayload struct {
	WorkspaceID string `json:"workspace_id"`
	Payload     string `json:"payload"`
}

// RestoreResult — итог восстановления.
type RestoreResult struct {
	Message            string             `json:"message"`
	RestoredPayloads   []WorkspacePayload `json:"restored_payloads"`
	FailedWorkspaceIDs []string           `json:"failed_workspace_ids,omitempty"`
}

// Restorer — оркестратор восстановления: по распакованному архиву
// пересоздает папки, рабочие пространства, документы, заметки и деревья
// блобов. Каждое пространство уничтожается и пересоздается в одной
// транзакции БД; висячие ссылки на папки чинятся, а не валят операцию.
type Restorer struct {
	db         *sqlx.DB
	folders    repository.FolderRepository
	workspaces repository.WorkspaceRepository
	documents  repository.DocumentRepository
	notes      repository.NoteRepository
	blobs      storage.BlobStorage
	locker     *WorkspaceLocker
	policy     RestorePolicy
}

// NewRestorer создает новый оркестратор восстановления.
func NewRestorer(
	db *sqlx.DB,
	folders repository.FolderRepository,
	workspaces repository.WorkspaceRepository,
	documents repository.DocumentRepository,
	notes repository.NoteRepository,
	blobs storage.BlobStorage,
	locker *WorkspaceLocker,
	policy RestorePolicy,
) *Restorer {
	return &Restorer{
		db:         db,
		folders:    folders,
		workspaces: workspaces,
		documents:  documents,
		notes:      notes,
		blobs:      blobs,
		locker:     locker,
		policy:     policy,
	}
}

// Restore выполняет восстановление из распакованного архива. Пространства
// обрабатываются в порядке manifest.workspaceIds. Возвращаемая ошибка
// означает прерывание всей операции; частичные неудачи при PolicyContinue
// попадают в RestoreResult.FailedWorkspaceIDs.
func (r *Restorer) Restore(ctx context.Context, extracted *Extracted) (*RestoreResult, error) {
	// Шаг 0: папки, один раз до всех пространств.
	knownFolders, err := r.restoreFolders(ctx, extracted.Path())
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{
		RestoredPayloads: make([]WorkspacePayload, 0, len(extracted.Manifest.WorkspaceIDs)),
	}

	for _, workspaceID := range extracted.Manifest.WorkspaceIDs {
		payload, wsErr := r.restoreWorkspace(ctx, extracted.Path(), workspaceID, knownFolders)
		if wsErr != nil {
			// Структурная порча архива прерывает восстановление при любой политике.
			if errors.Is(wsErr, ErrWorkspaceMismatch) || r.policy == PolicyAbortAll {
				return nil, fmt.Errorf("ошибка восстановления пространства '%s': %w", workspaceID, wsErr)
			}
			log.Printf("[Restorer] Пространство '%s' не восстановлено, продолжаем: %v", workspaceID, wsErr)
			result.FailedWorkspaceIDs = append(result.FailedWorkspaceIDs, workspaceID)
			continue
		}
		result.RestoredPayloads = append(result.RestoredPayloads, payload)
	}

	result.Message = fmt.Sprintf("восстановлено рабочих пространств: %d", len(result.RestoredPayloads))
	log.Printf("[Restorer] %s (ошибок: %d)", result.Message, len(result.FailedWorkspaceIDs))
	return result, nil
}

// restoreFolders выполняет проход по папкам: существующие остаются как есть,
// отсутствующие создаются с исходным id. Возвращает набор известных папок;
// ссылка пространства на папку вне набора считается висячей и обнуляется.
// Отсутствие folders.json — не ошибка: набор просто пуст.
func (r *Restorer) restoreFolders(ctx context.Context, extractedDir string) (map[string]bool, error) {
	known := make(map[string]bool)

	foldersPath := filepath.Join(extractedDir, foldersFileName)
	if _, err := os.Stat(foldersPath); err != nil {
		log.Printf("[Restorer] folders.json отсутствует в архиве, ссылки на папки будут обнулены")
		return known, nil
	}

	var folders []models.Folder
	if err := readJSONFile(foldersPath, &folders); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	// Папки — лес с хранением связи как простого parent_id, поэтому порядок
	// вставки не важен и проход по списку не требует топологической сортировки.
	for i := range folders {
		folder := &folders[i]

		_, err := r.folders.GetFolderByID(ctx, folder.ID)
		switch {
		case err == nil:
			// Папка уже есть — не трогаем, id известен.
			known[folder.ID] = true
		case errors.Is(err, repository.ErrFolderNotFound):
			if createErr := r.folders.CreateFolder(ctx, folder); createErr != nil {
				return nil, fmt.Errorf("ошибка создания папки '%s': %w", folder.ID, createErr)
			}
			known[folder.ID] = true
		default:
			return nil, fmt.Errorf("ошибка проверки папки '%s': %w", folder.ID, err)
		}
	}

	log.Printf("[Restorer] Проход по папкам завершен, известно папок: %d", len(known))
	return known, nil
}

// restoreWorkspace уничтожает и пересоздает одно рабочее пространство.
// Последовательность: блокировка -> destroy (tx) -> удаление блобов ->
// метаданные (tx) -> блобы -> документы (tx) -> заметки (tx) -> commit ->
// сбор легаси-заметок.
func (r *Restorer) restoreWorkspace(
	ctx context.Context,
	extractedDir string,
	workspaceID string,
	knownFolders map[string]bool,
) (WorkspacePayload, error) {
	var payload WorkspacePayload

	wsDir := filepath.Join(extractedDir, workspaceID)

	// Метаданные читаем до каких-либо изменений: несоответствие id в
	// metadata.json имени каталога — структурная порча всего архива.
	var workspace models.Workspace
	if err := readJSONFile(filepath.Join(wsDir, metadataFileName), &workspace); err != nil {
		return payload, fmt.Errorf("%w: %v", ErrWorkspaceMismatch, err)
	}
	if workspace.ID != workspaceID {
		return payload, fmt.Errorf("%w: metadata.json содержит id '%s' вместо '%s'",
			ErrWorkspaceMismatch, workspace.ID, workspaceID)
	}

	// Починка висячей ссылки: указатель на неизвестную папку обнуляется,
	// восстановление из-за него не прерывается.
	if workspace.FolderID != nil && !knownFolders[*workspace.FolderID] {
		log.Printf("[Restorer] Пространство '%s' ссылается на неизвестную папку '%s', ссылка обнулена",
			workspaceID, *workspace.FolderID)
		workspace.FolderID = nil
	}

	// Восстановления одного id сериализуются: destroy + recreate без
	// блокировки — гонка.
	lock, err := r.locker.Acquire(workspaceID)
	if err != nil {
		return payload, err
	}
	defer r.locker.Release(lock)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return payload, fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("[Restorer] Ошибка отката транзакции для '%s': %v", workspaceID, rbErr)
			}
		}
	}()

	// Destroy в порядке зависимостей: заметки, документы, само пространство.
	if err = r.notes.DeleteNotesByWorkspaceTx(ctx, tx, workspaceID); err != nil {
		return payload, err
	}
	if err = r.documents.DeleteDocumentsByWorkspaceTx(ctx, tx, workspaceID); err != nil {
		return payload, err
	}
	if err = r.workspaces.DeleteWorkspaceTx(ctx, tx, workspaceID); err != nil {
		return payload, err
	}

	if err = r.blobs.RemoveWorkspaceTree(workspaceID); err != nil {
		return payload, err
	}

	if err = r.workspaces.CreateWorkspaceTx(ctx, tx, &workspace); err != nil {
		return payload, err
	}

	if err = r.restoreBlobTrees(wsDir, workspaceID); err != nil {
		return payload, err
	}

	if err = r.restoreDocuments(ctx, tx, wsDir, workspaceID); err != nil {
		return payload, err
	}
	if err = r.restoreNotes(ctx, tx, wsDir, workspaceID); err != nil {
		return payload, err
	}

	if err = tx.Commit(); err != nil {
		return payload, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	committed = true

	payload = r.collectLegacyPayload(wsDir, workspaceID)
	log.Printf("[Restorer] Пространство '%s' восстановлено", workspaceID)
	return payload, nil
}

// restoreBlobTrees пересоздает каталог блобов пространства и копирует в него
// присутствующие в архиве поддеревья. Каждое поддерево опционально.
func (r *Restorer) restoreBlobTrees(wsDir, workspaceID string) error {
	if err := r.blobs.EnsureWorkspaceDir(workspaceID); err != nil {
		return err
	}

	for _, kind := range storage.BlobTreeKinds {
		src := filepath.Join(wsDir, kind)
		if _, err := os.Stat(src); err != nil {
			log.Printf("[Restorer] В архиве нет поддерева '%s' пространства '%s', пропускаем", kind, workspaceID)
			continue
		}
		if err := r.blobs.ImportTree(src, workspaceID, kind); err != nil {
			return err
		}
	}
	return nil
}

// restoreDocuments вставляет строки документов из documents_meta.json.
// Файл опционален. workspace_id в строках принудительно заменяется на id
// текущего пространства: значению из файла доверять нельзя.
func (r *Restorer) restoreDocuments(ctx context.Context, tx *sqlx.Tx, wsDir, workspaceID string) error {
	metaPath := filepath.Join(wsDir, documentsMetaFileName)
	if _, err := os.Stat(metaPath); err != nil {
		log.Printf("[Restorer] documents_meta.json отсутствует для '%s', документов нет", workspaceID)
		return nil
	}

	var documents []models.Document
	if err := readJSONFile(metaPath, &documents); err != nil {
		return err
	}
	for i := range documents {
		documents[i].WorkspaceID = workspaceID
	}

	return r.documents.BulkInsertDocumentsTx(ctx, tx, documents)
}

// restoreNotes вставляет заметки из notepad_notes.json. Файл опционален;
// id заметок сохраняются, чтобы файловые ассоциации остались действительными.
func (r *Restorer) restoreNotes(ctx context.Context, tx *sqlx.Tx, wsDir, workspaceID string) error {
	notesPath := filepath.Join(wsDir, notepadNotesFileName)
	if _, err := os.Stat(notesPath); err != nil {
		log.Printf("[Restorer] notepad_notes.json отсутствует для '%s', заметок нет", workspaceID)
		return nil
	}

	var notes []models.Note
	if err := readJSONFile(notesPath, &notes); err != nil {
		return err
	}
	for i := range notes {
		notes[i].WorkspaceID = workspaceID
	}

	return r.notes.BulkInsertNotesTx(ctx, tx, notes)
}

// collectLegacyPayload читает notes.json пространства. Если файла нет,
// возвращается пустой payload — клиент по нему очистит свое устаревшее
// локальное состояние.
func (r *Restorer) collectLegacyPayload(wsDir, workspaceID string) WorkspacePayload {
	data, err := os.ReadFile(filepath.Join(wsDir, notesFileName))
	if err != nil {
		log.Printf("[Restorer] notes.json отсутствует для '%s', возвращаем пустой payload", workspaceID)
		return WorkspacePayload{WorkspaceID: workspaceID, Payload: ""}
	}
	return WorkspacePayload{WorkspaceID: workspaceID, Payload: string(data)}
}

// Кастомные ошибки оркестратора.
var (
	// ErrWorkspaceMismatch — содержимое каталога пространства противоречит
	// манифесту (id в metadata.json не совпадает с именем каталога либо
	// metadata.json нечитаем). Структурная порча, прерывает все восстановление.
	ErrWorkspaceMismatch = errors.New("содержимое пространства не соответствует манифесту")
)
