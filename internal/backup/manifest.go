package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// FormatVersion — текущая версия формата архива. Восстановление принимает
// только эту версию; при изменении раскладки архива версия увеличивается.
const FormatVersion = "1"

// Имена файлов внутри архива.
const (
	manifestFileName      = "manifest.json"
	foldersFileName       = "folders.json"
	metadataFileName      = "metadata.json"
	documentsMetaFileName = "documents_meta.json"
	notesFileName         = "notes.json"
	notepadNotesFileName  = "notepad_notes.json"
)

// Manifest — верхнеуровневый описатель архива: версия формата, время
// создания и список идентификаторов включенных рабочих пространств.
// Инвариант: набор подкаталогов архива совпадает с WorkspaceIDs точно.
type Manifest struct {
	FormatVersion string    `json:"formatVersion"`
	CreatedAt     time.Time `json:"createdAt"`
	WorkspaceIDs  []string  `json:"workspaceIds"`
}

// writeJSONFile сериализует значение в JSON с отступами и пишет его в файл.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации '%s': %w", path, err)
	}
	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("ошибка записи файла '%s': %w", path, err)
	}
	return nil
}

// readJSONFile читает и десериализует JSON-файл.
func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ошибка чтения файла '%s': %w", path, err)
	}
	if err = json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("ошибка разбора файла '%s': %w", path, err)
	}
	return nil
}

// Кастомные ошибки формата архива.
var (
	// ErrManifestInvalid — структурная ошибка архива: манифест отсутствует,
	// не разбирается, имеет неподдерживаемую версию либо расходится с
	// фактическим содержимым архива. Фатально, до каких-либо изменений в БД.
	ErrManifestInvalid = errors.New("невалидный манифест архива")
)
